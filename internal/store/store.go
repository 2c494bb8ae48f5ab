package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pavelanni/kidsjournal/internal/model"
)

var (
	// ErrNotFound is returned when a looked up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAttemptConflict is returned when another submission took the same
	// attempt number first.
	ErrAttemptConflict = errors.New("attempt number already taken")
	// ErrUsernameTaken is returned by CreateUser for duplicate usernames.
	ErrUsernameTaken = errors.New("username already taken")
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS teachers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		full_name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS study_groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		teacher_id INTEGER,
		FOREIGN KEY (teacher_id) REFERENCES teachers(id)
	);

	CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		full_name TEXT NOT NULL,
		group_id INTEGER,
		FOREIGN KEY (group_id) REFERENCES study_groups(id)
	);

	CREATE TABLE IF NOT EXISTS programs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		FOREIGN KEY (group_id) REFERENCES study_groups(id)
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		group_id INTEGER NOT NULL,
		lesson_date TEXT NOT NULL,
		present INTEGER NOT NULL DEFAULT 0,
		program_id INTEGER,
		UNIQUE (student_id, lesson_date),
		FOREIGN KEY (student_id) REFERENCES students(id)
	);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		group_id INTEGER NOT NULL,
		lesson_date TEXT,
		type TEXT NOT NULL,
		value INTEGER NOT NULL DEFAULT 0,
		comment TEXT NOT NULL DEFAULT '',
		program_id INTEGER,
		FOREIGN KEY (student_id) REFERENCES students(id)
	);

	CREATE TABLE IF NOT EXISTS homeworks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		program_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		FOREIGN KEY (program_id) REFERENCES programs(id)
	);

	CREATE TABLE IF NOT EXISTS homework_submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		homework_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		answer_text TEXT,
		UNIQUE (homework_id, student_id),
		FOREIGN KEY (homework_id) REFERENCES homeworks(id)
	);

	CREATE TABLE IF NOT EXISTS tests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		program_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		max_attempts INTEGER,
		FOREIGN KEY (program_id) REFERENCES programs(id)
	);

	CREATE TABLE IF NOT EXISTS test_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		test_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (test_id) REFERENCES tests(id)
	);

	CREATE TABLE IF NOT EXISTS test_answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		is_correct INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (question_id) REFERENCES test_questions(id)
	);

	CREATE TABLE IF NOT EXISTS test_submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		test_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		attempt_no INTEGER NOT NULL,
		score INTEGER,
		max_score INTEGER,
		is_approved_for_retake INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		UNIQUE (student_id, test_id, attempt_no),
		FOREIGN KEY (test_id) REFERENCES tests(id)
	);

	CREATE TABLE IF NOT EXISTS test_submission_answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		selected_answer_ids TEXT,
		answer_text TEXT,
		FOREIGN KEY (submission_id) REFERENCES test_submissions(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		student_id INTEGER,
		teacher_id INTEGER,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_student ON feedback(student_id);
	CREATE INDEX IF NOT EXISTS idx_feedback_group ON feedback(group_id);
	CREATE INDEX IF NOT EXISTS idx_attendance_group ON attendance(group_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// CreateTeacher stores a teacher.
func (s *Store) CreateTeacher(ctx context.Context, t model.Teacher) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO teachers (full_name) VALUES (?)`, t.FullName)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTeacher returns a teacher by ID.
func (s *Store) GetTeacher(ctx context.Context, id int64) (model.Teacher, error) {
	var t model.Teacher
	err := s.db.QueryRowContext(ctx, `SELECT id, full_name FROM teachers WHERE id = ?`, id).
		Scan(&t.ID, &t.FullName)
	return t, notFound(err)
}

// CreateGroup stores a group.
func (s *Store) CreateGroup(ctx context.Context, g model.Group) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO study_groups (name, teacher_id) VALUES (?, ?)`, g.Name, g.TeacherID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetGroup returns a group by ID.
func (s *Store) GetGroup(ctx context.Context, id int64) (model.Group, error) {
	var g model.Group
	err := s.db.QueryRowContext(ctx, `SELECT id, name, teacher_id FROM study_groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.TeacherID)
	return g, notFound(err)
}

// ListGroupsByTeacher returns the groups led by a teacher.
func (s *Store) ListGroupsByTeacher(ctx context.Context, teacherID int64) ([]model.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, teacher_id FROM study_groups WHERE teacher_id = ? ORDER BY id`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.TeacherID); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CreateStudent stores a student.
func (s *Store) CreateStudent(ctx context.Context, st model.Student) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO students (full_name, group_id) VALUES (?, ?)`, st.FullName, st.GroupID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetStudent returns a student by ID.
func (s *Store) GetStudent(ctx context.Context, id int64) (model.Student, error) {
	var st model.Student
	err := s.db.QueryRowContext(ctx, `SELECT id, full_name, group_id FROM students WHERE id = ?`, id).
		Scan(&st.ID, &st.FullName, &st.GroupID)
	return st, notFound(err)
}

// ListStudentsByGroup returns the members of a group.
func (s *Store) ListStudentsByGroup(ctx context.Context, groupID int64) ([]model.Student, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, full_name, group_id FROM students WHERE group_id = ? ORDER BY id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []model.Student
	for rows.Next() {
		var st model.Student
		if err := rows.Scan(&st.ID, &st.FullName, &st.GroupID); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// CreateProgram stores a learning program of a group.
func (s *Store) CreateProgram(ctx context.Context, p model.Program) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO programs (group_id, name) VALUES (?, ?)`, p.GroupID, p.Name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
