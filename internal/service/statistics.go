package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/kidsjournal/internal/model"
	"github.com/pavelanni/kidsjournal/internal/progress"
)

// studentLedger reads everything needed for one student's statistics.
// Homeworks and tests come from the programs of the student's group.
func (s *Service) studentLedger(ctx context.Context, st model.Student) (progress.StudentLedger, error) {
	l := progress.StudentLedger{StudentID: st.ID}
	var err error
	if l.Attendance, err = s.ledger.ListAttendanceByStudent(ctx, st.ID); err != nil {
		return l, fmt.Errorf("list attendance: %w", err)
	}
	if l.Feedback, err = s.ledger.ListFeedbackByStudent(ctx, st.ID); err != nil {
		return l, fmt.Errorf("list feedback: %w", err)
	}
	if st.GroupID == nil {
		return l, nil
	}

	if l.Homeworks, err = s.ledger.ListHomeworksByGroup(ctx, *st.GroupID); err != nil {
		return l, fmt.Errorf("list homeworks: %w", err)
	}
	if l.HomeworkSubmissions, err = s.ledger.ListHomeworkSubmissionsByStudent(ctx, st.ID); err != nil {
		return l, fmt.Errorf("list homework submissions: %w", err)
	}
	tests, err := s.ledger.ListTestsByGroup(ctx, *st.GroupID)
	if err != nil {
		return l, fmt.Errorf("list tests: %w", err)
	}
	subs, err := s.ledger.ListSubmissionsByStudent(ctx, st.ID)
	if err != nil {
		return l, fmt.Errorf("list submissions: %w", err)
	}
	byTest := make(map[int64][]model.TestSubmission)
	for _, sub := range subs {
		byTest[sub.TestID] = append(byTest[sub.TestID], sub)
	}
	for _, def := range tests {
		l.Tests = append(l.Tests, progress.TestHistory{Test: def, Submissions: byTest[def.ID]})
	}
	return l, nil
}

// StudentStatistics computes a student's progress summary.
func (s *Service) StudentStatistics(ctx context.Context, studentID int64) (model.StudentStatistics, error) {
	st, err := s.Student(ctx, studentID)
	if err != nil {
		return model.StudentStatistics{}, err
	}
	l, err := s.studentLedger(ctx, st)
	if err != nil {
		return model.StudentStatistics{}, err
	}
	return progress.StudentStatistics(l), nil
}

// memberStatistics computes statistics for every member of a group, reading
// up to s.workers members' ledgers at a time. Order follows members.
func (s *Service) memberStatistics(ctx context.Context, members []model.Student) ([]progress.MemberStatistics, error) {
	out := make([]progress.MemberStatistics, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, m := range members {
		g.Go(func() error {
			l, err := s.studentLedger(gctx, m)
			if err != nil {
				return fmt.Errorf("student %d: %w", m.ID, err)
			}
			out[i] = progress.MemberStatistics{Student: m, Stats: progress.StudentStatistics(l)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// groupSnapshot loads a group's members with their statistics and the
// group-wide lesson timeline.
func (s *Service) groupSnapshot(ctx context.Context, group model.Group) (progress.Timeline, []progress.MemberStatistics, error) {
	members, err := s.ledger.ListStudentsByGroup(ctx, group.ID)
	if err != nil {
		return progress.Timeline{}, nil, fmt.Errorf("list members of group %d: %w", group.ID, err)
	}
	attendance, err := s.ledger.ListAttendanceByGroup(ctx, group.ID)
	if err != nil {
		return progress.Timeline{}, nil, fmt.Errorf("list group attendance: %w", err)
	}
	feedback, err := s.ledger.ListFeedbackByGroup(ctx, group.ID)
	if err != nil {
		return progress.Timeline{}, nil, fmt.Errorf("list group feedback: %w", err)
	}
	stats, err := s.memberStatistics(ctx, members)
	if err != nil {
		return progress.Timeline{}, nil, err
	}
	return progress.BuildTimeline(attendance, feedback), stats, nil
}

// TeacherStatistics summarizes every group led by a teacher.
func (s *Service) TeacherStatistics(ctx context.Context, teacherID int64) (model.TeacherStatistics, error) {
	if _, err := s.ledger.GetTeacher(ctx, teacherID); err != nil {
		return model.TeacherStatistics{}, fmt.Errorf("get teacher %d: %w", teacherID, err)
	}
	groups, err := s.ledger.ListGroupsByTeacher(ctx, teacherID)
	if err != nil {
		return model.TeacherStatistics{}, fmt.Errorf("list groups: %w", err)
	}
	summaries := make([]model.TeacherGroupStatistics, 0, len(groups))
	for _, g := range groups {
		timeline, members, err := s.groupSnapshot(ctx, g)
		if err != nil {
			return model.TeacherStatistics{}, err
		}
		summaries = append(summaries, progress.TeacherGroupStatistics(g, timeline, members))
	}
	return progress.TeacherStatistics(teacherID, summaries), nil
}

// GroupOverview lists the members of a group with their progress.
func (s *Service) GroupOverview(ctx context.Context, groupID int64) (model.GroupOverview, error) {
	g, err := s.Group(ctx, groupID)
	if err != nil {
		return model.GroupOverview{}, err
	}
	timeline, members, err := s.groupSnapshot(ctx, g)
	if err != nil {
		return model.GroupOverview{}, err
	}
	return progress.GroupOverview(g, timeline, members), nil
}

// StudentJournal returns a student's lessons, newest first.
func (s *Service) StudentJournal(ctx context.Context, studentID int64) ([]model.JournalDay, error) {
	if _, err := s.Student(ctx, studentID); err != nil {
		return nil, err
	}
	attendance, err := s.ledger.ListAttendanceByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	feedback, err := s.ledger.ListFeedbackByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return progress.Journal(attendance, feedback), nil
}

// BestResults returns the authoritative result of a student at every test
// of the student's group.
func (s *Service) BestResults(ctx context.Context, studentID int64) ([]model.TestResult, error) {
	st, err := s.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	l, err := s.studentLedger(ctx, st)
	if err != nil {
		return nil, err
	}
	results := make([]model.TestResult, 0, len(l.Tests))
	for _, th := range l.Tests {
		r := model.TestResult{TestID: th.Test.ID, Title: th.Test.Title, Attempts: len(th.Submissions)}
		if best, ok := progress.BestSubmission(th.Submissions); ok {
			r.Best = &best
		}
		results = append(results, r)
	}
	return results, nil
}

// ExportGroup collects every member's statistics for export.
func (s *Service) ExportGroup(ctx context.Context, groupID int64) (model.GroupExport, error) {
	g, err := s.Group(ctx, groupID)
	if err != nil {
		return model.GroupExport{}, err
	}
	members, err := s.ledger.ListStudentsByGroup(ctx, groupID)
	if err != nil {
		return model.GroupExport{}, fmt.Errorf("list members of group %d: %w", groupID, err)
	}
	stats, err := s.memberStatistics(ctx, members)
	if err != nil {
		return model.GroupExport{}, err
	}
	export := model.GroupExport{
		GroupID:    g.ID,
		GroupName:  g.Name,
		ExportedAt: s.now().UTC(),
		Students:   make([]model.StudentExport, 0, len(stats)),
	}
	for _, m := range stats {
		export.Students = append(export.Students, model.StudentExport{FullName: m.Student.FullName, Statistics: m.Stats})
	}
	return export, nil
}
