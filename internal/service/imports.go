package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/kidsjournal/internal/model"
)

// ErrInvalidTestFile is returned for test files that fail validation.
var ErrInvalidTestFile = errors.New("invalid test file")

// TestStore is the storage used by ImportTests.
type TestStore interface {
	InsertTest(ctx context.Context, def model.TestDefinition) (int64, error)
	GetImportedFileHash(ctx context.Context, name string) (string, error)
	SetImportedFileHash(ctx context.Context, name, hash string) error
}

// ImportResult reports what ImportTests did with one file.
type ImportResult struct {
	Name    string  `json:"name"`
	Skipped bool    `json:"skipped"`
	Reason  string  `json:"reason,omitempty"`
	TestIDs []int64 `json:"test_ids,omitempty"`
}

// ImportTests loads a JSON array of test definitions. A file is imported
// once: re-importing identical content is skipped, and changed content is
// refused so that existing attempts keep matching their answer keys.
func ImportTests(ctx context.Context, ts TestStore, name string, data []byte) (ImportResult, error) {
	res := ImportResult{Name: name}
	hash := sha256sum(data)
	stored, err := ts.GetImportedFileHash(ctx, name)
	if err != nil {
		return res, fmt.Errorf("check import status for %s: %w", name, err)
	}
	switch {
	case stored == hash:
		slog.Info("test file unchanged, skipping", "name", name)
		res.Skipped, res.Reason = true, "unchanged"
		return res, nil
	case stored != "":
		slog.Warn("test file changed since last import, skipping to keep existing attempts valid", "name", name)
		res.Skipped, res.Reason = true, "changed"
		return res, nil
	}

	var imports []model.TestImport
	if err := json.Unmarshal(data, &imports); err != nil {
		return res, fmt.Errorf("%w: parse %s: %v", ErrInvalidTestFile, name, err)
	}
	for i, ti := range imports {
		if err := validateImport(ti); err != nil {
			return res, fmt.Errorf("%w: %s test #%d: %v", ErrInvalidTestFile, name, i+1, err)
		}
	}

	for _, ti := range imports {
		id, err := ts.InsertTest(ctx, ti.Definition())
		if err != nil {
			return res, fmt.Errorf("insert test from %s: %w", name, err)
		}
		res.TestIDs = append(res.TestIDs, id)
	}
	if err := ts.SetImportedFileHash(ctx, name, hash); err != nil {
		return res, fmt.Errorf("record import for %s: %w", name, err)
	}
	slog.Info("imported tests", "name", name, "count", len(imports))
	return res, nil
}

func validateImport(ti model.TestImport) error {
	if ti.ProgramID <= 0 {
		return errors.New("program_id is required")
	}
	if ti.Title == "" {
		return errors.New("title is required")
	}
	if ti.MaxAttempts != nil && *ti.MaxAttempts < 1 {
		return errors.New("max_attempts must be at least 1")
	}
	if len(ti.Questions) == 0 {
		return errors.New("no questions")
	}
	for j, q := range ti.Questions {
		if !q.Type.Valid() {
			return fmt.Errorf("question %d: unknown type %q", j+1, q.Type)
		}
		if q.Type.AutoGradable() && len(q.Answers) == 0 {
			return fmt.Errorf("question %d: choice question without answers", j+1)
		}
	}
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
