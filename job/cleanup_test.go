package job

import (
	"context"
	"testing"
	"time"

	"planlux/hale-sync/config"
	outboxtest "planlux/hale-sync/outbox/test"
)

type recordingDeleter struct {
	olderThan time.Time
	rows      int64
}

func (r *recordingDeleter) DeleteProcessed(_ context.Context, olderThan time.Time) (int64, error) {
	r.olderThan = olderThan
	return r.rows, nil
}

func TestCleanup_Execute(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	repo := &recordingDeleter{rows: 100}
	j := newCleanup(repo, 720*time.Hour)
	j.now = func() time.Time { return now }

	rows, err := j.Execute(context.Background())
	if err != nil {
		t.Errorf("unexpected error received: %s", err)
	}
	if rows != 100 {
		t.Errorf("expected 100 deleted rows but got %d", rows)
	}
	if exp := now.Add(-720 * time.Hour); !repo.olderThan.Equal(exp) {
		t.Errorf("expected records older than %s to be deleted, got %s", exp, repo.olderThan)
	}
}

func TestCleanup_ExecuteWithRepoError(t *testing.T) {
	repo := outboxtest.NewMockStorage()
	repo.ReturnErrors()

	if _, err := newCleanup(repo, time.Hour).Execute(context.Background()); err == nil {
		t.Error("expected an error, but got nil")
	}
}

func TestRunCleanup(t *testing.T) {
	repo := outboxtest.NewMockStorage()
	repo.SetDeletedRowsCount(3)
	cfg := &config.Config{CleanupRetentionHours: 24}

	if code := RunCleanup(context.Background(), repo, cfg); code != 0 {
		t.Errorf("expected exit code 0 but got %d", code)
	}

	repo.ReturnErrors()
	if code := RunCleanup(context.Background(), repo, cfg); code != 1 {
		t.Errorf("expected exit code 1 but got %d", code)
	}
}
