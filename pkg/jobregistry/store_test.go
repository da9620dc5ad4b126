package jobregistry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/3leaps/goneos/pkg/neos"
)

func TestStore_WriteGetRoundTrip(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	now := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)
	rec := &JobRecord{
		JobNumber:  123456,
		Password:   "AbCdEf",
		Endpoint:   neos.DefaultEndpoint,
		State:      JobStateRunning,
		Status:     "Running",
		Category:   "milp",
		Solver:     "CPLEX",
		Mode:       "run",
		RunPath:    "/work/model.run",
		ModelPaths: []string{"/work/model.mod"},
		CreatedAt:  now,
	}

	if err := s.Write(rec); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, err := s.Get(123456)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.JobNumber != rec.JobNumber {
		t.Fatalf("job_number mismatch: got=%d want=%d", got.JobNumber, rec.JobNumber)
	}
	if got.State != rec.State {
		t.Fatalf("state mismatch: got=%q want=%q", got.State, rec.State)
	}
	if got.Handle() != (neos.Handle{JobNumber: 123456, Password: "AbCdEf"}) {
		t.Fatalf("handle not persisted: %+v", got.Handle())
	}
	if len(got.ModelPaths) != 1 || got.ModelPaths[0] != "/work/model.mod" {
		t.Fatalf("model paths not persisted: %v", got.ModelPaths)
	}
}

func TestStore_WriteIsOwnerOnly(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Write(&JobRecord{JobNumber: 7, Password: "pw", State: JobStateSubmitted, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	info, err := os.Stat(s.JobPath(7))
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("job.json mode = %o, want 0600", perm)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(s.JobDir(7))
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("unexpected files in job dir: %d", len(entries))
	}
}

func TestStore_WriteRequiresJobNumber(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Write(&JobRecord{}); err == nil {
		t.Fatalf("expected error for missing job number")
	}
	if err := s.Write(nil); err == nil {
		t.Fatalf("expected error for nil record")
	}
	if err := NewStore("  ").Write(&JobRecord{JobNumber: 1}); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Get(99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListSortsNewestFirst(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	t1 := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 1, 19, 13, 0, 0, 0, time.UTC)

	if err := s.Write(&JobRecord{JobNumber: 1, State: JobStateDone, CreatedAt: t1}); err != nil {
		t.Fatalf("Write job 1: %v", err)
	}
	if err := s.Write(&JobRecord{JobNumber: 2, State: JobStateRunning, CreatedAt: t2}); err != nil {
		t.Fatalf("Write job 2: %v", err)
	}
	// Foreign entries are ignored.
	if err := os.MkdirAll(filepath.Join(root, "not-a-job"), 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected job count: %d", len(got))
	}
	if got[0].JobNumber != 2 {
		t.Fatalf("expected newest first, got[0]=%d", got[0].JobNumber)
	}
}

func TestStore_ListMissingRoot(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent"))
	got, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no jobs, got %d", len(got))
	}
}

func TestStore_ExpiredAndRemove(t *testing.T) {
	s := NewStore(t.TempDir())

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	records := []*JobRecord{
		{JobNumber: 1, State: JobStateDone, CreatedAt: old, EndedAt: &old},
		{JobNumber: 2, State: JobStateRunning, CreatedAt: old},
		{JobNumber: 3, State: JobStateFailed, CreatedAt: old, EndedAt: &recent},
		{JobNumber: 4, State: JobStateInterrupted, CreatedAt: old},
	}
	for _, r := range records {
		if err := s.Write(r); err != nil {
			t.Fatalf("Write job %d: %v", r.JobNumber, err)
		}
	}

	expired, err := s.Expired(cutoff)
	if err != nil {
		t.Fatalf("Expired() error: %v", err)
	}
	got := map[int]bool{}
	for _, r := range expired {
		got[r.JobNumber] = true
	}
	if len(got) != 2 || !got[1] || !got[4] {
		t.Fatalf("unexpected expired set: %v", got)
	}

	if err := s.Remove(1); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if _, err := s.Get(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected job 1 removed, got %v", err)
	}
}

func TestStateFromStatus(t *testing.T) {
	cases := map[neos.Status]JobState{
		neos.StatusWaiting: JobStateWaiting,
		neos.StatusRunning: JobStateRunning,
		neos.StatusDone:    JobStateDone,
		"Unknown Job":      JobStateFailed,
		"Bad Password":     JobStateFailed,
	}
	for status, want := range cases {
		if got := StateFromStatus(status); got != want {
			t.Fatalf("StateFromStatus(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestJobRecord_Touch(t *testing.T) {
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	r := &JobRecord{State: JobStateRunning}
	r.Touch(now)
	if r.UpdatedAt == nil || r.EndedAt != nil {
		t.Fatalf("running record: updated=%v ended=%v", r.UpdatedAt, r.EndedAt)
	}

	r.State = JobStateDone
	r.Touch(now.Add(time.Minute))
	if r.EndedAt == nil || !r.EndedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("done record should carry end time, got %v", r.EndedAt)
	}
}
