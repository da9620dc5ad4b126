package jobregistry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when no record exists for a job number.
var ErrNotFound = errors.New("job not found")

// Store persists and loads JobRecords from an on-disk directory.
//
// Directory layout:
//
//	<root>/<job_number>/job.json
//
// Root is expected to be under the app data dir.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: strings.TrimSpace(root)}
}

func (s *Store) RootDir() string {
	return s.root
}

func (s *Store) JobDir(jobNumber int) string {
	return filepath.Join(s.root, strconv.Itoa(jobNumber))
}

func (s *Store) JobPath(jobNumber int) string {
	return filepath.Join(s.JobDir(jobNumber), "job.json")
}

func (s *Store) ensureRoot() error {
	if strings.TrimSpace(s.root) == "" {
		return fmt.Errorf("job registry root dir is empty")
	}
	return os.MkdirAll(s.root, 0700)
}

// Write atomically replaces the record's job.json.
func (s *Store) Write(record *JobRecord) error {
	if record == nil {
		return fmt.Errorf("job record is nil")
	}
	if record.JobNumber <= 0 {
		return fmt.Errorf("job_number is required")
	}
	if err := s.ensureRoot(); err != nil {
		return err
	}

	jobDir := s.JobDir(record.JobNumber)
	if err := os.MkdirAll(jobDir, 0700); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}

	b, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}
	b = append(b, '\n')

	// CreateTemp opens with 0600.
	tmp, err := os.CreateTemp(jobDir, "job.json.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp job file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp job file: %w", err)
	}

	if err := os.Rename(tmpName, s.JobPath(record.JobNumber)); err != nil {
		return fmt.Errorf("rename job file: %w", err)
	}
	return nil
}

// Get loads the record for jobNumber. Missing records yield ErrNotFound.
func (s *Store) Get(jobNumber int) (*JobRecord, error) {
	if jobNumber <= 0 {
		return nil, fmt.Errorf("job_number is required")
	}
	b, err := os.ReadFile(s.JobPath(jobNumber))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("job %d: %w", jobNumber, ErrNotFound)
		}
		return nil, err
	}

	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" {
		return nil, fmt.Errorf("job.json is empty")
	}

	var record JobRecord
	if err := json.Unmarshal([]byte(trimmed), &record); err != nil {
		return nil, fmt.Errorf("parse job.json: %w", err)
	}
	return &record, nil
}

// List returns all readable records, newest first. Unreadable entries are
// skipped.
func (s *Store) List() ([]JobRecord, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read jobs root: %w", err)
	}

	out := make([]JobRecord, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		r, err := s.Get(n)
		if err != nil {
			continue
		}
		out = append(out, *r)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

// Remove deletes the job directory.
func (s *Store) Remove(jobNumber int) error {
	if jobNumber <= 0 {
		return fmt.Errorf("job_number is required")
	}
	return os.RemoveAll(s.JobDir(jobNumber))
}

// Expired returns terminal or interrupted records that ended (or were
// created, when no end time is recorded) before cutoff.
func (s *Store) Expired(cutoff time.Time) ([]JobRecord, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []JobRecord
	for _, r := range all {
		if !r.State.Terminal() && r.State != JobStateInterrupted {
			continue
		}
		ref := r.CreatedAt
		if r.EndedAt != nil {
			ref = *r.EndedAt
		}
		if ref.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}
