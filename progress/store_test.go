package progress

import (
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "progress_test.db")
	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNotesEmpty(t *testing.T) {
	s := testStore(t)

	notes, err := s.Notes("run-x")
	if err != nil {
		t.Fatalf("Notes() error: %v", err)
	}
	if notes == nil {
		t.Fatal("Notes() = nil, want empty slice")
	}
	if len(notes) != 0 {
		t.Errorf("Notes() returned %d entries, want 0", len(notes))
	}
}

func TestRecordAndNotes(t *testing.T) {
	s := testStore(t)

	if err := s.Record("run-1", 1, "Step 1: checked the logs"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := s.Record("run-1", 2, "Step 2: found the fault"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := s.Record("run-2", 1, "Step 1: unrelated run"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	notes, err := s.Notes("run-1")
	if err != nil {
		t.Fatalf("Notes() error: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("Notes() returned %d entries, want 2", len(notes))
	}
	if notes[0].Step != 1 || notes[1].Step != 2 {
		t.Errorf("expected step order [1 2], got [%d %d]", notes[0].Step, notes[1].Step)
	}
	if notes[1].Note != "Step 2: found the fault" {
		t.Errorf("Notes()[1].Note = %q", notes[1].Note)
	}
	if notes[0].CreatedAt.IsZero() {
		t.Error("expected a recorded timestamp")
	}
}

func TestRecordUpsert(t *testing.T) {
	s := testStore(t)

	if err := s.Record("run-1", 1, "first attempt"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := s.Record("run-1", 1, "second attempt"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	notes, err := s.Notes("run-1")
	if err != nil {
		t.Fatalf("Notes() error: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("Notes() returned %d entries, want 1", len(notes))
	}
	if notes[0].Note != "second attempt" {
		t.Errorf("Notes()[0].Note = %q, want %q", notes[0].Note, "second attempt")
	}
}

func TestLatest(t *testing.T) {
	s := testStore(t)

	entry, err := s.Latest("run-x")
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if entry != nil {
		t.Errorf("Latest() = %+v, want nil for an unknown run", entry)
	}

	if err := s.Record("run-1", 1, "early"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := s.Record("run-1", 7, "late"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	entry, err = s.Latest("run-1")
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if entry == nil || entry.Step != 7 || entry.Note != "late" {
		t.Errorf("Latest() = %+v, want step 7", entry)
	}
}

func TestRuns(t *testing.T) {
	s := testStore(t)

	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs() error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Runs() returned %d ids, want 0", len(runs))
	}

	if err := s.Record("run-a", 1, "a"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := s.Record("run-b", 1, "b"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	runs, err = s.Runs()
	if err != nil {
		t.Fatalf("Runs() error: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("Runs() returned %d ids, want 2", len(runs))
	}
}

func TestPurge(t *testing.T) {
	s := testStore(t)

	if err := s.Record("run-1", 1, "note"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := s.Purge("run-1"); err != nil {
		t.Fatalf("Purge() error: %v", err)
	}

	notes, err := s.Notes("run-1")
	if err != nil {
		t.Fatalf("Notes() error: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("expected no notes after purge, got %d", len(notes))
	}

	if err := s.Purge("run-never"); err != nil {
		t.Errorf("Purge() of an unknown run should not error, got %v", err)
	}
}
