package interview

import (
	"errors"
	"testing"
)

func TestRegistryCreateAndWith(t *testing.T) {
	r := NewRegistry()
	id := r.Create(Plan{InitialQuestions: []string{"Tell me about yourself."}})
	if id == "" {
		t.Fatal("Create returned empty id")
	}

	var phase Phase
	err := r.With(id, func(s *Session) error {
		phase = s.Phase()
		return nil
	})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
	if phase != PhaseCreated {
		t.Fatalf("new session phase = %q, want %q", phase, PhaseCreated)
	}
	if got := r.Count(); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}
}

func TestRegistryWithUnknownID(t *testing.T) {
	r := NewRegistry()
	err := r.With("missing", func(*Session) error { return nil })
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("With unknown id = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistryEndTombstones(t *testing.T) {
	r := NewRegistry()
	id := r.Create(Plan{})

	rec, err := r.End(id, nil)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if rec.ID != id {
		t.Fatalf("record id = %q, want %q", rec.ID, id)
	}
	if rec.Phase != string(PhaseEnded) {
		t.Fatalf("record phase = %q, want %q", rec.Phase, PhaseEnded)
	}
	if !r.Tombstoned(id) {
		t.Fatal("ended id is not tombstoned")
	}
	if got := r.Count(); got != 0 {
		t.Fatalf("Count after end = %d, want 0", got)
	}

	if err := r.With(id, func(*Session) error { return nil }); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("With after end = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistryEndTwice(t *testing.T) {
	r := NewRegistry()
	id := r.Create(Plan{})

	if _, err := r.End(id, nil); err != nil {
		t.Fatalf("first End: %v", err)
	}
	if _, err := r.End(id, nil); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second End = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistryEndRunsCallbackUnderLock(t *testing.T) {
	r := NewRegistry()
	id := r.Create(Plan{})

	var sawPhase Phase
	_, err := r.End(id, func(s *Session) {
		sawPhase = s.Phase()
	})
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if sawPhase != PhaseEnded {
		t.Fatalf("callback saw phase %q, want %q", sawPhase, PhaseEnded)
	}
}

func TestRegistryIDs(t *testing.T) {
	r := NewRegistry()
	a := r.Create(Plan{})
	b := r.Create(Plan{})

	ids := r.IDs()
	if len(ids) != 2 {
		t.Fatalf("IDs returned %d entries, want 2", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[a] || !seen[b] {
		t.Fatalf("IDs = %v, want both %q and %q", ids, a, b)
	}
}
