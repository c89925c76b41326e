package interview

import (
	"strings"
	"testing"
	"time"
)

func TestPlanFirstQuestion(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
		want string
	}{
		{"with questions", Plan{InitialQuestions: []string{"Walk me through your resume."}}, "Walk me through your resume."},
		{"skips blank entries", Plan{InitialQuestions: []string{"  ", "Tell me about yourself."}}, "Tell me about yourself."},
		{"empty plan falls back", Plan{}, "Hello, please tell me about yourself."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.plan.FirstQuestion(); got != tt.want {
				t.Fatalf("FirstQuestion = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionAppendChunkJoinsFragments(t *testing.T) {
	s := newSession("s1", Plan{}, time.Now())
	s.appendChunk("I worked at")
	s.appendChunk("  a fintech startup ")
	s.appendChunk("")

	if got := s.Buffer(); got != "I worked at a fintech startup" {
		t.Fatalf("buffer = %q", got)
	}
}

func TestSessionCommitTurn(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newSession("s1", Plan{}, now)
	s.appendChunk("I led the payments team")
	s.phase = PhaseAwaitingFinal
	s.finalInFlight = true
	s.finalUtterance = s.Buffer()
	s.lastDraft = "draft text"

	turn := s.commitTurn("I led the payments team", "What was the team size?", now)

	if turn.Generation != 0 {
		t.Fatalf("first turn generation = %d, want 0", turn.Generation)
	}
	if s.Generation() != 1 {
		t.Fatalf("generation after commit = %d, want 1", s.Generation())
	}
	if s.FinalInFlight() {
		t.Fatal("finalInFlight not cleared")
	}
	if s.Buffer() != "" || s.LastDraft() != "" {
		t.Fatal("buffer and draft not cleared")
	}
	if s.Phase() != PhaseIdle {
		t.Fatalf("phase = %q, want %q", s.Phase(), PhaseIdle)
	}
	if len(s.History()) != 1 {
		t.Fatalf("history length = %d, want 1", len(s.History()))
	}
	if !strings.Contains(s.Transcript(), "User: I led the payments team") {
		t.Fatalf("transcript missing user line: %q", s.Transcript())
	}
	if !strings.Contains(s.Transcript(), "AI: What was the team size?") {
		t.Fatalf("transcript missing assistant line: %q", s.Transcript())
	}
}

func TestSessionHistoryIsACopy(t *testing.T) {
	s := newSession("s1", Plan{}, time.Now())
	s.commitTurn("a", "b", time.Now())

	h := s.History()
	h[0].User = "mutated"

	if s.History()[0].User != "a" {
		t.Fatal("History leaked the backing slice")
	}
}

func TestSessionSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newSession("s1", Plan{Topics: []string{"Go", "Distributed systems"}}, now)
	s.commitTurn("answer one", "question two", now)
	s.phase = PhaseEnded

	end := now.Add(10 * time.Minute)
	rec := s.Snapshot(end)

	if rec.ID != "s1" {
		t.Fatalf("record id = %q", rec.ID)
	}
	if !rec.EndedAt.Equal(end) {
		t.Fatalf("ended_at = %v, want %v", rec.EndedAt, end)
	}
	if rec.Generation != 1 {
		t.Fatalf("generation = %d, want 1", rec.Generation)
	}
	if len(rec.History) != 1 || rec.History[0].Assistant != "question two" {
		t.Fatalf("history = %+v", rec.History)
	}
	if len(rec.Topics) != 2 {
		t.Fatalf("topics = %v", rec.Topics)
	}
}
