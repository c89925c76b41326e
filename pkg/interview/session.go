package interview

import (
	"fmt"
	"strings"
	"time"
)

// Phase is the orchestrator-visible lifecycle state of one interview session.
type Phase string

const (
	PhaseCreated       Phase = "created"
	PhaseIdle          Phase = "idle"
	PhaseBuffering     Phase = "buffering"
	PhaseAwaitingFinal Phase = "awaiting_final"
	PhaseEnded         Phase = "ended"
)

// Plan seeds the conversation with questions and topics derived from the
// pre-interview document analysis.
type Plan struct {
	InitialQuestions []string
	Topics           []string
}

// FirstQuestion returns the opening question, falling back to a generic one
// when the plan is empty.
func (p Plan) FirstQuestion() string {
	for _, q := range p.InitialQuestions {
		if strings.TrimSpace(q) != "" {
			return q
		}
	}
	return "Hello, please tell me about yourself."
}

// Turn is one committed exchange: the candidate's full utterance and the
// interviewer's definitive response. History is append-only and strictly
// ordered by Generation.
type Turn struct {
	User       string
	Assistant  string
	Generation uint64
	Timestamp  time.Time
}

// Session is the authoritative record of one interview's conversation and
// in-flight-work bookkeeping. All mutation happens under the registry's
// per-session lock; nothing here synchronizes on its own.
type Session struct {
	ID        string
	Plan      Plan
	StartedAt time.Time

	phase   Phase
	history []Turn

	// Current-turn bookkeeping.
	chunks         []string
	buffer         string
	generation     uint64
	finalInFlight  bool
	finalUtterance string
	lastDraft      string

	transcript strings.Builder

	conn *Conn
}

func newSession(id string, plan Plan, now time.Time) *Session {
	return &Session{
		ID:        id,
		Plan:      plan,
		StartedAt: now,
		phase:     PhaseCreated,
	}
}

func (s *Session) Phase() Phase        { return s.phase }
func (s *Session) Generation() uint64  { return s.generation }
func (s *Session) FinalInFlight() bool { return s.finalInFlight }
func (s *Session) LastDraft() string   { return s.lastDraft }
func (s *Session) Buffer() string      { return s.buffer }
func (s *Session) Transcript() string  { return s.transcript.String() }
func (s *Session) Connection() *Conn   { return s.conn }

// History returns a copy; the backing slice is never handed out.
func (s *Session) History() []Turn {
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// appendChunk accumulates a partial fragment into the current turn's buffer.
func (s *Session) appendChunk(text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	s.chunks = append(s.chunks, trimmed)
	if s.buffer == "" {
		s.buffer = trimmed
		return
	}
	s.buffer = s.buffer + " " + trimmed
}

// clearBuffer drops the accumulated fragments once the utterance has been
// handed off to a Final job.
func (s *Session) clearBuffer() {
	s.chunks = nil
	s.buffer = ""
}

// commitTurn appends the definitive exchange for the current generation and
// advances to the next one. This is the only place generation moves.
func (s *Session) commitTurn(user, assistant string, now time.Time) Turn {
	turn := Turn{
		User:       user,
		Assistant:  assistant,
		Generation: s.generation,
		Timestamp:  now,
	}
	s.history = append(s.history, turn)
	fmt.Fprintf(&s.transcript, "User: %s\nAI: %s\n", user, assistant)
	s.generation++
	s.clearBuffer()
	s.lastDraft = ""
	s.finalInFlight = false
	s.finalUtterance = ""
	if s.phase == PhaseAwaitingFinal {
		s.phase = PhaseIdle
	}
	return turn
}

// StateSummaryValues reports the fields the client needs to resync.
func (s *Session) StateSummaryValues() (phase string, turns int, generation uint64, awaiting bool) {
	return string(s.phase), len(s.history), s.generation, s.finalInFlight
}

// Record is the serializable snapshot handed to the persistence provider.
type Record struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"started_at"`
	EndedAt    time.Time    `json:"ended_at,omitempty"`
	Phase      string       `json:"phase"`
	Generation uint64       `json:"generation"`
	Topics     []string     `json:"topics,omitempty"`
	History    []TurnRecord `json:"history"`
	Transcript string       `json:"transcript"`
}

type TurnRecord struct {
	User       string    `json:"user"`
	Assistant  string    `json:"assistant"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
}

// Snapshot captures the session for persistence. Safe to call under the
// registry lock; the returned record shares no mutable state.
func (s *Session) Snapshot(now time.Time) Record {
	history := make([]TurnRecord, len(s.history))
	for i, t := range s.history {
		history[i] = TurnRecord{
			User:       t.User,
			Assistant:  t.Assistant,
			Generation: t.Generation,
			Timestamp:  t.Timestamp,
		}
	}
	rec := Record{
		ID:         s.ID,
		StartedAt:  s.StartedAt,
		Phase:      string(s.phase),
		Generation: s.generation,
		Topics:     append([]string(nil), s.Plan.Topics...),
		History:    history,
		Transcript: s.transcript.String(),
	}
	if s.phase == PhaseEnded {
		rec.EndedAt = now
	}
	return rec
}
