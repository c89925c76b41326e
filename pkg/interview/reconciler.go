package interview

import (
	"errors"
	"log/slog"
	"time"

	"github.com/parleylabs/interviewd/pkg/interview/protocol"
)

// FallbackResponse resolves a Final whose job failed or timed out, so the
// candidate is never left waiting on a wedged turn.
const FallbackResponse = "I'm sorry, I lost my train of thought for a moment. Could you repeat that, please?"

// Reconciler receives asynchronous job completions, decides whether each is
// still valid against the session's current generation, and applies accepted
// ones under the session's exclusive lock. Discarded results are expected,
// not exceptional: they are logged at debug and dropped, never retried.
type Reconciler struct {
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time
}

func NewReconciler(registry *Registry, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// Complete applies one job completion to its session. Unknown and tombstoned
// sessions swallow the result silently: the interview ended before the job
// came back.
func (r *Reconciler) Complete(c Completion) {
	var apply func(*Session) error
	switch c.Kind {
	case KindFinal:
		apply = func(s *Session) error { return r.applyFinal(s, c) }
	case KindChunk:
		apply = func(s *Session) error { return r.applyChunk(s, c) }
	case KindFiller:
		apply = func(s *Session) error { return r.applyFiller(s, c) }
	default:
		r.logger.Warn("completion with unknown job kind dropped", "kind", c.Kind, "session_id", c.SessionID)
		return
	}

	err := r.registry.With(c.SessionID, apply)
	if errors.Is(err, ErrSessionNotFound) {
		r.logger.Debug("completion for ended session dropped",
			"kind", c.Kind, "session_id", c.SessionID, "generation", c.Generation)
		return
	}
	if err != nil {
		r.logger.Warn("failed to apply completion",
			"kind", c.Kind, "session_id", c.SessionID, "generation", c.Generation, "error", err)
	}
}

// ResolveFinalTimeout synthesizes the fallback resolution for a Final that
// missed its deadline. If the real result already landed (or the session
// moved on) the generation guard in applyFinal makes this a no-op.
func (r *Reconciler) ResolveFinalTimeout(sessionID string, generation uint64, utterance string) {
	r.Complete(Completion{
		Kind:       KindFinal,
		SessionID:  sessionID,
		Generation: generation,
		Utterance:  utterance,
		Err:        ErrBackendUnavailable,
	})
}

// applyFinal commits the turn and advances the generation. The guard accepts
// a Final only while its generation is still current and a Final is still
// outstanding; since the generation advances exactly when a Final is applied,
// this both preserves Final-wins precedence over drafts of the same turn and
// stops a late real result from double-appending after the deadline fallback
// already resolved the turn.
func (r *Reconciler) applyFinal(s *Session, c Completion) error {
	if c.Generation != s.generation || !s.finalInFlight {
		r.logger.Debug("stale final result dropped",
			"session_id", s.ID, "job_generation", c.Generation, "generation", s.generation)
		return nil
	}

	text := c.Text
	if c.Err != nil || text == "" {
		if c.Err != nil {
			r.logger.Warn("final job failed, applying fallback response",
				"session_id", s.ID, "generation", c.Generation, "error", c.Err)
		}
		text = FallbackResponse
	}

	utterance := c.Utterance
	if utterance == "" {
		utterance = s.finalUtterance
	}
	s.commitTurn(utterance, text, r.now())

	r.forward(s, protocol.ServerMessage{Type: protocol.TypeResponse, Payload: text}, true)
	return nil
}

// applyChunk updates the draft iff the job's generation is still current.
func (r *Reconciler) applyChunk(s *Session, c Completion) error {
	if c.Generation != s.generation {
		r.logger.Debug("stale draft dropped",
			"session_id", s.ID, "job_generation", c.Generation, "generation", s.generation)
		return nil
	}
	if c.Err != nil || c.Text == "" {
		return nil
	}
	s.lastDraft = c.Text
	r.forward(s, protocol.ServerMessage{Type: protocol.TypeResponseDraft, Payload: c.Text}, false)
	return nil
}

// applyFiller forwards the courtesy message iff the turn it was produced for
// is still the current one. Fillers never touch session state.
func (r *Reconciler) applyFiller(s *Session, c Completion) error {
	if c.Generation != s.generation || c.Err != nil || c.Text == "" {
		return nil
	}
	r.forward(s, protocol.ServerMessage{Type: protocol.TypeFiller, Payload: c.Text}, false)
	return nil
}

// forward pushes a message to the live connection if one is attached. A dead
// connection detaches but never fails the state mutation that produced the
// message.
func (r *Reconciler) forward(s *Session, msg protocol.ServerMessage, priority bool) {
	conn := s.conn
	if conn == nil {
		return
	}
	var err error
	if priority {
		err = conn.SendPriority(msg)
	} else {
		err = conn.Send(msg)
	}
	if err != nil {
		r.logger.Warn("outbound push failed, detaching connection",
			"session_id", s.ID, "type", msg.Type, "error", err)
		s.conn = nil
		// Close waits on the pump; do it off the session lock.
		go conn.Close(nil)
	}
}
