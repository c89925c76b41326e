package interview

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/parleylabs/interviewd/pkg/interview/protocol"
)

// Orchestrator composes the registry, dispatcher, and connection adapters
// into the public session operations: start, attach, input, end. It is the
// only entry point the request layer talks to.
//
// All session mutation happens inside Registry.With; job dispatch and
// connection teardown happen after the lock is released.
type Orchestrator struct {
	registry   *Registry
	dispatcher *Dispatcher
	connCfg    ConnConfig
	logger     *slog.Logger
	now        func() time.Time
}

func NewOrchestrator(registry *Registry, dispatcher *Dispatcher, connCfg ConnConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		registry:   registry,
		dispatcher: dispatcher,
		connCfg:    connCfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Start creates a new session seeded with the interview plan and returns its id.
func (o *Orchestrator) Start(plan Plan) string {
	id := o.registry.Create(plan)
	o.logger.Info("interview started", "session_id", id, "initial_questions", len(plan.InitialQuestions))
	return id
}

// Attach binds a live connection to the session. Any previously attached
// connection is evicted and receives its close notification before the new
// connection sees a single frame. The first attach activates the session and
// delivers the opening question; reattaches deliver a state summary plus the
// current draft so the client can resync.
func (o *Orchestrator) Attach(id string, ws WSConn) (*Conn, error) {
	conn := NewConn(ws, o.connCfg, o.logger)

	var (
		evicted   *Conn
		first     bool
		plan      Plan
		summary   protocol.StateSummary
		lastDraft string
	)
	err := o.registry.With(id, func(s *Session) error {
		evicted = s.conn
		s.conn = conn
		if s.phase == PhaseCreated {
			s.phase = PhaseIdle
			first = true
		}
		plan = s.Plan
		lastDraft = s.lastDraft
		phase, turns, generation, awaiting := s.StateSummaryValues()
		summary = protocol.StateSummary{
			InterviewID: s.ID,
			State:       phase,
			Turns:       turns,
			Generation:  generation,
			AwaitingLLM: awaiting,
		}
		return nil
	})
	if err != nil {
		conn.Close(nil)
		return nil, err
	}

	if evicted != nil {
		o.logger.Info("evicting previous connection", "session_id", id)
		evicted.Close(&protocol.ServerMessage{Type: protocol.TypeError, Payload: "Another connection opened."})
	}

	if first {
		if err := conn.SendPriority(protocol.ServerMessage{
			Type:    protocol.TypeResponse,
			Payload: plan.FirstQuestion(),
		}); err != nil {
			o.Detach(id, conn)
			return nil, err
		}
		return conn, nil
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return conn, fmt.Errorf("encode state summary: %w", err)
	}
	if err := conn.Send(protocol.ServerMessage{Type: protocol.TypeInterviewState, Payload: string(payload)}); err != nil {
		o.Detach(id, conn)
		return nil, err
	}
	if lastDraft != "" {
		_ = conn.Send(protocol.ServerMessage{Type: protocol.TypeResponseDraft, Payload: lastDraft})
	}
	return conn, nil
}

// Detach clears the connection reference if conn is still the attached one.
// The session stays alive; reconnection policy belongs to the host.
func (o *Orchestrator) Detach(id string, conn *Conn) {
	_ = o.registry.With(id, func(s *Session) error {
		if s.conn == conn {
			s.conn = nil
		}
		return nil
	})
	if conn != nil {
		conn.Close(nil)
	}
}

// Input feeds one transcribed fragment into the session.
//
// A non-final fragment accumulates into the buffer and dispatches a draft job
// stamped with the current generation. A final fragment completes the
// utterance: the full buffer is handed to a Final job and the buffer is
// cleared. A second final while one is outstanding violates the caller
// contract and is rejected with ErrInvalidTransition, leaving state unchanged.
func (o *Orchestrator) Input(id, text string, isFinal bool, timestamp float64) error {
	var (
		generation uint64
		buffer     string
		utterance  string
		topics     []string
		history    []Turn
	)
	err := o.registry.With(id, func(s *Session) error {
		if s.phase == PhaseCreated {
			return fmt.Errorf("%w: input before first connection attach", ErrInvalidTransition)
		}
		if isFinal {
			if s.finalInFlight {
				return fmt.Errorf("%w: a final is already in flight for generation %d", ErrInvalidTransition, s.generation)
			}
			s.appendChunk(text)
			s.phase = PhaseAwaitingFinal
			s.finalInFlight = true
			utterance = s.buffer
			s.finalUtterance = utterance
			topics = s.Plan.Topics
			s.clearBuffer()
		} else {
			s.appendChunk(text)
			s.phase = PhaseBuffering
			buffer = s.buffer
		}
		generation = s.generation
		history = s.History()
		return nil
	})
	if err != nil {
		return err
	}

	if isFinal {
		o.logger.Debug("dispatching final", "session_id", id, "generation", generation, "timestamp", timestamp)
		o.dispatcher.DispatchFinal(id, generation, utterance, topics, history)
		return nil
	}
	o.dispatcher.DispatchChunk(id, generation, text, buffer, history)
	return nil
}

// End terminates the session: the connection receives a terminal message and
// is closed, the id is tombstoned so late job results are dropped, and the
// final record is returned for the persistence handoff. Ending an unknown or
// already-ended id reports ErrSessionNotFound.
func (o *Orchestrator) End(id string) (Record, error) {
	var conn *Conn
	rec, err := o.registry.End(id, func(s *Session) {
		conn = s.conn
		s.conn = nil
	})
	if err != nil {
		return Record{}, err
	}
	if conn != nil {
		conn.Close(&protocol.ServerMessage{Type: protocol.TypeEnd, Payload: "Interview completed."})
	}
	o.logger.Info("interview ended", "session_id", id, "turns", len(rec.History))
	return rec, nil
}

// EndAll terminates every live session, for graceful shutdown sweeps.
func (o *Orchestrator) EndAll() []Record {
	ids := o.registry.IDs()
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := o.End(id)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}
