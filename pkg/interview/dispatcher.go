package interview

import (
	"log/slog"
	"time"
)

type JobKind string

const (
	KindChunk  JobKind = "chunk"
	KindFinal  JobKind = "final"
	KindFiller JobKind = "filler"
)

// Job is an ephemeral work descriptor stamped with the session's generation
// at submission time. The stamp is what lets the reconciler tell live results
// from stale ones.
type Job struct {
	Kind       JobKind
	SessionID  string
	Generation uint64

	// Chunk jobs: the newest fragment plus the buffer accumulated so far.
	Chunk  string
	Buffer string

	// Final jobs: the complete utterance for the turn, plus the plan topics
	// still steering the interview.
	Utterance string
	Topics    []string

	// Filler jobs: trigger context and a short conversation snippet.
	Context string
	Snippet string

	History     []Turn
	SubmittedAt time.Time
}

// Completion is the result of one executed job, delivered to the reconciler.
// Err is set when the backend failed after retries; for Final jobs that still
// resolves the turn via the fallback path.
type Completion struct {
	Kind       JobKind
	SessionID  string
	Generation uint64
	Utterance  string
	Text       string
	Err        error
}

// Submitter hands jobs to the worker pool. Submit must not block; it reports
// whether the job was accepted.
type Submitter interface {
	Submit(job Job) bool
}

// FinalResolver receives the synthesized resolution for a Final job that
// missed its deadline. Implemented by the reconciler.
type FinalResolver interface {
	ResolveFinalTimeout(sessionID string, generation uint64, utterance string)
}

type DispatcherConfig struct {
	// FinalDeadline bounds how long a Final job may stay unresolved before
	// the fallback response is synthesized. Zero disables the timer.
	FinalDeadline time.Duration

	// FillerEnabled dispatches a best-effort filler alongside each Final.
	FillerEnabled bool
}

// Dispatcher turns orchestrator intents into stamped job submissions.
// Admission policy: chunk jobs are unlimited and best-effort, the
// one-final-in-flight gate is enforced by the orchestrator under the session
// lock, and fillers are fire-and-forget. The dispatcher also arms the
// final-deadline timer so an outstanding Final can never wedge a session.
type Dispatcher struct {
	pool     Submitter
	resolver FinalResolver
	cfg      DispatcherConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewDispatcher(pool Submitter, resolver FinalResolver, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		pool:     pool,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// DispatchChunk submits a draft-generation job for a partial utterance.
// Rejection by a saturated pool is not an error: drafts are best-effort.
func (d *Dispatcher) DispatchChunk(sessionID string, generation uint64, chunk, buffer string, history []Turn) {
	ok := d.pool.Submit(Job{
		Kind:        KindChunk,
		SessionID:   sessionID,
		Generation:  generation,
		Chunk:       chunk,
		Buffer:      buffer,
		History:     history,
		SubmittedAt: d.now(),
	})
	if !ok {
		d.logger.Debug("chunk job dropped, pool saturated", "session_id", sessionID, "generation", generation)
	}
}

// DispatchFinal submits the definitive-response job for a complete utterance
// and arms the deadline fallback. Even if the pool rejects the job the timer
// is armed, so finalInFlight is always eventually cleared.
func (d *Dispatcher) DispatchFinal(sessionID string, generation uint64, utterance string, topics []string, history []Turn) {
	ok := d.pool.Submit(Job{
		Kind:        KindFinal,
		SessionID:   sessionID,
		Generation:  generation,
		Utterance:   utterance,
		Topics:      topics,
		History:     history,
		SubmittedAt: d.now(),
	})
	if !ok {
		d.logger.Warn("final job rejected by pool, relying on deadline fallback",
			"session_id", sessionID, "generation", generation)
	}
	if d.cfg.FinalDeadline > 0 && d.resolver != nil {
		time.AfterFunc(d.cfg.FinalDeadline, func() {
			d.resolver.ResolveFinalTimeout(sessionID, generation, utterance)
		})
	}

	if d.cfg.FillerEnabled {
		d.DispatchFiller(sessionID, generation, "after_user_pause", utterance)
	}
}

// DispatchFiller submits a best-effort courtesy-message job. Failures and
// rejections are swallowed.
func (d *Dispatcher) DispatchFiller(sessionID string, generation uint64, context, snippet string) {
	_ = d.pool.Submit(Job{
		Kind:        KindFiller,
		SessionID:   sessionID,
		Generation:  generation,
		Context:     context,
		Snippet:     snippet,
		SubmittedAt: d.now(),
	})
}
