package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/parleylabs/interviewd/pkg/backend"
	"github.com/parleylabs/interviewd/pkg/interview"
)

// Completer receives finished job results. Implemented by the reconciler.
type Completer interface {
	Complete(c interview.Completion)
}

type Config struct {
	Workers     int
	QueueSize   int
	CallTimeout time.Duration

	// Final jobs are retried on backend failure; drafts and fillers get a
	// single attempt because a retry would arrive too late to matter.
	MaxRetries     int
	RetryBaseDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 500 * time.Millisecond
	}
	return c
}

// Pool executes generation jobs on a fixed set of workers over a bounded
// queue. Submit never blocks; a full queue rejects the job and the caller's
// admission policy decides what that means.
type Pool struct {
	backend   backend.Backend
	completer Completer
	cfg       Config
	logger    *slog.Logger

	queue  chan interview.Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewPool(b backend.Backend, completer Completer, cfg Config, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		backend:   b,
		completer: completer,
		cfg:       cfg,
		logger:    logger,
		queue:     make(chan interview.Job, cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.cfg.Workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Submit enqueues a job without blocking and reports whether it was accepted.
func (p *Pool) Submit(job interview.Job) bool {
	select {
	case <-p.ctx.Done():
		return false
	default:
	}
	select {
	case p.queue <- job:
		return true
	default:
		return false
	}
}

// Shutdown stops accepting jobs and waits for in-flight ones until ctx
// expires. Queued jobs that never ran are simply dropped; their sessions
// resolve through the final-deadline fallback.
func (p *Pool) Shutdown(ctx context.Context) {
	p.stopOnce.Do(func() {
		p.cancel()
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			p.logger.Warn("job pool shutdown timed out with workers still running")
		}
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.queue:
			p.run(job)
		}
	}
}

func (p *Pool) run(job interview.Job) {
	text, err := p.execute(job)
	p.completer.Complete(interview.Completion{
		Kind:       job.Kind,
		SessionID:  job.SessionID,
		Generation: job.Generation,
		Utterance:  job.Utterance,
		Text:       text,
		Err:        err,
	})
}

func (p *Pool) execute(job interview.Job) (string, error) {
	attempts := 1
	if job.Kind == interview.KindFinal {
		attempts = p.cfg.MaxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.cfg.RetryBaseDelay << (attempt - 1)
			select {
			case <-p.ctx.Done():
				return "", p.ctx.Err()
			case <-time.After(delay):
			}
		}

		text, err := p.call(job)
		if err == nil {
			return text, nil
		}
		lastErr = err
		p.logger.Warn("generation call failed",
			"kind", job.Kind, "session_id", job.SessionID, "generation", job.Generation,
			"attempt", attempt+1, "error", err)
		if p.ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (p *Pool) call(job interview.Job) (string, error) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.CallTimeout)
	defer cancel()

	switch job.Kind {
	case interview.KindChunk:
		return p.backend.GenerateDraft(ctx, backend.Request{
			History:   historyMessages(job.History),
			Utterance: job.Buffer,
		})
	case interview.KindFinal:
		return p.backend.GenerateFinal(ctx, backend.Request{
			History:   historyMessages(job.History),
			Utterance: job.Utterance,
			Topics:    job.Topics,
		})
	case interview.KindFiller:
		return p.backend.GenerateFiller(ctx, job.Context, job.Snippet)
	default:
		return "", nil
	}
}

// historyMessages flattens committed turns into the chat transcript the
// backend expects.
func historyMessages(history []interview.Turn) []backend.Message {
	out := make([]backend.Message, 0, 2*len(history))
	for _, t := range history {
		out = append(out,
			backend.Message{Role: backend.RoleUser, Content: t.User},
			backend.Message{Role: backend.RoleAssistant, Content: t.Assistant},
		)
	}
	return out
}
