package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/parleylabs/interviewd/pkg/backend"
	"github.com/parleylabs/interviewd/pkg/interview"
)

type fakeBackend struct {
	mu         sync.Mutex
	finalCalls int
	failFinals int
	draftCalls int
	failDrafts bool

	draft  string
	final  string
	filler string
}

func (f *fakeBackend) GenerateDraft(ctx context.Context, req backend.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draftCalls++
	if f.failDrafts {
		return "", errors.New("transient upstream failure")
	}
	return f.draft, nil
}

func (f *fakeBackend) GenerateFinal(ctx context.Context, req backend.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalCalls++
	if f.finalCalls <= f.failFinals {
		return "", errors.New("transient upstream failure")
	}
	return f.final, nil
}

func (f *fakeBackend) GenerateFiller(ctx context.Context, triggerContext, snippet string) (string, error) {
	return f.filler, nil
}

type recordingCompleter struct {
	mu          sync.Mutex
	completions []interview.Completion
	notify      chan struct{}
}

func newRecordingCompleter() *recordingCompleter {
	return &recordingCompleter{notify: make(chan struct{}, 16)}
}

func (r *recordingCompleter) Complete(c interview.Completion) {
	r.mu.Lock()
	r.completions = append(r.completions, c)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *recordingCompleter) wait(t *testing.T) interview.Completion {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("no completion arrived")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completions[len(r.completions)-1]
}

func testPool(t *testing.T, be backend.Backend, completer Completer, cfg Config) *Pool {
	t.Helper()
	p := NewPool(be, completer, cfg, nil)
	p.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		p.Shutdown(ctx)
	})
	return p
}

func TestPoolExecutesChunkJob(t *testing.T) {
	be := &fakeBackend{draft: "a draft reply"}
	completer := newRecordingCompleter()
	p := testPool(t, be, completer, Config{Workers: 1, RetryBaseDelay: time.Millisecond})

	ok := p.Submit(interview.Job{
		Kind:       interview.KindChunk,
		SessionID:  "s1",
		Generation: 2,
		Buffer:     "partial speech",
	})
	if !ok {
		t.Fatal("Submit rejected the job")
	}

	c := completer.wait(t)
	if c.Kind != interview.KindChunk || c.SessionID != "s1" || c.Generation != 2 {
		t.Fatalf("completion = %+v", c)
	}
	if c.Text != "a draft reply" || c.Err != nil {
		t.Fatalf("completion result = %q, %v", c.Text, c.Err)
	}
}

func TestPoolRetriesFinalJobs(t *testing.T) {
	be := &fakeBackend{final: "the real answer", failFinals: 2}
	completer := newRecordingCompleter()
	p := testPool(t, be, completer, Config{Workers: 1, MaxRetries: 2, RetryBaseDelay: time.Millisecond})

	p.Submit(interview.Job{Kind: interview.KindFinal, SessionID: "s1", Utterance: "u"})

	c := completer.wait(t)
	if c.Err != nil {
		t.Fatalf("final failed after retries: %v", c.Err)
	}
	if c.Text != "the real answer" {
		t.Fatalf("text = %q", c.Text)
	}
	be.mu.Lock()
	calls := be.finalCalls
	be.mu.Unlock()
	if calls != 3 {
		t.Fatalf("final attempts = %d, want 3", calls)
	}
}

func TestPoolFinalExhaustsRetries(t *testing.T) {
	be := &fakeBackend{failFinals: 100}
	completer := newRecordingCompleter()
	p := testPool(t, be, completer, Config{Workers: 1, MaxRetries: 1, RetryBaseDelay: time.Millisecond})

	p.Submit(interview.Job{Kind: interview.KindFinal, SessionID: "s1", Utterance: "u"})

	c := completer.wait(t)
	if c.Err == nil {
		t.Fatal("expected error after exhausted retries")
	}
}

func TestPoolDraftsAreNotRetried(t *testing.T) {
	be := &fakeBackend{failDrafts: true}
	completer := newRecordingCompleter()
	p := testPool(t, be, completer, Config{Workers: 1, MaxRetries: 3, RetryBaseDelay: time.Millisecond})

	p.Submit(interview.Job{Kind: interview.KindChunk, SessionID: "s1", Buffer: "b"})

	c := completer.wait(t)
	if c.Err == nil {
		t.Fatal("failed draft reported no error")
	}
	be.mu.Lock()
	calls := be.draftCalls
	be.mu.Unlock()
	if calls != 1 {
		t.Fatalf("draft attempts = %d, want exactly 1", calls)
	}
}

func TestPoolSubmitRejectsWhenFull(t *testing.T) {
	be := &fakeBackend{}
	completer := newRecordingCompleter()
	p := NewPool(be, completer, Config{Workers: 1, QueueSize: 1, RetryBaseDelay: time.Millisecond}, nil)
	// Not started: nothing drains the queue.
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		p.Shutdown(ctx)
	}()

	if !p.Submit(interview.Job{Kind: interview.KindFiller}) {
		t.Fatal("first submit should fill the queue")
	}
	if p.Submit(interview.Job{Kind: interview.KindFiller}) {
		t.Fatal("second submit should be rejected")
	}
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	be := &fakeBackend{}
	completer := newRecordingCompleter()
	p := NewPool(be, completer, Config{Workers: 1}, nil)
	p.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Shutdown(ctx)

	if p.Submit(interview.Job{Kind: interview.KindFiller}) {
		t.Fatal("submit accepted after shutdown")
	}
}

func TestHistoryMessages(t *testing.T) {
	msgs := historyMessages([]interview.Turn{
		{User: "answer one", Assistant: "question two"},
	})
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != backend.RoleUser || msgs[0].Content != "answer one" {
		t.Fatalf("first message = %+v", msgs[0])
	}
	if msgs[1].Role != backend.RoleAssistant || msgs[1].Content != "question two" {
		t.Fatalf("second message = %+v", msgs[1])
	}
}
