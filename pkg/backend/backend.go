package backend

import "context"

// Role values mirror the chat-completion wire roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation entry as the model sees it.
type Message struct {
	Role    string
	Content string
}

// Request carries everything a generation call needs: the committed history
// and the candidate text the model should respond to. For draft calls
// Utterance is the partial buffer accumulated so far; for final calls it is
// the complete utterance.
type Request struct {
	History   []Message
	Utterance string
	Topics    []string
}

// Backend produces interviewer responses. Implementations must be safe for
// concurrent use; every call honors ctx cancellation.
//
// GenerateDraft returns a provisional reply to a partial utterance.
// GenerateFinal returns the definitive reply that becomes part of history.
// GenerateFiller returns a short courtesy line to cover model latency;
// triggerContext names why it was requested and snippet is the most recent
// candidate text.
type Backend interface {
	GenerateDraft(ctx context.Context, req Request) (string, error)
	GenerateFinal(ctx context.Context, req Request) (string, error)
	GenerateFiller(ctx context.Context, triggerContext, snippet string) (string, error)
}
