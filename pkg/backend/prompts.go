package backend

import (
	"fmt"
	"strings"
)

// SystemPrompt frames the model as the interviewer for every main-model call.
const SystemPrompt = `You are an AI interviewer conducting a job interview.
Your goal is to evaluate the candidate's skills, experience, and fit for the role.
Conduct the interview professionally and courteously.
Listen to the candidate's full statement before responding: you receive their
speech in fragments, and a separate signal marks the end of their turn.
Ask follow-up questions that probe deeper into their skills and experience.
Keep the conversation natural but focused on assessing the candidate, and work
through the key interview topics over the course of the session.
Be precise and objective in your questioning.`

// FillerSystemPrompt frames the lightweight model used for courtesy messages.
const FillerSystemPrompt = `You generate very short, non-disruptive conversational fillers or
acknowledgements during a chat. Output must be brief, natural-sounding, and
appropriate for the given context. Never ask questions or take over the
conversation. Keep every response under 10 words.`

// DraftInstruction wraps a partial utterance for a provisional-response call.
// The model is told the turn is still open so it produces a tentative reply,
// not a committed interview question.
func DraftInstruction(buffer string) string {
	return fmt.Sprintf(`The candidate is still speaking; this is NOT their final statement for this turn.

Accumulated utterance so far:
%q

Draft a brief provisional reply you might give once they finish. It will only
be shown as a tentative preview, so keep it short and do not commit to a
specific follow-up question yet.`, buffer)
}

// FinalInstruction wraps a complete utterance for the definitive-response call.
func FinalInstruction(utterance string, topics []string) string {
	var b strings.Builder
	b.WriteString("The candidate has finished speaking. Their complete statement:\n\n")
	fmt.Fprintf(&b, "%q\n\n", utterance)
	b.WriteString(`Formulate your response:
1. Acknowledge their statement.
2. Ask a follow-up question or make a statement that moves the interview forward.
3. Stay professional and in your role as the interviewer.`)
	if len(topics) > 0 {
		fmt.Fprintf(&b, "\n\nKey topics still to cover in this interview: %s.", strings.Join(topics, ", "))
	}
	b.WriteString("\n\nGenerate ONLY your response text, with no prefix.")
	return b.String()
}

// FillerInstruction selects the courtesy-message prompt for a trigger context.
// Unknown contexts fall back to a generic filler request.
func FillerInstruction(triggerContext, snippet string) string {
	var instruction string
	switch triggerContext {
	case "after_user_pause":
		instruction = "Generate a brief, non-committal filler while the interviewer is thinking. Like 'Thinking...' or 'Just a moment'."
	case "after_chunk":
		instruction = "Generate a very short acknowledgement of hearing a piece of speech. Something like 'Okay' or 'Got it'."
	case "long_silence":
		instruction = "Generate a short, gentle prompt showing readiness for the next input. Like 'I'm listening.' or 'Ready when you are.'"
	default:
		instruction = "Generate a very short, general conversational filler."
	}
	if snippet != "" {
		instruction += fmt.Sprintf("\n\nRecent candidate speech for context: %q", snippet)
	}
	return instruction
}
