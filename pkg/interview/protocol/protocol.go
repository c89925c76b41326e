package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// Inbound message types.
	TypeChunk   = "chunk"
	TypeFinal   = "final"
	TypeControl = "control"

	// Outbound message types.
	TypeResponse       = "llm_response"
	TypeResponseDraft  = "llm_response_draft"
	TypeFiller         = "mini_llm_filler"
	TypeInterviewState = "interview_state"
	TypeError          = "error"
	TypeEnd            = "end"

	// Control operations.
	ControlEndInterview = "end_interview"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

func unsupported(message, param string) *DecodeError {
	return &DecodeError{Code: "unsupported", Message: message, Param: param}
}

// ClientUtterance is a transcribed speech fragment pushed by the client.
// IsFinal is authoritative: a "chunk" frame carrying is_final=true is treated
// as the final fragment of the current utterance.
type ClientUtterance struct {
	Type      string  `json:"type"`
	Payload   string  `json:"payload"`
	Timestamp float64 `json:"timestamp"`
	IsFinal   bool    `json:"is_final"`
}

type ClientControl struct {
	Type      string  `json:"type"`
	Payload   string  `json:"payload"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// DecodeClientMessage parses one inbound JSON frame into a typed message.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case TypeChunk, TypeFinal:
		var msg ClientUtterance
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid utterance frame", "")
		}
		if typ == TypeFinal {
			msg.IsFinal = true
		}
		if strings.TrimSpace(msg.Payload) == "" && !msg.IsFinal {
			return nil, badRequest("chunk payload is required", "payload")
		}
		msg.Type = typ
		return msg, nil
	case TypeControl:
		var msg ClientControl
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid control frame", "")
		}
		op := strings.TrimSpace(msg.Payload)
		if op == "" {
			return nil, badRequest("control payload is required", "payload")
		}
		switch op {
		case ControlEndInterview:
		default:
			return nil, unsupported("unsupported control operation", "payload")
		}
		msg.Payload = op
		return msg, nil
	default:
		return nil, badRequest("unsupported message type", "type")
	}
}

// ServerMessage is the single outbound envelope. Payload is plain text except
// for interview_state frames, where it carries a JSON-encoded StateSummary.
type ServerMessage struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

// StateSummary is sent on reconnect so the client can resync its view.
type StateSummary struct {
	InterviewID string `json:"interview_id"`
	State       string `json:"state"`
	Turns       int    `json:"turns"`
	Generation  uint64 `json:"generation"`
	AwaitingLLM bool   `json:"awaiting_llm"`
}

func EncodeServerMessage(msg ServerMessage) ([]byte, error) {
	if strings.TrimSpace(msg.Type) == "" {
		return nil, fmt.Errorf("server message type is required")
	}
	return json.Marshal(msg)
}
