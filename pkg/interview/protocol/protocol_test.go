package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeChunk(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"chunk","payload":"I worked on","timestamp":12.5}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage: %v", err)
	}
	utt, ok := msg.(ClientUtterance)
	if !ok {
		t.Fatalf("decoded %T, want ClientUtterance", msg)
	}
	if utt.Payload != "I worked on" || utt.IsFinal || utt.Timestamp != 12.5 {
		t.Fatalf("utterance = %+v", utt)
	}
}

func TestDecodeChunkWithFinalFlag(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"chunk","payload":"done now","is_final":true}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage: %v", err)
	}
	utt := msg.(ClientUtterance)
	if !utt.IsFinal {
		t.Fatal("is_final flag was dropped")
	}
}

func TestDecodeFinalForcesIsFinal(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"final","payload":"that is all"}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage: %v", err)
	}
	utt := msg.(ClientUtterance)
	if !utt.IsFinal {
		t.Fatal("final frame decoded with is_final=false")
	}
}

func TestDecodeFinalAllowsEmptyPayload(t *testing.T) {
	// A bare end-of-turn marker commits whatever the buffer holds.
	if _, err := DecodeClientMessage([]byte(`{"type":"final","payload":""}`)); err != nil {
		t.Fatalf("empty final rejected: %v", err)
	}
}

func TestDecodeControl(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"control","payload":"end_interview"}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage: %v", err)
	}
	ctl, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("decoded %T, want ClientControl", msg)
	}
	if ctl.Payload != ControlEndInterview {
		t.Fatalf("control payload = %q", ctl.Payload)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code string
	}{
		{"invalid json", `{`, "bad_request"},
		{"missing type", `{"payload":"x"}`, "bad_request"},
		{"unknown type", `{"type":"audio","payload":"x"}`, "bad_request"},
		{"empty chunk payload", `{"type":"chunk","payload":"  "}`, "bad_request"},
		{"empty control payload", `{"type":"control","payload":""}`, "bad_request"},
		{"unknown control op", `{"type":"control","payload":"restart"}`, "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClientMessage([]byte(tt.data))
			if err == nil {
				t.Fatal("expected decode error")
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("error type = %T, want *DecodeError", err)
			}
			if decodeErr.Code != tt.code {
				t.Fatalf("code = %q, want %q", decodeErr.Code, tt.code)
			}
		})
	}
}

func TestEncodeServerMessage(t *testing.T) {
	data, err := EncodeServerMessage(ServerMessage{Type: TypeResponse, Payload: "Tell me more."})
	if err != nil {
		t.Fatalf("EncodeServerMessage: %v", err)
	}
	var decoded ServerMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if decoded.Type != TypeResponse || decoded.Payload != "Tell me more." {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestEncodeServerMessageRequiresType(t *testing.T) {
	if _, err := EncodeServerMessage(ServerMessage{Payload: "x"}); err == nil {
		t.Fatal("expected error for missing type")
	}
}
