package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parleylabs/interviewd/pkg/gateway/apierror"
	"github.com/parleylabs/interviewd/pkg/gateway/config"
	"github.com/parleylabs/interviewd/pkg/gateway/lifecycle"
	"github.com/parleylabs/interviewd/pkg/gateway/mw"
	"github.com/parleylabs/interviewd/pkg/interview"
	"github.com/parleylabs/interviewd/pkg/interview/protocol"
	"github.com/parleylabs/interviewd/pkg/storage"
)

// ChatHandler owns the websocket side of one interview: it upgrades the
// request, attaches the connection to the session, and runs the inbound read
// loop. All outbound traffic goes through the session's connection pump, so
// this handler never writes application frames to the raw socket after attach.
type ChatHandler struct {
	Config    config.Config
	Service   InterviewService
	Store     storage.Provider
	Logger    *slog.Logger
	Lifecycle *lifecycle.Lifecycle
}

func (h ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	id := r.PathValue("id")

	if h.Lifecycle.IsDraining() {
		writeAPIError(w, reqID, &apierror.Error{
			Type:    apierror.ErrOverloaded,
			Message: "server is draining",
			Code:    "draining",
		}, http.StatusServiceUnavailable)
		return
	}
	if !h.originAllowed(r) {
		writeAPIError(w, reqID, &apierror.Error{
			Type:    apierror.ErrAuthentication,
			Message: "origin is not allowed",
			Param:   "Origin",
		}, http.StatusForbidden)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	if h.Config.WSMaxMessageBytes > 0 {
		ws.SetReadLimit(h.Config.WSMaxMessageBytes)
	}

	conn, err := h.Service.Attach(id, ws)
	if err != nil {
		h.rejectWS(ws, err)
		return
	}
	defer h.Service.Detach(id, conn)

	if h.Config.WSReadTimeout > 0 {
		_ = ws.SetReadDeadline(time.Now().Add(h.Config.WSReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(h.Config.WSReadTimeout))
		})
	}

	h.readLoop(id, reqID, ws, conn)
}

func (h ChatHandler) readLoop(id, reqID string, ws *websocket.Conn, conn *interview.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && h.Logger != nil {
				h.Logger.Debug("websocket read ended", "interview_id", id, "request_id", reqID, "error", err)
			}
			return
		}

		decoded, err := protocol.DecodeClientMessage(data)
		if err != nil {
			// Malformed frames are reported in-band; the session stays live.
			_ = conn.Send(protocol.ServerMessage{Type: protocol.TypeError, Payload: err.Error()})
			continue
		}

		switch msg := decoded.(type) {
		case protocol.ClientUtterance:
			if err := h.Service.Input(id, msg.Payload, msg.IsFinal, msg.Timestamp); err != nil {
				if errors.Is(err, interview.ErrSessionNotFound) {
					return
				}
				_ = conn.Send(protocol.ServerMessage{Type: protocol.TypeError, Payload: err.Error()})
			}
		case protocol.ClientControl:
			if msg.Payload == protocol.ControlEndInterview {
				rec, err := h.Service.End(id)
				if err == nil {
					PersistRecord(h.Store, h.Logger, rec)
				}
				return
			}
		}
	}
}

// rejectWS handles attach failures, where the session connection never took
// ownership of the socket.
func (h ChatHandler) rejectWS(ws *websocket.Conn, err error) {
	msg := "interview not found"
	if !errors.Is(err, interview.ErrSessionNotFound) {
		msg = "failed to attach connection"
	}
	if data, encErr := protocol.EncodeServerMessage(protocol.ServerMessage{
		Type:    protocol.TypeError,
		Payload: msg,
	}); encErr == nil {
		_ = ws.WriteMessage(websocket.TextMessage, data)
	}
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, msg),
		time.Now().Add(2*time.Second))
	_ = ws.Close()
}

func (h ChatHandler) originAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if len(h.Config.CORSAllowedOrigins) == 0 {
		return false
	}
	_, ok := h.Config.CORSAllowedOrigins[origin]
	return ok
}
