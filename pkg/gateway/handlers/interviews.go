package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/parleylabs/interviewd/pkg/gateway/apierror"
	"github.com/parleylabs/interviewd/pkg/gateway/lifecycle"
	"github.com/parleylabs/interviewd/pkg/gateway/mw"
	"github.com/parleylabs/interviewd/pkg/interview"
	"github.com/parleylabs/interviewd/pkg/storage"
)

// InterviewService is the orchestration surface the HTTP handlers drive.
type InterviewService interface {
	Start(plan interview.Plan) string
	Attach(id string, ws interview.WSConn) (*interview.Conn, error)
	Detach(id string, conn *interview.Conn)
	Input(id, text string, isFinal bool, timestamp float64) error
	End(id string) (interview.Record, error)
}

// PlanBuilder produces the interview plan from analyzed documents.
type PlanBuilder interface {
	BuildPlan(ctx context.Context, jobDescriptionID, resumeID string) interview.Plan
}

// StartInterviewHandler creates a session and returns its websocket endpoint.
type StartInterviewHandler struct {
	Service   InterviewService
	Planner   PlanBuilder
	Logger    *slog.Logger
	Lifecycle *lifecycle.Lifecycle
}

func (h StartInterviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	if h.Lifecycle.IsDraining() {
		writeAPIError(w, reqID, &apierror.Error{
			Type:    apierror.ErrOverloaded,
			Message: "server is draining",
			Code:    "draining",
		}, http.StatusServiceUnavailable)
		return
	}

	var body struct {
		JobDescriptionID string `json:"job_description_id"`
		ResumeID         string `json:"resume_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeAPIError(w, reqID, &apierror.Error{
			Type:    apierror.ErrInvalidRequest,
			Message: "invalid request body",
		}, http.StatusBadRequest)
		return
	}

	plan := h.Planner.BuildPlan(r.Context(), body.JobDescriptionID, body.ResumeID)
	id := h.Service.Start(plan)

	writeJSON(w, http.StatusCreated, map[string]any{
		"interview_id":  id,
		"websocket_url": "/v1/interviews/" + id + "/chat",
	})
}

// GetInterviewHandler returns the persisted record of an ended interview.
type GetInterviewHandler struct {
	Store storage.Provider
}

func (h GetInterviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	rec, err := h.Store.LoadInterview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// EndInterviewHandler terminates a live session and hands the final record to
// the persistence provider.
type EndInterviewHandler struct {
	Service InterviewService
	Store   storage.Provider
	Logger  *slog.Logger
}

func (h EndInterviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	id := r.PathValue("id")

	rec, err := h.Service.End(id)
	if err != nil {
		writeError(w, reqID, err)
		return
	}

	PersistRecord(h.Store, h.Logger, rec)

	writeJSON(w, http.StatusOK, map[string]any{
		"interview_id": rec.ID,
		"turns":        len(rec.History),
		"ended":        true,
	})
}

// PersistRecord saves an ended interview. Persistence failure never fails the
// termination that produced the record; it is logged and the session is gone
// either way.
func PersistRecord(store storage.Provider, logger *slog.Logger, rec interview.Record) {
	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.SaveInterview(ctx, rec); err != nil && logger != nil {
		logger.Error("failed to persist interview record", "interview_id", rec.ID, "error", err)
	}
}
