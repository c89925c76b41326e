package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/parleylabs/interviewd/pkg/gateway/apierror"
)

func writeError(w http.ResponseWriter, reqID string, err error) {
	apiErr, status := apierror.FromError(err, reqID)
	writeAPIError(w, reqID, apiErr, status)
}

func writeAPIError(w http.ResponseWriter, reqID string, apiErr *apierror.Error, status int) {
	if apiErr != nil && apiErr.RequestID == "" {
		apiErr.RequestID = reqID
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apierror.Envelope{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
