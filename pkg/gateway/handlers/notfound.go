package handlers

import (
	"net/http"

	"github.com/parleylabs/interviewd/pkg/gateway/apierror"
	"github.com/parleylabs/interviewd/pkg/gateway/mw"
)

type NotFoundHandler struct{}

func (h NotFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	writeAPIError(w, reqID, &apierror.Error{
		Type:    apierror.ErrNotFound,
		Message: "not found",
	}, http.StatusNotFound)
}
