package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
)

// roomRequest builds a request carrying a chi roomID URL parameter, the way
// the router injects it.
func roomRequest(method, target, roomID string, body []byte) *http.Request {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("roomID", roomID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
