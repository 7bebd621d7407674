// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

const (
	translationFailed     = "Translation failed"
	translationSuggestion = "Check if the MCP server is running and accessible"
)

// UpstreamError reports a non-success HTTP status from the upstream server.
type UpstreamError struct {
	StatusCode int    // StatusCode is the upstream HTTP status.
	Status     string // Status is the reason phrase that accompanied it.
}

// Error implements the error interface for UpstreamError.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("MCP server responded with %d: %s", e.StatusCode, e.Status)
}

// TranslationError wraps any other failure while talking to the upstream or
// reading its stream.
type TranslationError struct {
	Op  string // Op names the step that failed.
	Err error  // Err retains the original cause.
}

// Error implements the error interface for TranslationError.
func (e *TranslationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As checks.
func (e *TranslationError) Unwrap() error {
	return e.Err
}

// errorPayload is the JSON body of every error answer.
type errorPayload struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// writeTranslationFailure renders err as the uniform 500 answer. Upstream and
// translation errors are indistinguishable to the caller apart from details.
func writeTranslationFailure(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, r, http.StatusInternalServerError, errorPayload{
		Error:      translationFailed,
		Details:    err.Error(),
		Suggestion: translationSuggestion,
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusNotFound, errorPayload{Error: "Not found"})
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusMethodNotAllowed, errorPayload{Error: "Method not allowed"})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("encode response failed")
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + translationFailed + `"}`)
	}
	writeRawJSON(w, r, status, body)
}

func writeRawJSON(w http.ResponseWriter, r *http.Request, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("write response failed")
	}
}
