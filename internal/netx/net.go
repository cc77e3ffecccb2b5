// Package netx holds the JSON response envelope shared by the API server
// and its client: {"ok": true, "data": ...} or {"ok": false, "error": "..."}.
package netx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Envelope is the wire shape of every JSON response.
type Envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// StatusError is returned by ReadResponse for non-2xx answers.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("request failed: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// WriteJSON writes data wrapped in a successful envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "encoding error")
		return
	}
	writeEnvelope(w, status, Envelope{OK: true, Data: raw})
}

// WriteError writes a failed envelope carrying msg.
func WriteError(w http.ResponseWriter, status int, msg string) {
	writeEnvelope(w, status, Envelope{OK: false, Error: msg})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// ReadResponse checks the status code and decodes the envelope's data into
// out (which may be nil). The body is always drained and closed.
func ReadResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	var env Envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Error
		if decodeErr != nil {
			msg = string(body)
		}
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode envelope: %w", decodeErr)
	}
	if !env.OK {
		return &StatusError{Status: resp.StatusCode, Message: env.Error}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// StatusOf extracts the HTTP status from err, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
