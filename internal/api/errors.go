package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
)

// Error is a server-reported failure: HTTP status plus the structured
// message/errors payload the backend attaches to non-2xx responses.
type Error struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if msg := e.FirstMessage(); msg != "" {
		return fmt.Sprintf("api: %s (status %d)", msg, e.Status)
	}
	return fmt.Sprintf("api: request failed with status %d", e.Status)
}

// FirstMessage returns the first available human-readable message, the
// way the UI surfaces business errors verbatim.
func (e *Error) FirstMessage() string {
	if e.Message != "" {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if e.Fields[k] != "" {
			return e.Fields[k]
		}
	}
	return ""
}

// IsStatus reports whether err is a server error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Message string          `json:"message"`
		Errors  json.RawMessage `json:"errors"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return apiErr
	}
	apiErr.Message = payload.Message
	if len(payload.Errors) > 0 {
		var fields map[string]string
		if json.Unmarshal(payload.Errors, &fields) == nil {
			apiErr.Fields = fields
		} else {
			// some endpoints report {errors: {msg: "..."}} style objects
			var nested struct {
				Msg string `json:"msg"`
			}
			if json.Unmarshal(payload.Errors, &nested) == nil && nested.Msg != "" {
				apiErr.Fields = map[string]string{"msg": nested.Msg}
			}
		}
	}
	return apiErr
}
