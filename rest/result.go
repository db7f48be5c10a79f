package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ReturnType is the shape a caller wants a call's outcome in.
type ReturnType string

const (
	ReturnJSON         ReturnType = "json"
	ReturnText         ReturnType = "text"
	ReturnBool         ReturnType = "bool"
	ReturnFullResponse ReturnType = "full_response"
)

// Valid reports whether rt is one of the supported shapes
func (rt ReturnType) Valid() bool {
	switch rt {
	case ReturnJSON, ReturnText, ReturnBool, ReturnFullResponse:
		return true
	}
	return false
}

// ParseReturnType converts user input into a ReturnType. Unknown values are
// returned as-is so the client can report them as a contract violation.
func ParseReturnType(s string) ReturnType {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return ReturnJSON
	case "full", "raw", "response":
		return ReturnFullResponse
	}
	return ReturnType(s)
}

// Response is the untouched HTTP exchange handed back for full_response calls.
// The body has already been drained into Payload.
type Response struct {
	*http.Response
	Payload []byte
}

// Cookie returns the named response cookie, or nil.
func (r *Response) Cookie(name string) *http.Cookie {
	if r == nil || r.Response == nil {
		return nil
	}
	for _, c := range r.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Diagnostic is what a json call returns when the status was not expected.
type Diagnostic struct {
	Request    string `json:"request"`
	APIPath    string `json:"api_path"`
	StatusCode int    `json:"status_code"`
	Text       string `json:"text"`
}

// Map renders the diagnostic as the untyped json payload.
func (d Diagnostic) Map() map[string]any {
	return map[string]any{
		"request":     d.Request,
		"api_path":    d.APIPath,
		"status_code": d.StatusCode,
		"text":        d.Text,
	}
}

// Result is the shaped outcome of one call. Exactly one of success or failure
// is represented: OK reports which. The accessor matching Type carries the
// payload; the others return zero values.
type Result struct {
	Type       ReturnType
	Method     string
	Path       string
	StatusCode int

	ok   bool
	data any
	text string
	flag bool
	raw  *Response
	diag *Diagnostic
}

// OK reports whether the call produced a success outcome.
func (r *Result) OK() bool { return r.ok }

// JSON returns the decoded body for json calls, or the diagnostic map when the
// status was not expected.
func (r *Result) JSON() any {
	if r.diag != nil {
		return r.diag.Map()
	}
	return r.data
}

// Text returns the raw body for text calls.
func (r *Result) Text() string { return r.text }

// Bool returns the outcome for bool calls: true on an expected status.
func (r *Result) Bool() bool { return r.flag }

// Raw returns the response handle for full_response calls. It is nil when the
// request never got a response.
func (r *Result) Raw() *Response { return r.raw }

// Diagnostic returns the failure description of a json call answered with an
// unexpected status.
func (r *Result) Diagnostic() *Diagnostic { return r.diag }

// Decode re-decodes a successful json payload into v, letting each endpoint
// wrapper validate against its own schema.
func (r *Result) Decode(v any) error {
	if !r.ok {
		return fmt.Errorf("decode %s %s: call did not succeed", r.Method, r.Path)
	}
	if r.Type != ReturnJSON {
		return fmt.Errorf("decode %s %s: result is %s, not json", r.Method, r.Path, r.Type)
	}
	b, err := json.Marshal(r.data)
	if err != nil {
		return fmt.Errorf("decode %s %s: %w", r.Method, r.Path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.Method, r.Path, err)
	}
	return nil
}
