// Package model defines the request and response values passed between
// pipeline stages. None of them outlive a single request.
package model

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"
)

// InboundRequest is the caller's request as received by the gateway.
// Path is the escaped path without the query string.
type InboundRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
	ClientIP string
	Scheme   string
	Host     string
}

// ForwardedRequest is the request sent to the matched upstream.
// Body is nil for methods that carry no body.
type ForwardedRequest struct {
	URL     string
	Method  string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// UpstreamResponse is the fully read upstream reply.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Body is either a decoded JSON document or raw bytes.
type Body struct {
	Structured bool
	Document   any
	Raw        []byte
}

// ParseBody decodes raw as a JSON document, falling back to the raw bytes
// when it is not a single well-formed JSON value.
func ParseBody(raw []byte) Body {
	if !json.Valid(raw) {
		return Body{Raw: raw}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Body{Raw: raw}
	}
	return Body{Structured: true, Document: doc, Raw: raw}
}

// Reply is the response relayed back to the caller.
type Reply struct {
	StatusCode int
	Header     http.Header
	Body       Body
}
