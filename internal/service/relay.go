package service

import (
	"api-gateway-go/internal/model"
)

// strippedResponseHeaders describe the upstream connection's framing and are
// not replayed to the caller. Content-Length is recomputed on write because a
// structured body is re-encoded.
var strippedResponseHeaders = []string{
	"Content-Encoding",
	"Transfer-Encoding",
	"Connection",
	"Content-Length",
}

// Relay converts an upstream response into the reply sent to the caller.
func Relay(resp *model.UpstreamResponse) *model.Reply {
	header := resp.Header.Clone()
	for _, h := range strippedResponseHeaders {
		header.Del(h)
	}

	return &model.Reply{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       model.ParseBody(resp.Body),
	}
}
