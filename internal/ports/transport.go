package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Request describes one call to the service. It is passed by value so a
// replay never shares state with the original attempt.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	// Body is JSON-encoded on every dispatch when non-nil.
	Body any

	// Public requests carry no Authorization header and are never intercepted.
	Public bool
	// NoRefresh requests carry the token but hand a 401 straight back to the caller.
	NoRefresh bool
	// Retried is set when the request re-enters the pipeline after a refresh.
	Retried bool
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("decode response: empty body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// RefreshListener observes refresh episodes. RefreshFinished receives nil on
// success and runs after the episode has ended, so it may send requests.
// RefreshStarted runs on the episode itself and must not wait on an
// authenticated request.
type RefreshListener interface {
	RefreshStarted()
	RefreshFinished(err error)
}

type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
	// AbortRefresh releases every caller waiting on the active refresh episode.
	AbortRefresh()
	Listen(listener RefreshListener) (stop func())
}
