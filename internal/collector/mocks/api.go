package mocks

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/godilite/report-collector/pkg/reportapi"
)

// FakeAPI serves canned JSON bodies keyed by request path.
// Unknown paths fail with a 404 *reportapi.StatusError.
type FakeAPI struct {
	Responses map[string]string
	Errors    map[string]error
	Requests  []string
}

func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		Responses: make(map[string]string),
		Errors:    make(map[string]error),
	}
}

// Fetch implements the Fetcher interface
func (f *FakeAPI) Fetch(ctx context.Context, path string, dest any) error {
	f.Requests = append(f.Requests, path)
	if err := ctx.Err(); err != nil {
		return &reportapi.TransportError{URL: path, Err: err}
	}
	if err, ok := f.Errors[path]; ok {
		return err
	}
	body, ok := f.Responses[path]
	if !ok {
		return &reportapi.StatusError{URL: path, StatusCode: http.StatusNotFound, Body: `{"detail":"Not found."}`}
	}
	if err := json.Unmarshal([]byte(body), dest); err != nil {
		return &reportapi.ParseError{URL: path, Err: err}
	}
	return nil
}

// Count returns how many times path was requested.
func (f *FakeAPI) Count(path string) int {
	n := 0
	for _, p := range f.Requests {
		if p == path {
			n++
		}
	}
	return n
}
