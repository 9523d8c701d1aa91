package mocks

import (
	"context"
	"errors"
	"time"
)

// MockFetcher is a function-based mock of the report API fetcher.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, path string, dest any) error
	Calls     int
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context, path string, dest any) error {
	m.Calls++
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, path, dest)
	}
	return errors.New("FetchFunc not implemented")
}

// URL implements the Fetcher interface
func (m *MockFetcher) URL(path string) string {
	return "https://reports.test/" + path
}

// MockCacher is a mock implementation of the cache interface.
type MockCacher struct {
	GetFunc   func(ctx context.Context, key string, dest any) error
	SetFunc   func(ctx context.Context, key string, value any, expiration time.Duration) error
	CloseFunc func() error
}

// Get implements the cache interface
func (m *MockCacher) Get(ctx context.Context, key string, dest any) error {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key, dest)
	}
	return errors.New("cache unavailable")
}

// Set implements the cache interface
func (m *MockCacher) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

// Close implements the cache interface
func (m *MockCacher) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
