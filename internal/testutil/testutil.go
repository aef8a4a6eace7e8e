package testutil

import (
	"context"
	"sync"

	"paxgbot/internal/fetcher"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context) (*fetcher.Quote, error)
	KeyFunc   func() string

	mu    sync.Mutex
	calls int
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context) (*fetcher.Quote, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	return &fetcher.Quote{}, nil
}

// Key implements the Fetcher interface
func (m *MockFetcher) Key() string {
	if m.KeyFunc != nil {
		return m.KeyFunc()
	}
	return "mock:key"
}

// Calls returns how many times Fetch was invoked
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// NewMockFetcher creates a simple mock fetcher with predefined values
func NewMockFetcher(key string, quote *fetcher.Quote, err error) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context) (*fetcher.Quote, error) {
			return quote, err
		},
		KeyFunc: func() string {
			return key
		},
	}
}

// MockPublisher records every message it is asked to publish
type MockPublisher struct {
	PublishFunc func(ctx context.Context, text string) bool

	mu    sync.Mutex
	texts []string
}

// Publish records text and returns PublishFunc's answer, or true
func (m *MockPublisher) Publish(ctx context.Context, text string) bool {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, text)
	}
	return true
}

// Texts returns a copy of the published messages in order
func (m *MockPublisher) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}
