package scrape

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic-atlas/directory-cli/pkg/jina"
)

// fakeJina returns canned responses in order.
type fakeJina struct {
	responses []*jina.ReadResponse
	errs      []error
	calls     int
}

func (f *fakeJina) Read(_ context.Context, _ string) (*jina.ReadResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, assert.AnError
}

func goodResponse(content string) *jina.ReadResponse {
	return &jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{
			Title:   "Insurance",
			URL:     "https://example.com/insurance",
			Content: content,
		},
	}
}

func TestJinaAdapterScrape(t *testing.T) {
	content := strings.Repeat("Accepted insurance plans include Aetna and Cigna. ", 5)
	a := NewJinaAdapter(&fakeJina{responses: []*jina.ReadResponse{goodResponse(content)}})

	result, err := a.Scrape(context.Background(), "https://example.com/insurance")
	require.NoError(t, err)
	assert.Equal(t, "jina", result.Source)
	assert.Equal(t, "Insurance", result.Page.Title)
	assert.Equal(t, content, result.Page.Content)
}

func TestJinaAdapterNeedsFallback(t *testing.T) {
	tests := []struct {
		name string
		resp *jina.ReadResponse
	}{
		{"error code", &jina.ReadResponse{Code: 451}},
		{"thin content", goodResponse("tiny")},
		{"challenge page", goodResponse("Just a moment... Checking your browser before accessing the clinic website. Please stand by while we verify.")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewJinaAdapter(&fakeJina{responses: []*jina.ReadResponse{tt.resp}})
			_, err := a.Scrape(context.Background(), "https://example.com")
			require.Error(t, err)
		})
	}
}

func TestJinaAdapterCircuitBreaker(t *testing.T) {
	f := &fakeJina{errs: []error{assert.AnError, assert.AnError, assert.AnError}}
	a := NewJinaAdapter(f)

	for range 3 {
		_, err := a.Scrape(context.Background(), "https://example.com")
		require.Error(t, err)
	}

	// Circuit is now open: the adapter refuses without calling upstream.
	assert.False(t, a.Supports("https://example.com"))
	_, err := a.Scrape(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, 3, f.calls)
}

func TestCircuitBreakerWindowReset(t *testing.T) {
	cb := newCircuitBreaker(3, 10*time.Millisecond, time.Minute)

	cb.recordFailure()
	cb.recordFailure()
	time.Sleep(20 * time.Millisecond)
	// Outside the window, the count restarts.
	cb.recordFailure()
	assert.False(t, cb.isOpen())

	cb.recordFailure()
	cb.recordFailure()
	assert.True(t, cb.isOpen())
}

func TestCircuitBreakerSuccessResets(t *testing.T) {
	cb := newCircuitBreaker(3, time.Minute, time.Minute)

	cb.recordFailure()
	cb.recordFailure()
	cb.recordSuccess()
	cb.recordFailure()
	cb.recordFailure()
	assert.False(t, cb.isOpen())
}
