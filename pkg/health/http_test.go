package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPChecker_HealthyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result := NewHTTPChecker(server.URL).Check(context.Background())
	assert.True(t, result.Healthy, result.Message)
	assert.Positive(t, result.Duration)
}

func TestHTTPChecker_UnhealthyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	result := NewHTTPChecker(server.URL).Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Contains(t, result.Message, "503")
}

func TestHTTPChecker_CustomStatusRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result := NewHTTPChecker(server.URL).WithStatusRange(200, 404).Check(context.Background())
	assert.True(t, result.Healthy)
}

func TestHTTPChecker_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	result := NewHTTPChecker(server.URL).Check(ctx)
	assert.False(t, result.Healthy)
}

func TestVerifyRecoversAfterFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result, err := Verify(context.Background(), NewHTTPChecker(server.URL), Config{
		Interval: time.Millisecond,
		Timeout:  time.Second,
		Retries:  5,
	})
	require.NoError(t, err)
	assert.True(t, result.Healthy)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestVerifyGivesUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := Verify(context.Background(), NewHTTPChecker(server.URL), Config{
		Interval: time.Millisecond,
		Retries:  3,
	})
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestStatusUpdate(t *testing.T) {
	cfg := Config{Retries: 2}
	s := &Status{}

	s.Update(Result{Healthy: false}, cfg)
	assert.False(t, s.Exhausted(cfg))
	s.Update(Result{Healthy: false}, cfg)
	assert.True(t, s.Exhausted(cfg))
	s.Update(Result{Healthy: true}, cfg)
	assert.True(t, s.Healthy)
	assert.Equal(t, 0, s.ConsecutiveFailures)
}
