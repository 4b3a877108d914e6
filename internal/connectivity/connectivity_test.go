package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"syncq/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	return &logger
}

type fakeObserver struct {
	online   bool
	callback func(bool)
}

func (f *fakeObserver) Online() bool           { return f.online }
func (f *fakeObserver) OnChange(fn func(bool)) { f.callback = fn }

func (f *fakeObserver) transition(online bool) {
	f.online = online
	f.callback(online)
}

type fakeFlusher struct {
	calls atomic.Int32
}

func (f *fakeFlusher) ProcessQueue(context.Context) models.SyncResult {
	f.calls.Add(1)
	return models.SyncResult{}
}

func TestTriggerFlushesOnOfflineToOnlineEdge(t *testing.T) {
	obs := &fakeObserver{online: false}
	flusher := &fakeFlusher{}
	NewTrigger(obs, flusher, nil, testLogger())

	obs.transition(true)
	assert.Equal(t, int32(1), flusher.calls.Load())
}

func TestTriggerIgnoresRepeatedOnline(t *testing.T) {
	obs := &fakeObserver{online: true}
	flusher := &fakeFlusher{}
	NewTrigger(obs, flusher, nil, testLogger())

	// Already online at startup: an "online" notification is not an
	// edge and must not flush.
	obs.transition(true)
	obs.transition(true)
	assert.Equal(t, int32(0), flusher.calls.Load())
}

func TestTriggerIgnoresGoingOffline(t *testing.T) {
	obs := &fakeObserver{online: true}
	flusher := &fakeFlusher{}
	NewTrigger(obs, flusher, nil, testLogger())

	obs.transition(false)
	assert.Equal(t, int32(0), flusher.calls.Load())

	// The next reconnect is an edge again.
	obs.transition(true)
	assert.Equal(t, int32(1), flusher.calls.Load())
}

func TestTriggerThrottlesFlapping(t *testing.T) {
	obs := &fakeObserver{online: false}
	flusher := &fakeFlusher{}
	// One flush allowed, then a long refill.
	NewTrigger(obs, flusher, rate.NewLimiter(rate.Every(time.Hour), 1), testLogger())

	for i := 0; i < 5; i++ {
		obs.transition(true)
		obs.transition(false)
	}
	assert.Equal(t, int32(1), flusher.calls.Load())
}

func TestProberDetectsTransitions(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProber(srv.URL, time.Minute, testLogger())

	var transitions []bool
	p.OnChange(func(online bool) { transitions = append(transitions, online) })

	ctx := context.Background()
	assert.False(t, p.Check(ctx))
	assert.False(t, p.Online())

	healthy.Store(true)
	assert.True(t, p.Check(ctx))
	assert.True(t, p.Online())

	// No change, no callback.
	assert.True(t, p.Check(ctx))

	healthy.Store(false)
	assert.False(t, p.Check(ctx))

	require.Equal(t, []bool{true, false}, transitions)
}

func TestProberNotifiesAllCallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber(srv.URL, time.Minute, testLogger())

	var first, second int
	p.OnChange(func(bool) { first++ })
	p.OnChange(func(bool) { second++ })

	assert.True(t, p.Check(context.Background()))
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestProberUnreachableHostIsOffline(t *testing.T) {
	p := NewProber("http://127.0.0.1:1", time.Minute, testLogger())
	assert.False(t, p.Check(context.Background()))
}

func TestProberWithTriggerEndToEnd(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewProber(srv.URL, time.Minute, testLogger())
	flusher := &fakeFlusher{}
	NewTrigger(p, flusher, nil, testLogger())

	ctx := context.Background()
	p.Check(ctx)
	assert.Equal(t, int32(0), flusher.calls.Load())

	healthy.Store(true)
	p.Check(ctx)
	assert.Equal(t, int32(1), flusher.calls.Load())
}
