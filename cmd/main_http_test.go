package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-translate-bot/internal/config"
	"github.com/MimeLyc/srt-translate-bot/internal/session"
)

type fakeCron struct {
	mu      sync.Mutex
	specs   []string
	started bool
	stopped bool
}

func (f *fakeCron) AddFunc(spec string, _ func()) (cron.EntryID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs = append(f.specs, spec)
	return cron.EntryID(len(f.specs)), nil
}

func (f *fakeCron) Start() {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
}

func (f *fakeCron) Stop() context.Context {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	return context.Background()
}

type fakeHTTP struct {
	listenCalled chan struct{}
	listenErr    error
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		listenCalled: make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

func (f *fakeHTTP) ListenAndServe(string) error {
	close(f.listenCalled)
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTP) Shutdown(context.Context) error {
	f.shutdownOnce.Do(func() { close(f.shutdownCh) })
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP:    config.HTTPConfig{Addr: "127.0.0.1:0"},
		Session: config.SessionConfig{TTL: 60, SweepCron: "*/10 * * * *"},
	}
}

func TestMain_StartsCronHTTPAndPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()
	polling := make(chan struct{})

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, testConfig(), components{
			http: httpSrv,
			cron: cronEngine,
			updates: func(ctx context.Context) error {
				close(polling)
				<-ctx.Done()
				return ctx.Err()
			},
			sweep: func() {},
		})
	}()

	for _, ch := range []chan struct{}{httpSrv.listenCalled, polling} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("component did not start")
		}
	}

	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithComponents did not exit after cancellation")
	}

	assert.True(t, cronEngine.started)
	assert.True(t, cronEngine.stopped)
	assert.Equal(t, []string{"*/10 * * * *"}, cronEngine.specs)
}

func TestMain_ReturnsHTTPFailure(t *testing.T) {
	httpSrv := newFakeHTTP()
	httpSrv.listenErr = errors.New("address in use")

	err := runWithComponents(context.Background(), testConfig(), components{
		http: httpSrv,
		cron: &fakeCron{},
	})

	require.EqualError(t, err, "address in use")
}

func TestSessionSweeper_DropsIdleSessions(t *testing.T) {
	sessions := session.NewStore()
	_, _ = sessions.Update("idle", func(s *session.Session) error {
		s.UpdatedAt = time.Now().Add(-2 * time.Hour)
		return nil
	})
	_, _ = sessions.Update("fresh", func(*session.Session) error { return nil })

	sessionSweeper(sessions, time.Hour)()

	assert.Equal(t, 1, sessions.Len())
	_, ok := sessions.Get("fresh")
	assert.True(t, ok)
}
