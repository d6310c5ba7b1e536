package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cometa-app/tscatalog/internal/apperr"
	"github.com/cometa-app/tscatalog/internal/config"
)

type fakeScheduler struct {
	called bool
	err    error
}

func (f *fakeScheduler) Schedule(context.Context) error {
	f.called = true
	return f.err
}

type fakeCron struct {
	started bool
	stopped bool
}

func (f *fakeCron) Start() {
	f.started = true
}

func (f *fakeCron) Stop() context.Context {
	f.stopped = true
	return context.Background()
}

type fakeHTTP struct {
	listenCalled chan struct{}
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	listenErr    error
	addr         string
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		listenCalled: make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

func (f *fakeHTTP) ListenAndServe(addr string) error {
	f.addr = addr
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

func TestMain_StartsCronAndHTTP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Addr: "127.0.0.1:0",
		},
	}
	scheduler := &fakeScheduler{}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, cfg, scheduler, cronEngine, httpSrv)
	}()

	select {
	case <-httpSrv.listenCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("http server did not start")
	}

	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithComponents did not exit after cancellation")
	}

	assert.True(t, scheduler.called)
	assert.True(t, cronEngine.started)
	assert.True(t, cronEngine.stopped)
	assert.Equal(t, "127.0.0.1:0", httpSrv.addr)
}

func TestMain_HTTPFailureStopsCron(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Addr: ":1"}}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()
	httpSrv.listenErr = errors.New("address already in use")

	err := runWithComponents(context.Background(), cfg, &fakeScheduler{}, cronEngine, httpSrv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
	assert.True(t, cronEngine.stopped)
}

func TestMain_ScheduleFailureAborts(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Addr: ":0"}}
	cronEngine := &fakeCron{}

	err := runWithComponents(context.Background(), cfg, &fakeScheduler{err: errors.New("bad cron expression")}, cronEngine, newFakeHTTP())
	require.Error(t, err)
	assert.True(t, apperr.IsErrorType(err, apperr.ErrConfig))
	assert.False(t, cronEngine.started)
}
