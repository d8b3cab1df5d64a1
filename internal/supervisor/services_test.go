package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/suture/v4"
)

type mockHTTPServer struct {
	listenErr     error
	shutdownErr   error
	started       chan struct{}
	stopCh        chan struct{}
	shutdownCount atomic.Int32
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{started: make(chan struct{}, 1), stopCh: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdownCount.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

type mockGRPCServer struct {
	stopCh   chan struct{}
	graceful atomic.Bool
}

func (m *mockGRPCServer) Serve(net.Listener) error {
	<-m.stopCh
	return nil
}

func (m *mockGRPCServer) GracefulStop() {
	m.graceful.Store(true)
	close(m.stopCh)
}

func (m *mockGRPCServer) Stop() {}

type blockingHub struct{ ran atomic.Bool }

func (h *blockingHub) RunWithContext(ctx context.Context) error {
	h.ran.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func TestServicesImplementSuture(t *testing.T) {
	var _ suture.Service = (*HTTPServerService)(nil)
	var _ suture.Service = (*GRPCServerService)(nil)
	var _ suture.Service = (*HubService)(nil)
}

func TestHTTPServerService_ShutsDownOnCancel(t *testing.T) {
	server := newMockHTTPServer()
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	<-server.started
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.Equal(t, int32(1), server.shutdownCount.Load())
}

func TestHTTPServerService_StartupFailure(t *testing.T) {
	server := newMockHTTPServer()
	server.listenErr = errors.New("bind: address already in use")

	err := NewHTTPServerService(server, 0).Serve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, server.listenErr)
}

func TestGRPCServerService_GracefulStop(t *testing.T) {
	mock := &mockGRPCServer{stopCh: make(chan struct{})}
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()

	svc := NewGRPCServerService(
		func() GRPCServer { return mock },
		func() (net.Listener, error) { return lis, nil },
		time.Second,
	)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.True(t, mock.graceful.Load())
}

func TestGRPCServerService_ListenFailure(t *testing.T) {
	svc := NewGRPCServerService(
		func() GRPCServer { return &mockGRPCServer{stopCh: make(chan struct{})} },
		func() (net.Listener, error) { return nil, errors.New("port taken") },
		time.Second,
	)
	assert.ErrorContains(t, svc.Serve(context.Background()), "port taken")
}

func TestTree_RunsAndStopsServices(t *testing.T) {
	tree := NewTree(slog.New(slog.NewTextHandler(io.Discard, nil)), TreeConfig{ShutdownTimeout: time.Second})
	hub := &blockingHub{}
	server := newMockHTTPServer()

	tree.AddMessagingService(NewHubService(hub))
	tree.AddAPIService(NewHTTPServerService(server, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)

	require.Eventually(t, hub.ran.Load, time.Second, 10*time.Millisecond)
	<-server.started
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
	assert.Equal(t, int32(1), server.shutdownCount.Load())
}
