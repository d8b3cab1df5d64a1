package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// HTTPServer matches *http.Server lifecycle methods.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server until the context is canceled,
// then shuts it down within shutdownTimeout.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
}

func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout, name: "http-server"}
}

// Serve implements suture.Service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string { return h.name }

// GRPCServer matches *grpc.Server lifecycle methods.
type GRPCServer interface {
	Serve(lis net.Listener) error
	GracefulStop()
	Stop()
}

// GRPCServerService runs a gRPC server. A stopped grpc.Server cannot serve
// again, so build is called on every (re)start.
type GRPCServerService struct {
	build           func() GRPCServer
	listen          func() (net.Listener, error)
	shutdownTimeout time.Duration
	name            string
}

func NewGRPCServerService(build func() GRPCServer, listen func() (net.Listener, error), shutdownTimeout time.Duration) *GRPCServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &GRPCServerService{build: build, listen: listen, shutdownTimeout: shutdownTimeout, name: "grpc-server"}
}

// Serve implements suture.Service.
func (g *GRPCServerService) Serve(ctx context.Context) error {
	lis, err := g.listen()
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	server := g.build()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(lis)
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("grpc server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		stopped := make(chan struct{})
		go func() {
			server.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(g.shutdownTimeout):
			server.Stop()
			<-stopped
		}
		<-errCh
		return ctx.Err()
	}
}

func (g *GRPCServerService) String() string { return g.name }

// ContextHub matches *realtime.Hub's RunWithContext method.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService runs the realtime hub under supervision.
type HubService struct {
	hub  ContextHub
	name string
}

func NewHubService(hub ContextHub) *HubService {
	return &HubService{hub: hub, name: "realtime-hub"}
}

// Serve implements suture.Service.
func (w *HubService) Serve(ctx context.Context) error {
	return w.hub.RunWithContext(ctx)
}

func (w *HubService) String() string { return w.name }
