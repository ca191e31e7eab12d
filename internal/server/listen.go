package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/phobologic/reponav/internal/comm"
)

// WebsocketPath is where Handler accepts navigator connections.
const WebsocketPath = "/ws"

const shutdownTimeout = 5 * time.Second

// Handler returns an http.Handler that upgrades requests on WebsocketPath
// and serves each connection until it closes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebsocketPath, s.serveWebsocket)
	return mux
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := comm.Upgrade(w, r)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.log.Info("client connected", "remote", r.RemoteAddr)
	if err := s.Serve(ctx, conn); err != nil {
		s.log.Error("connection ended", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.log.Info("client disconnected", "remote", r.RemoteAddr)
}

// ListenAndServe accepts websocket connections on addr until ctx ends or a
// client sends a shutdown envelope.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("listening", "addr", addr, "root", s.root, "endpoint", s.endpoint)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-s.done:
	}
	s.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("server stopped")
	return nil
}
