package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/propertyscope/propertyscope-api/app"
)

const shutdownGrace = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer rt.Close()

	srv := &http.Server{
		Addr:              rt.Config.HTTPAddr,
		Handler:           rt.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		rt.Logger.Error("listen failed", zap.String("addr", srv.Addr), zap.Error(err))
		return
	}

	rt.Logger.Info("listening", zap.String("addr", ln.Addr().String()))
	if err := serve(ctx, srv, ln, rt.Logger, shutdownGrace); err != nil {
		rt.Logger.Error("server failed", zap.Error(err))
	}
}

// serve runs srv on ln until ctx is done, then returns only after in-flight
// requests have drained or grace has elapsed.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, logger *zap.Logger, grace time.Duration) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-drained
	logger.Info("server stopped")
	return nil
}
