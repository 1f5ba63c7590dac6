package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/mercadito/internal/observability/logger"
)

// Serve levanta el servidor y lo apaga graceful cuando el contexto se
// cancela. Bloquea hasta que el server termina.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.L().Warn("shutdown forzado", logger.Err(err))
			_ = srv.Close()
		}
	}()

	logger.L().Info("http server listening", logger.String("addr", addr))
	err := srv.ListenAndServe()
	<-done
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
