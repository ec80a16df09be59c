package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"
)

// Handler отдаёт /healthz и заглушку на "/".
func Handler(healthzBody string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(healthzBody))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("mistral ocr telegram bot"))
	})
	return mux
}

// StartHTTP слушает addr, пока не отменён ctx. Штатная остановка возвращает nil.
func StartHTTP(ctx context.Context, addr, healthzBody string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(healthzBody),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("health server listening on %s/healthz", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
