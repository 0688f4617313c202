package workers

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"gokaldbridge/config"
	"gokaldbridge/workers/handlers"
)

// Worker_HTTP serves the bridge API on the main goroutine and drives graceful
// shutdown: on SIGINT/SIGTERM it stops the server, then calls onShutdown so
// the background workers exit too.
func Worker_HTTP(cfg config.Configuration, h *handlers.Handler, onShutdown func()) {
	log.Printf("Starting HTTP service")

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Options("/*", CORSHeaders)

	r.Get("/state", h.State)
	r.Get("/chains", h.Chains)
	r.Get("/pools", h.Pools)
	r.Get("/stats", h.Stats)
	r.Get("/balance/home", h.HomeBalance)

	r.Get("/transfers/pending", h.PendingTransfers)
	r.Get("/transfers/failed", h.FailedTransfers)

	r.Post("/transfer", h.Initiate)
	r.Post("/transfer/{id}/confirm", h.Confirm)
	r.Post("/transfer/{id}/complete", h.Complete)

	r.Post("/liquidity/add", h.AddLiquidity)
	r.Post("/liquidity/remove", h.RemoveLiquidity)

	var server *http.Server

	if cfg.Server.UseSSL {
		cert, _ := tls.LoadX509KeyPair("certchain.pem", "privatekey.pem")
		server = &http.Server{
			Addr:    ":443",
			Handler: r,
			TLSConfig: &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			},
		}
	} else {
		port := cfg.Server.Port
		if port == 0 {
			port = 8080
		}
		server = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if cfg.Server.UseSSL {
			if err := server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				log.Fatalf("error listening to: %s", err)
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("error listening to: %s", err)
			}
		}
	}()
	log.Print("HTTP service started")

	<-done
	log.Print("HTTP service stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP service shutdown error: %+v", err)
	}
	log.Print("HTTP service shutdown normal")

	// stop background workers
	onShutdown()
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, X-Requested-With")
}
