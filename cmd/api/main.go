package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"video-transcripts-go/internal/cache"
	"video-transcripts-go/internal/config"
	"video-transcripts-go/internal/logger"
	"video-transcripts-go/internal/service"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "video-transcripts-go").Info("starting service")

	cfg := config.Load()
	if cfg.APIKey == "" {
		log.Warn("TRANSCRIBE_API_KEY not set: running in captions-only mode")
	}

	store, err := cache.Open(cfg.CachePath)
	if err != nil {
		log.WithError(err).Fatal("failed to open transcript cache")
	}
	defer store.Close()

	svc := service.New(cfg, store)

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})

	// transcript endpoint
	mux.HandleFunc("/transcript", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "transcript")

		videoID := r.URL.Query().Get("video_id")
		if videoID == "" {
			reqLog.Warn("missing video_id")
			http.Error(w, "missing video_id", http.StatusBadRequest)
			return
		}
		reqLog = reqLog.WithField("video_id", videoID)
		reqLog.Info("transcript request received")

		start := time.Now()
		transcript, err := svc.GetTranscript(r.Context(), videoID)
		reqLog.WithField("duration_ms", time.Since(start).Milliseconds()).Info("pipeline finished")

		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			reqLog.WithError(err).Warn("transcription failed")
			status := http.StatusBadGateway
			var nf *service.NoFallbackError
			if errors.As(err, &nf) {
				status = http.StatusUnprocessableEntity
			}
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(transcript); err != nil {
			reqLog.WithError(err).Error("failed to write response")
		}
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Minute, // jobs can legitimately run long
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}
