package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/krau/detectserver/config"
	"github.com/krau/detectserver/detector"
	"github.com/krau/detectserver/onnx"
	"github.com/krau/detectserver/server"
	"github.com/krau/detectserver/service"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.C()
	slog.SetDefault(newLogger(cfg))
	slog.Info("Starting detect server")

	defer onnx.Destroy()

	// A missing model is not fatal: health checks keep answering and
	// predictions fail until the process is restarted with a usable model.
	var det detector.Detector
	model, err := loadModel(ctx, cfg)
	if err != nil {
		slog.Error("Failed to load model", slog.String("error", err.Error()))
	} else {
		det = model
		defer model.Close()
	}

	svc := service.New(det,
		service.WithTimeout(cfg.InferTimeout()),
		service.WithMaxPixels(cfg.MaxPixels))

	gin.SetMode(gin.ReleaseMode)
	r := server.New(svc, server.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowOrigin:    cfg.AllowOrigin,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Listening on", slog.String("address", srv.Addr), slog.Bool("model_loaded", svc.ModelLoaded()))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", slog.String("error", err.Error()))
	}
}

func loadModel(ctx context.Context, cfg config.Config) (*detector.Model, error) {
	if err := onnx.Init(); err != nil {
		return nil, err
	}
	if err := detector.Fetch(ctx, cfg.ModelUrl, cfg.ModelPath()); err != nil {
		return nil, err
	}
	return detector.Load(detector.Options{
		ModelPath:     cfg.ModelPath(),
		LabelsPath:    cfg.LabelsPath(),
		ImageSize:     cfg.ImageSize,
		Confidence:    cfg.Confidence,
		IoU:           cfg.IoU,
		MaxDetections: cfg.MaxDetections,
		Workers:       cfg.Workers,
		Threads:       cfg.Threads,
	})
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
