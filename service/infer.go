package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krau/detectserver/detector"
)

// Service answers health and predict requests. The detector is optional: a
// nil detector means the model failed to load.
type Service struct {
	det       detector.Detector
	timeout   time.Duration
	maxPixels int
}

// DefaultMaxPixels is the decompression bomb limit applied unless
// WithMaxPixels says otherwise.
const DefaultMaxPixels = 178956970

type Option func(*Service)

// WithTimeout bounds each inference call, including the wait for a free
// session. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithMaxPixels caps the pixel count of an uploaded image. Zero disables
// the cap.
func WithMaxPixels(n int) Option {
	return func(s *Service) {
		s.maxPixels = n
	}
}

func New(det detector.Detector, opts ...Option) *Service {
	s := &Service{det: det, maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ModelLoaded() bool {
	return s.det != nil
}

func (s *Service) Health() Health {
	return Health{Status: StatusHealthy, ModelLoaded: s.ModelLoaded()}
}

// Predict decodes an uploaded image, runs detection and returns the unique
// class names found in it.
func (s *Service) Predict(ctx context.Context, data []byte) (*Prediction, error) {
	if !s.ModelLoaded() {
		return nil, ErrModelUnavailable
	}
	frame, format, err := DecodeImage(data, s.maxPixels)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Image decoded",
		slog.String("format", format),
		slog.Int("width", frame.Width),
		slog.Int("height", frame.Height))

	results, err := s.detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	labels, err := CollectLabels(results, s.det.Names())
	if err != nil {
		return nil, err
	}
	return &Prediction{DetectedClasses: labels}, nil
}

func (s *Service) detect(ctx context.Context, frame *detector.Frame) ([]detector.Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	results, err := s.det.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInferenceFailed, err)
	}
	slog.DebugContext(ctx, "Inference finished", slog.Duration("took", time.Since(start)))
	return results, nil
}
