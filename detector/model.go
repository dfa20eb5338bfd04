package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

type Options struct {
	ModelPath string
	// LabelsPath overrides the class names embedded in the model metadata.
	LabelsPath string

	ImageSize     int
	Confidence    float32
	IoU           float32
	MaxDetections int
	Workers       int
	Threads       int
}

func (o *Options) setDefaults() {
	if o.ImageSize <= 0 {
		o.ImageSize = 640
	}
	if o.Confidence <= 0 {
		o.Confidence = 0.25
	}
	if o.IoU <= 0 {
		o.IoU = 0.45
	}
	if o.MaxDetections <= 0 {
		o.MaxDetections = 300
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
}

var ErrClosed = errors.New("model is closed")

// session is one runnable copy of the network. AdvancedSession binds its
// tensors at creation, so a session serves one request at a time.
type session struct {
	run    *ort.AdvancedSession
	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]
}

func (s *session) destroy() {
	if s.run != nil {
		s.run.Destroy()
	}
	if s.input != nil {
		s.input.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
}

// Model is an ONNX YOLO detector. The ONNX Runtime environment must be
// initialized before Load.
type Model struct {
	names    Names
	decoder  decoder
	size     int
	pool     chan *session
	sessions []*session

	closeOnce sync.Once
}

func Load(opts Options) (*Model, error) {
	opts.setDefaults()

	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("expected one input and at least one output, got %d and %d", len(inputs), len(outputs))
	}

	size, err := inputSize(inputs[0].Dimensions, opts.ImageSize)
	if err != nil {
		return nil, err
	}

	names, err := loadNames(opts)
	if err != nil {
		return nil, err
	}
	outDims := append(ort.Shape(nil), outputs[0].Dimensions...)
	if len(outDims) > 0 && outDims[0] <= 0 {
		outDims[0] = 1
	}
	lay, classes, err := detectLayout(outDims, len(names))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		slog.Warn("Model has no class names, using numeric labels", slog.Int("classes", classes))
		names = numberedNames(classes)
	}
	anchors := int(outDims[2])
	if lay == layoutRows {
		anchors = int(outDims[1])
	}

	m := &Model{
		names: names,
		size:  size,
		decoder: decoder{
			layout:     lay,
			classes:    classes,
			anchors:    anchors,
			confidence: opts.Confidence,
			iou:        opts.IoU,
			maxDet:     opts.MaxDetections,
		},
		pool: make(chan *session, opts.Workers),
	}

	for i := 0; i < opts.Workers; i++ {
		s, err := newSession(opts, inputs[0].Name, outputs[0].Name, size, outDims)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.sessions = append(m.sessions, s)
		m.pool <- s
	}

	slog.Info("Model loaded",
		slog.String("path", opts.ModelPath),
		slog.Int("classes", len(names)),
		slog.Int("input_size", size),
		slog.String("layout", lay.String()),
		slog.Int("workers", opts.Workers))
	return m, nil
}

func newSession(opts Options, inputName, outputName string, size int, outShape ort.Shape) (*session, error) {
	sessOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer sessOpts.Destroy()
	if opts.Threads > 0 {
		if err := sessOpts.SetIntraOpNumThreads(opts.Threads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	s := &session{}
	s.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	s.output, err = ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	s.run, err = ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.Value{s.input},
		[]ort.Value{s.output},
		sessOpts,
	)
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create ONNX Runtime session: %w", err)
	}
	return s, nil
}

// inputSize returns the square spatial size of an NCHW input. Dynamic
// dimensions fall back to the configured size.
func inputSize(dims ort.Shape, fallback int) (int, error) {
	if len(dims) != 4 || (dims[1] != 3 && dims[1] > 0) {
		return 0, fmt.Errorf("unsupported input shape %v, want [1, 3, h, w]", dims)
	}
	h, w := int(dims[2]), int(dims[3])
	switch {
	case h <= 0 && w <= 0:
		return fallback, nil
	case h != w:
		return 0, fmt.Errorf("non-square input %dx%d is not supported", w, h)
	default:
		return h, nil
	}
}

func loadNames(opts Options) (Names, error) {
	if opts.LabelsPath != "" {
		names, err := ReadLabels(opts.LabelsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read labels: %w", err)
		}
		return names, nil
	}

	meta, err := ort.GetModelMetadata(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}
	defer meta.Destroy()
	raw, ok, err := meta.LookupCustomMetadataMap("names")
	if err != nil {
		return nil, fmt.Errorf("failed to look up class names: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return ParseNames(raw)
}

func (m *Model) Names() Names {
	return m.names
}

// Detect runs one inference. It waits for a free session and for the run
// itself, giving up when ctx is done; an abandoned run still completes and
// returns its session to the pool.
func (m *Model) Detect(ctx context.Context, frame *Frame) ([]Result, error) {
	if frame == nil || frame.Width == 0 || frame.Height == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	input := make([]float32, 3*m.size*m.size)
	lb := preprocess(frame, m.size, input)

	var s *session
	select {
	case s = <-m.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if s == nil {
		return nil, ErrClosed
	}

	type runResult struct {
		out []float32
		err error
	}
	done := make(chan runResult, 1)
	go func() {
		defer func() { m.pool <- s }()
		copy(s.input.GetData(), input)
		if err := s.run.Run(); err != nil {
			done <- runResult{err: fmt.Errorf("inference failed: %w", err)}
			return
		}
		out := make([]float32, len(s.output.GetData()))
		copy(out, s.output.GetData())
		done <- runResult{out: out}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return []Result{{Detections: m.decoder.decode(r.out, lb)}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close waits for in-flight runs and destroys every session. Detect calls
// made afterwards fail with ErrClosed.
func (m *Model) Close() {
	m.closeOnce.Do(func() {
		for range m.sessions {
			<-m.pool
		}
		for _, s := range m.sessions {
			s.destroy()
		}
		close(m.pool)
	})
}
