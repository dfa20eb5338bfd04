package onnx

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/krau/detectserver/config"
	ort "github.com/yalue/onnxruntime_go"
)

var pathOnce sync.Once
var libPath string

func LibPath() string {
	pathOnce.Do(func() {
		libPath = resolveLibPath(config.C().Libonnx, runtime.GOOS, fileExists)
		if libPath == "" {
			slog.Error("ONNX Runtime library path could not be determined for this OS")
		} else {
			slog.Info("Using ONNX Runtime library", slog.String("path", libPath))
		}
	})
	return libPath
}

var candidates = map[string][]string{
	"linux": {
		"onnxlibs/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	},
	"darwin": {
		"onnxlibs/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
		"/opt/homebrew/lib/libonnxruntime.dylib",
	},
	"windows": {
		"onnxlibs/onnxruntime.dll",
		"onnxruntime.dll",
	},
}

func resolveLibPath(configured, goos string, exists func(string) bool) string {
	if configured != "" {
		return configured
	}
	for _, path := range candidates[goos] {
		if exists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Init loads the shared library and creates the process-wide ONNX Runtime
// environment. Calling it again after a successful call is a no-op.
func Init() error {
	if ort.IsInitialized() {
		return nil
	}
	path := LibPath()
	if path == "" {
		return fmt.Errorf("onnxruntime shared library not found, set libonnx or ONNXRUNTIME_LIB")
	}
	ort.SetSharedLibraryPath(path)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime environment: %w", err)
	}
	return nil
}

func Destroy() {
	if !ort.IsInitialized() {
		return
	}
	if err := ort.DestroyEnvironment(); err != nil {
		slog.Error("Failed to destroy ONNX Runtime environment", slog.String("error", err.Error()))
	}
}
