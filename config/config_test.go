package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HOST", "PORT", "ONNXRUNTIME_LIB", "MODEL_URL", "LOG_LEVEL", "MODEL_PATH", "LABELS_PATH", "WORKERS"} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)
	c, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", c.Addr())
	assert.Equal(t, filepath.Join("models", "train.onnx"), c.ModelPath())
	assert.Empty(t, c.LabelsPath())
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, time.Duration(0), c.InferTimeout())
	assert.Equal(t, int64(32<<20), c.MaxUploadBytes())
	assert.Equal(t, 178956970, c.MaxPixels)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", `
port = "9000"
model_dir = "/srv/models"
model_file_name = "yolo11n.onnx"
labels_file_name = "coco.txt"
confidence = 0.5
workers = 4
infer_timeout_sec = 3
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", c.Addr())
	assert.Equal(t, "/srv/models/yolo11n.onnx", c.ModelPath())
	assert.Equal(t, "/srv/models/coco.txt", c.LabelsPath())
	assert.InDelta(t, 0.5, c.Confidence, 1e-6)
	assert.InDelta(t, 0.45, c.IoU, 1e-6)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, 3*time.Second, c.InferTimeout())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", `port = "9000"`)
	t.Setenv("PORT", "8081")
	t.Setenv("MODEL_PATH", "/opt/detect/best.onnx")
	t.Setenv("LABELS_PATH", "/opt/detect/labels.txt")
	t.Setenv("WORKERS", "2")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8081", c.Addr())
	assert.Equal(t, "/opt/detect/best.onnx", c.ModelPath())
	assert.Equal(t, "/opt/detect/labels.txt", c.LabelsPath())
	assert.Equal(t, 2, c.Workers)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"port":       `port = "http"`,
		"workers":    `workers = 0`,
		"image size": `image_size = 500`,
		"confidence": `confidence = 1.5`,
		"zero conf":  `confidence = 0`,
		"zero iou":   `iou = 0`,
		"max pixels": `max_pixels = -1`,
		"syntax":     `port = `,
	}
	clearEnv(t)
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.toml", content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsInvalidWorkersEnv(t *testing.T) {
	t.Setenv("WORKERS", "many")
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadRelativeLabelsEnvUsesWorkingDir(t *testing.T) {
	clearEnv(t)
	t.Setenv("LABELS_PATH", "labels.txt")
	wd, err := os.Getwd()
	require.NoError(t, err)

	c, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "labels.txt"), c.LabelsPath())
}
