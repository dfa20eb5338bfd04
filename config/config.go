package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Host    string `toml:"host" mapstructure:"host"`
	Port    string `toml:"port" mapstructure:"port"`
	Libonnx string `toml:"libonnx" mapstructure:"libonnx"`

	ModelUrl       string `toml:"model_url" mapstructure:"model_url"`
	ModelDir       string `toml:"model_dir" mapstructure:"model_dir"`
	ModelFileName  string `toml:"model_file_name" mapstructure:"model_file_name"`
	LabelsFileName string `toml:"labels_file_name" mapstructure:"labels_file_name"`

	ImageSize     int     `toml:"image_size" mapstructure:"image_size"`
	Confidence    float32 `toml:"confidence" mapstructure:"confidence"`
	IoU           float32 `toml:"iou" mapstructure:"iou"`
	MaxDetections int     `toml:"max_detections" mapstructure:"max_detections"`
	Workers       int     `toml:"workers" mapstructure:"workers"`
	Threads       int     `toml:"threads" mapstructure:"threads"`

	InferTimeoutSec int    `toml:"infer_timeout_sec" mapstructure:"infer_timeout_sec"`
	MaxUploadMB     int    `toml:"max_upload_mb" mapstructure:"max_upload_mb"`
	MaxPixels       int    `toml:"max_pixels" mapstructure:"max_pixels"`
	AllowOrigin     string `toml:"allow_origin" mapstructure:"allow_origin"`

	LogLevel  string `toml:"log_level" mapstructure:"log_level"`
	LogFormat string `toml:"log_format" mapstructure:"log_format"`
}

// Default returns the configuration used when neither a config file nor
// environment variables say otherwise.
func Default() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           "5000",
		ModelDir:       "models",
		ModelFileName:  "train.onnx",
		LabelsFileName: "",
		ImageSize:      640,
		Confidence:     0.25,
		IoU:            0.45,
		MaxDetections:  300,
		Workers:        1,
		MaxUploadMB:    32,
		MaxPixels:      178956970,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

var (
	cfg      Config
	loadOnce sync.Once
)

func C() Config {
	loadOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to load .env file", slog.String("error", err.Error()))
		}
		path := os.Getenv("CONFIG_FILE")
		if path == "" {
			path = "config.toml"
		}
		c, err := Load(path)
		if err != nil {
			panic(err)
		}
		cfg = c
	})
	return cfg
}

// Load reads the TOML file at path on top of the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	c := Default()
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"HOST":            &c.Host,
		"PORT":            &c.Port,
		"ONNXRUNTIME_LIB": &c.Libonnx,
		"MODEL_URL":       &c.ModelUrl,
		"LOG_LEVEL":       &c.LogLevel,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		c.ModelDir, c.ModelFileName = filepath.Split(v)
	}
	// LABELS_PATH is relative to the working directory, not model_dir.
	if v := os.Getenv("LABELS_PATH"); v != "" {
		abs, err := filepath.Abs(v)
		if err != nil {
			return fmt.Errorf("invalid LABELS_PATH %q: %w", v, err)
		}
		c.LabelsFileName = abs
	}
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WORKERS %q: %w", v, err)
		}
		c.Workers = n
	}
	return nil
}

func (c Config) validate() error {
	if _, err := strconv.ParseUint(c.Port, 10, 16); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ImageSize <= 0 || c.ImageSize%32 != 0 {
		return fmt.Errorf("image_size must be a positive multiple of 32, got %d", c.ImageSize)
	}
	if c.Confidence <= 0 || c.Confidence > 1 || c.IoU <= 0 || c.IoU > 1 {
		return fmt.Errorf("confidence and iou must be within (0, 1]")
	}
	if c.MaxPixels < 0 {
		return fmt.Errorf("max_pixels must not be negative, got %d", c.MaxPixels)
	}
	return nil
}

func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

func (c Config) ModelPath() string {
	return filepath.Join(c.ModelDir, c.ModelFileName)
}

// LabelsPath is empty when the class names should come from the model
// metadata.
func (c Config) LabelsPath() string {
	if c.LabelsFileName == "" {
		return ""
	}
	if filepath.IsAbs(c.LabelsFileName) || filepath.Dir(c.LabelsFileName) != "." {
		return c.LabelsFileName
	}
	return filepath.Join(c.ModelDir, c.LabelsFileName)
}

func (c Config) InferTimeout() time.Duration {
	return time.Duration(c.InferTimeoutSec) * time.Second
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
