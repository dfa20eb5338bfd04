package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/krau/detectserver/service"
)

const imageField = "image"

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health())
}

func (h *Handler) PredictHandler(c *gin.Context) {
	if !h.svc.ModelLoaded() {
		abortWithError(c, service.ErrModelUnavailable)
		return
	}

	data, err := readUpload(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp, err := h.svc.Predict(c.Request.Context(), data)
	if err != nil {
		abortWithError(c, err)
		return
	}

	slog.Info("Detected classes",
		slog.String("request_id", requestID(c)),
		slog.Any("classes", resp.DetectedClasses))
	c.JSON(http.StatusOK, resp)
}

// readUpload returns the bytes of the first image part that carries a
// filename parameter. Parts without one are plain form values and do not
// count as an upload; a filename parameter that is empty means the client
// submitted the form without choosing a file.
func readUpload(c *gin.Context) ([]byte, error) {
	mr, err := c.Request.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", service.ErrNoFile, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, service.ErrNoFile
		}
		if err != nil {
			return nil, uploadError(service.ErrNoFile, err)
		}
		if part.FormName() != imageField {
			continue
		}
		filename, ok := partFilename(part)
		if !ok {
			continue
		}
		if filename == "" {
			return nil, service.ErrEmptyFile
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, uploadError(service.ErrDecodeFailed, err)
		}
		slog.Debug("Received file",
			slog.String("request_id", requestID(c)),
			slog.String("filename", filename),
			slog.Int("size", len(data)))
		return data, nil
	}
}

// partFilename reports the raw filename parameter of a part and whether the
// parameter is present at all.
func partFilename(part *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	name, ok := params["filename"]
	return name, ok
}

// uploadError classifies a failure while reading the request body. An
// exhausted body limit wins over the fallback kind.
func uploadError(kind, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: %w", service.ErrTooLarge, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}
