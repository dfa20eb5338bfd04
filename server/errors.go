package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/krau/detectserver/service"
)

type publicError struct {
	status  int
	message string
}

var errProcess = publicError{http.StatusInternalServerError, "Failed to process image"}

var publicErrors = []struct {
	kind error
	resp publicError
}{
	{service.ErrModelUnavailable, publicError{http.StatusInternalServerError, "Model not loaded"}},
	{service.ErrNoFile, publicError{http.StatusBadRequest, "No image uploaded"}},
	{service.ErrEmptyFile, publicError{http.StatusBadRequest, "No selected file"}},
	{service.ErrTooLarge, publicError{http.StatusRequestEntityTooLarge, "Image too large"}},
	{service.ErrDecodeFailed, errProcess},
	{service.ErrInferenceFailed, errProcess},
}

func classify(err error) publicError {
	for _, pe := range publicErrors {
		if errors.Is(err, pe.kind) {
			return pe.resp
		}
	}
	return errProcess
}

// abortWithError is the only place a failure becomes a response. Only the
// public message reaches the client.
func abortWithError(c *gin.Context, err error) {
	pe := classify(err)
	attrs := []any{
		slog.String("request_id", requestID(c)),
		slog.Int("status", pe.status),
		slog.String("error", err.Error()),
	}
	if pe.status >= http.StatusInternalServerError {
		slog.Error("Predict failed", attrs...)
	} else {
		slog.Warn("Predict rejected", attrs...)
	}
	c.AbortWithStatusJSON(pe.status, gin.H{"error": pe.message})
}
