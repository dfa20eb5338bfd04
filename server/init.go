package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/krau/detectserver/service"
)

type Options struct {
	// MaxUploadBytes caps the /predict body; zero disables the cap.
	MaxUploadBytes int64
	AllowOrigin    string
}

func New(svc *service.Service, opts Options) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		RequestID(),
		AccessLog(),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			abortWithError(c, fmt.Errorf("panic: %v", recovered))
		}),
		CORS(opts.AllowOrigin),
	)

	h := NewHandler(svc)
	r.GET("/", h.HealthHandler)
	r.POST("/predict", LimitBody(opts.MaxUploadBytes), h.PredictHandler)
	return r
}
