package service

// NoObjectDetected replaces an empty label set in prediction responses.
const NoObjectDetected = "no object detected"

const StatusHealthy = "healthy"

type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

type Prediction struct {
	DetectedClasses []string `json:"detected_classes"`
}
