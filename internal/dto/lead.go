package dto

// LeadRequest is the website contact form payload.
type LeadRequest struct {
	Name    string `json:"name" binding:"required,min=1"`
	Email   string `json:"email" binding:"required,min=3"`
	Message string `json:"message" binding:"required,min=1"`
}

// HealthResponse is returned by the liveness probe.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
