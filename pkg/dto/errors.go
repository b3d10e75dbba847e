package dto

// ErrorResponse is the envelope returned for every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Method     string `json:"method"`
	Code       string `json:"code,omitempty"`
	Cause      string `json:"cause,omitempty"`
	Message    string `json:"message"`
}
