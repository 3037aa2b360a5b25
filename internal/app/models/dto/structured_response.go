package dto

import "time"

// APIResponse is the envelope for every successful JSON response
type APIResponse struct {
	Success   bool         `json:"success" example:"true"`
	Message   string       `json:"message,omitempty" example:"Operation completed successfully"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp" example:"2025-04-23T12:01:05.123Z"`
}

// NewSuccessResponse wraps data without a message
func NewSuccessResponse(data interface{}) APIResponse {
	return NewStructuredResponse(data, "")
}

// NewStructuredResponse creates a standard success response
func NewStructuredResponse(data interface{}, message string) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// MessageResponse is used by endpoints that only report an outcome
type MessageResponse struct {
	Message string `json:"message" example:"Course deleted successfully"`
}
