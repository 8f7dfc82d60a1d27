package models

// Коды ошибок API.
const (
	ErrCodeBadRequest        = 40000
	ErrCodeValidation        = 40001
	ErrCodeNotFound          = 40400
	ErrCodeConflict          = 40900
	ErrCodeTooManyRequests   = 42900
	ErrCodeInternal          = 50000
	ErrCodeUpstreamFailed    = 50200
	ErrCodeExtractionFailed  = 42200
	ErrCodeInvalidTransition = 40901
)

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
