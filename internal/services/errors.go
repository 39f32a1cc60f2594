// internal/services/errors.go
package services

// TradeError is the taxonomy every trade mutation reports through. The
// handler layer maps codes to HTTP statuses; the service layer never
// chooses a status itself.
type TradeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"       // caller is not a participant -> 403
	ErrCodeInvalidTransition = "INVALID_TRANSITION" // illegal edge or wrong precondition state -> 400
	ErrCodeValidation        = "VALIDATION_ERROR"   // malformed input -> 400
	ErrCodeNotFound          = "NOT_FOUND"          // trade/user absent -> 404
	ErrCodeConflict          = "CONFLICT"           // lost a concurrent transition race -> 409
)

func (e *TradeError) Error() string {
	return e.Message
}

func ErrUnauthorized(message string) *TradeError {
	return &TradeError{Code: ErrCodeUnauthorized, Message: message}
}

func ErrInvalidTransition(message string) *TradeError {
	return &TradeError{Code: ErrCodeInvalidTransition, Message: message}
}

func ErrValidation(message string) *TradeError {
	return &TradeError{Code: ErrCodeValidation, Message: message}
}

func ErrNotFound(message string) *TradeError {
	return &TradeError{Code: ErrCodeNotFound, Message: message}
}

func ErrConflict(message string) *TradeError {
	return &TradeError{Code: ErrCodeConflict, Message: message}
}
