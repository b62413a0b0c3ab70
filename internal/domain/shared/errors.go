package shared

// DomainError is an error with a stable machine readable code. The HTTP
// layer maps codes to status codes; posting maps them to retry decisions.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string { return e.Message }

// Is compares codes only, so errors.Is(ErrNotFound.WithMessage("..."), ErrNotFound) holds
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// WithMessage keeps the code and replaces the message
func (e *DomainError) WithMessage(message string) *DomainError {
	return NewDomainError(e.Code, message)
}

var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
)
