package serrors

import "fmt"

// Base is a coded error shared by infrastructural packages. Service-level
// errors carry their own richer type; Base covers everything below that.
type Base struct {
	Code    string
	Message string
	Details string
}

func (e *Base) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
}

func NewError(code, message, details string) *Base {
	return &Base{Code: code, Message: message, Details: details}
}

func NewFieldRequiredError(field, details string) *Base {
	return &Base{Code: "FIELD_REQUIRED", Message: fmt.Sprintf("%s is required", field), Details: details}
}
