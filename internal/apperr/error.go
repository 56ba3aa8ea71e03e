package apperr

import "fmt"

// Error is the application's error type. It carries enough structure for
// handlers to build the `{ code, message, details }` wire shape without any
// type-switching, and enough to attribute a batch failure to a specific
// Change by index and tempId.
type Error struct {
	Code        Code
	Message     string
	Err         error
	ChangeIndex *int
	TempID      *string
	Details     map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap allows errors.Is/errors.As to reach the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// WithChangeIndex attaches the BOM change index this error pertains to.
func (e *Error) WithChangeIndex(i int) *Error {
	e.ChangeIndex = &i
	return e
}

// WithTempID attaches the tempId of the change this error pertains to.
func (e *Error) WithTempID(id string) *Error {
	e.TempID = &id
	return e
}

// WithDetail adds a single key to the details map, creating it if needed.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newErr(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func NewUsage(message string) *Error                  { return newErr(CodeUsage, message, nil) }
func NewValidation(message string) *Error             { return newErr(CodeValidation, message, nil) }
func NewResolution(message string) *Error             { return newErr(CodeResolution, message, nil) }
func NewConflict(message string) *Error               { return newErr(CodeConflict, message, nil) }
func NewExecution(message string, err error) *Error   { return newErr(CodeExecution, message, err) }
func NewRateLimited(message string) *Error            { return newErr(CodeRateLimited, message, nil) }
func NewPayloadTooLarge(message string) *Error        { return newErr(CodePayloadTooLarge, message, nil) }
func NewNotFound(message string) *Error               { return newErr(CodeNotFound, message, nil) }
func NewTimeout(message string) *Error                { return newErr(CodeTimeout, message, nil) }
func NewFatal(message string, err error) *Error       { return newErr(CodeFatal, message, err) }

// Wrap preserves the code of an existing *Error, or creates a Fatal wrapper
// around an arbitrary error.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok {
		return &Error{
			Code:        ae.Code,
			Message:     message + ": " + ae.Message,
			Err:         ae.Err,
			ChangeIndex: ae.ChangeIndex,
			TempID:      ae.TempID,
			Details:     ae.Details,
		}
	}
	return newErr(CodeFatal, message, err)
}

// CodeOf extracts the Code of err, defaulting to CodeFatal for plain errors.
func CodeOf(err error) Code {
	if ae, ok := err.(*Error); ok {
		return ae.Code
	}
	return CodeFatal
}

func IsNotFound(err error) bool   { return CodeOf(err) == CodeNotFound }
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }
func IsConflict(err error) bool   { return CodeOf(err) == CodeConflict }
