package predictor

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField  = errors.New("missing field")
	ErrInvalidNumber = errors.New("invalid number")
	ErrUnknownLabel  = errors.New("unknown label")
)

// PredictionError is returned for every input or label-mapping failure. Kind is
// one of the sentinels above.
type PredictionError struct {
	Kind  error
	Field string
	Msg   string
}

func (e *PredictionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *PredictionError) Unwrap() error { return e.Kind }

// ErrorCode returns a stable client-facing code for err.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrInvalidNumber):
		return "invalid_number"
	case errors.Is(err, ErrUnknownLabel):
		return "unknown_label"
	default:
		return "internal"
	}
}

// IsInputError reports whether err was caused by the request rather than the model.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingField) || errors.Is(err, ErrInvalidNumber)
}

func missingField(field string) error {
	return &PredictionError{Kind: ErrMissingField, Field: field, Msg: field}
}

func invalidNumber(field, value string) error {
	return &PredictionError{Kind: ErrInvalidNumber, Field: field, Msg: fmt.Sprintf("%s: could not convert %q to float", field, value)}
}

func unknownLabel(label int) error {
	return &PredictionError{Kind: ErrUnknownLabel, Msg: fmt.Sprintf("no species for class %d", label)}
}
