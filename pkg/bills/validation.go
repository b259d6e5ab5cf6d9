package bills

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError describes one invalid field of a bill.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field of a bill.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// IsValidationError reports whether err carries bill validation failures.
func IsValidationError(err error) bool {
	var ve *ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}

// Validate checks the fields the new-bill form marks as required.
func (b Bill) Validate() error {
	var errs ValidationErrors

	if b.Type == "" {
		errs = append(errs, &ValidationError{Field: "type", Message: "is required"})
	} else if !IsExpenseType(b.Type) {
		errs = append(errs, &ValidationError{Field: "type", Message: "unknown expense type"})
	}
	if b.Date == "" {
		errs = append(errs, &ValidationError{Field: "date", Message: "is required"})
	} else if _, err := time.Parse(DateLayout, b.Date); err != nil {
		errs = append(errs, &ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
	}
	if !b.Amount.IsPositive() {
		errs = append(errs, &ValidationError{Field: "amount", Message: "must be greater than zero"})
	}
	if b.Pct < 0 || b.Pct > 100 {
		errs = append(errs, &ValidationError{Field: "pct", Message: "must be between 0 and 100"})
	}
	if b.Status != "" && !b.Status.Valid() {
		errs = append(errs, &ValidationError{Field: "status", Message: "unknown status"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
