package envelope

import (
	"fmt"
	"strings"
)

// Validator accumulates field problems for one request DTO.
// Example:
//
//	var v envelope.Validator
//	v.Required("queueName", req.QueueName)
//	v.Range("delaySeconds", delay, 0, 900)
//	if err := v.Err(); err != nil {
//	    return err
//	}
type Validator struct {
	problems []string
}

// Required records a problem when value is empty or only whitespace.
func (v *Validator) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.problems = append(v.problems, field+" is required")
	}
}

// Range records a problem when value lies outside [min, max].
func (v *Validator) Range(field string, value, min, max int64) {
	if value < min || value > max {
		v.problems = append(v.problems, fmt.Sprintf("%s must be between %d and %d", field, min, max))
	}
}

// Addf records a free-form problem.
func (v *Validator) Addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// Err returns a *ValidationError when any problem was recorded, nil otherwise.
func (v *Validator) Err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: append([]string(nil), v.problems...)}
}
