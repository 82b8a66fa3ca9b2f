package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for request validation.
var (
	ErrMissingSkill  = errors.New("skill is required")
	ErrTooManySkills = errors.New("too many skills in one request")
	ErrTopKRange     = errors.New("top_k out of range")
)

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}

// ErrTooManyRecords returns an error indicating a batch exceeds its size limit.
func ErrTooManyRecords(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum of %d records", field, maxLen)
}
