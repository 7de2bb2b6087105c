package domain

import "strings"

// Well-known result error codes.
const (
	CodeConcurrencyFailure = "ConcurrencyFailure"
	CodeDuplicateKey       = "DuplicateKey"
	CodeInvalidRoleName    = "InvalidRoleName"
	CodeDuplicateRoleName  = "DuplicateRoleName"
)

// ResultError describes a single reason an operation failed.
type ResultError struct {
	Code        string
	Description string
}

// Result is the outcome of a mutating store operation. A failed Result is an
// expected outcome (validation failure, conflicting write) and is returned
// alongside a nil error.
type Result struct {
	Succeeded bool
	Errors    []ResultError
}

// Success returns a successful Result.
func Success() Result {
	return Result{Succeeded: true}
}

// Failed returns a failed Result carrying errs.
func Failed(errs ...ResultError) Result {
	return Result{Succeeded: false, Errors: errs}
}

// ConcurrencyFailure is the failed Result of a write that matched no document.
func ConcurrencyFailure() Result {
	return Failed(ResultError{
		Code:        CodeConcurrencyFailure,
		Description: "optimistic concurrency failure, object has been modified or removed",
	})
}

// Codes returns the error codes of r in order.
func (r Result) Codes() []string {
	codes := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		codes = append(codes, e.Code)
	}
	return codes
}

func (r Result) String() string {
	if r.Succeeded {
		return "Succeeded"
	}
	return "Failed: " + strings.Join(r.Codes(), ",")
}
