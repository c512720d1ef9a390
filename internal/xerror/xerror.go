// Package xerror defines a discriminated Result type, its Kind, and a set
// of solver error types. No other package in this module imports it:
// pivot and factorization code returns plain Go errors (such as
// linalg.MalformedBasisError) rather than a Result.
package xerror

import "fmt"

// Kind discriminates the outcome of a fallible core routine.
type Kind int

const (
	// Ok means the routine completed normally.
	Ok Kind = iota
	// NeedRefactor means the factorization must be rebuilt from scratch
	// before the caller can proceed (malformed basis, precision loss).
	NeedRefactor
	// InfeasibleAtThisLevel means the current decision level has no
	// feasible continuation; the caller should backtrack.
	InfeasibleAtThisLevel
	// Fatal means a non-recoverable condition was hit; the caller should
	// surface ExitCodeError.
	Fatal
)

func (k Kind) String() string {
	switch k {
		case Ok:
			return "Ok"
		case NeedRefactor:
			return "NeedRefactor"
		case InfeasibleAtThisLevel:
			return "InfeasibleAtThisLevel"
		case Fatal:
			return "Fatal"
		default:
			return "Unknown"
	}
}

// Result is the return value of routines that used to signal non-local
// control flow via exceptions (MalformedBasisException,
// InfeasibleQueryException in the source this core is modeled on).
type Result struct {
	Kind Kind
	Reason string
	Err error
}

// OK constructs a successful result.
func OK() Result { return Result{Kind: Ok} }

// Refactor constructs a NeedRefactor result.
func Refactor(reason string) Result { return Result{Kind: NeedRefactor, Reason: reason} }

// Infeasible constructs an InfeasibleAtThisLevel result.
func Infeasible(reason string) Result { return Result{Kind: InfeasibleAtThisLevel, Reason: reason} }

// FatalErr wraps a fatal error.
func FatalErr(err error) Result { return Result{Kind: Fatal, Err: err} }

// IsOk reports whether the result represents success.
func (r Result) IsOk() bool { return r.Kind == Ok }

func (r Result) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Kind, r.Err)
	}
	if r.Reason != "" {
		return fmt.Sprintf("%s: %s", r.Kind, r.Reason)
	}
	return r.Kind.String()
}

// MalformedBasisError signals that the stored factorization no longer
// represents an invertible basis.
type MalformedBasisError struct {
	Reason string
}

func (e *MalformedBasisError) Error() string {
	return fmt.Sprintf("malformed basis: %s", e.Reason)
}

// InfeasibleQueryError signals that the linear system has no solution
// respecting current bounds at the present decision level.
type InfeasibleQueryError struct {
	Reason string
}

func (e *InfeasibleQueryError) Error() string {
	return fmt.Sprintf("infeasible query: %s", e.Reason)
}

// InconsistentBoundError signals lb[v] > ub[v] for some variable.
type InconsistentBoundError struct {
	Variable int
	Lower float64
	Upper float64
}

func (e *InconsistentBoundError) Error() string {
	return fmt.Sprintf("inconsistent bound on variable %d: lb=%g > ub=%g", e.Variable, e.Lower, e.Upper)
}

// PrecisionDegradationError signals ‖Ax-b‖∞ exceeded the degradation
// threshold and restoration also failed to bring it back within bounds.
type PrecisionDegradationError struct {
	Norm float64
	Threshold float64
}

func (e *PrecisionDegradationError) Error() string {
	return fmt.Sprintf("precision degradation %.6g exceeds threshold %.6g", e.Norm, e.Threshold)
}

// UnsupportedConstraintError is a fatal preprocessing error.
type UnsupportedConstraintError struct {
	Kind string
}

func (e *UnsupportedConstraintError) Error() string {
	return fmt.Sprintf("unsupported constraint: %s", e.Kind)
}

// FeatureNotSupportedError is a fatal error at the affected call site.
type FeatureNotSupportedError struct {
	Feature string
}

func (e *FeatureNotSupportedError) Error() string {
	return fmt.Sprintf("feature not supported: %s", e.Feature)
}
