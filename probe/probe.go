// Package probe models the result of an existence check against a remote
// resource. A check can find the resource, learn that it is absent, or fail
// to reach a verdict at all; the last two look alike on the wire but are kept
// apart here so they can be logged and counted separately.
package probe

// Outcome is the verdict of one existence check.
type Outcome int

const (
	Found Outcome = iota
	NotFound
	ProbeError
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case ProbeError:
		return "probe_error"
	default:
		return "unknown"
	}
}

// Result carries the outcome and, for ProbeError, the error that prevented a
// verdict.
type Result struct {
	Outcome Outcome
	Err     error
}

// Exists reports whether the resource was positively found. NotFound and
// ProbeError both report false.
func (r Result) Exists() bool {
	return r.Outcome == Found
}

// OK returns a Found result.
func OK() Result { return Result{Outcome: Found} }

// Missing returns a NotFound result.
func Missing() Result { return Result{Outcome: NotFound} }

// Error returns a ProbeError result wrapping err.
func Error(err error) Result { return Result{Outcome: ProbeError, Err: err} }
