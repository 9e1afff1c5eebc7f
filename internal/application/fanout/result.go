package fanout

import "fmt"

// Result aggregates per-client outcomes of one broadcast.
type Result int

const (
	ResultSuccess Result = iota
	ResultPartialFailure
	ResultFailure
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultPartialFailure:
		return "partial_failure"
	case ResultFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// MarshalText lets Result appear as its name in JSON.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(text []byte) error {
	switch string(text) {
	case "success":
		*r = ResultSuccess
	case "partial_failure":
		*r = ResultPartialFailure
	case "failure":
		*r = ResultFailure
	default:
		return fmt.Errorf("unknown fan-out result %q", text)
	}
	return nil
}

// Aggregate folds succeeded/total into a Result. No clients counts as success.
func Aggregate(succeeded, total int) Result {
	switch {
	case succeeded == total:
		return ResultSuccess
	case succeeded == 0:
		return ResultFailure
	default:
		return ResultPartialFailure
	}
}
