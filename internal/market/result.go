package market

// Status tags the outcome of a fetch.
type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result carries a value or the reason there is none. Empty and Failed are
// shown to users alike but logged and counted apart.
type Result[T any] struct {
	Status Status
	Value  T
	Reason string
	Err    error
}

func OK[T any](v T) Result[T] { return Result[T]{Status: StatusOK, Value: v} }

func Empty[T any](reason string) Result[T] { return Result[T]{Status: StatusEmpty, Reason: reason} }

func Failed[T any](reason string, err error) Result[T] {
	return Result[T]{Status: StatusFailed, Reason: reason, Err: err}
}

func (r Result[T]) Ok() bool { return r.Status == StatusOK }
