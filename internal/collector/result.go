package collector

// Status tags the outcome of an operation that can legitimately find nothing.
type Status int

const (
	StatusOK Status = iota
	// StatusEmpty means the report list had no entries.
	StatusEmpty
	// StatusNotFound means the requested item does not exist.
	StatusNotFound
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Result carries either a value or the reason there is none.
// Value is only meaningful when Status is StatusOK.
type Result[T any] struct {
	Status Status
	Value  T
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Status: StatusOK, Value: v}
}

func Empty[T any]() Result[T] {
	return Result[T]{Status: StatusEmpty}
}

func NotFound[T any]() Result[T] {
	return Result[T]{Status: StatusNotFound}
}

func (r Result[T]) IsOK() bool { return r.Status == StatusOK }

// Get returns the value and whether it is present.
func (r Result[T]) Get() (T, bool) {
	return r.Value, r.Status == StatusOK
}
