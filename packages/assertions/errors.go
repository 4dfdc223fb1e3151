package assertions

// AssertionError is the single failure kind raised by a predicate.
type AssertionError struct {
	Message   string
	Predicate string
	Negated   bool
	Actual    any
}

func (e *AssertionError) Error() string {
	return e.Message
}
