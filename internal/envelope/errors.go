package envelope

import "fmt"

// DecodeError indicates the raw record was not a well-formed envelope,
// either not valid JSON or missing a required top-level key.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode envelope: %s", e.Reason)
}

// ValidationError indicates a decoded envelope could not be lifted into an
// event: its op is not create/update, a required event field is missing
// from after or is not a non-empty string, or a UUID field is unparseable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate event field %q: %s", e.Field, e.Reason)
}
