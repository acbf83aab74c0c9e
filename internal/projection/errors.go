package projection

import "fmt"

// NotFoundError indicates an update handler targeted a document that does
// not exist. Per spec, this is a recoverable-at-consumer error: the
// dispatcher counts it and moves on, it never retries the message.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s document not found: %s", e.Collection, e.ID)
}
