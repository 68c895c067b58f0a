package store

// ValidationError is returned when an operation rejects its input before
// contacting the remote collection.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError is returned by FetchEvent when the document does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "not found"
}
