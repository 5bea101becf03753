package attributes

import "fmt"

// FieldError reports an invalid attribute together with its key
type FieldError struct {
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}
