package ensemble

import "fmt"

// UnknownMethodError reports a retrieval request for a method the ensemble
// was never configured with. Callers handling many methods in one pass can
// detect it with errors.As and keep the results already gathered.
type UnknownMethodError struct {
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown retrieval method %q", e.Method)
}
