package process

import "fmt"

// SpawnError is returned when an external command could not be started
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
