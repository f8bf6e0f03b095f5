package extract

import "fmt"

// ArchiveError reports malformed archive data
type ArchiveError struct {
	Entry string
	Err   error
}

func (e *ArchiveError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("invalid archive: %v", e.Err)
	}
	return fmt.Sprintf("invalid archive entry %q: %v", e.Entry, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// IOError reports a filesystem failure while writing extracted entries
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
