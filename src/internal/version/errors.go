package version

import (
	"errors"
	"fmt"
)

var (
	// ErrNoReleases is returned when the host lists zero releases
	ErrNoReleases = errors.New("releases fetch returned 0 releases")
	// ErrNoTags is returned when the host lists zero tags
	ErrNoTags = errors.New("tags fetch returned 0 tags")
)

// NoMatchingTagError is returned when the newest release has no tag of the same name
type NoMatchingTagError struct {
	TagName string
}

func (e *NoMatchingTagError) Error() string {
	return fmt.Sprintf("latest release has no matching tag: %q", e.TagName)
}

// ParseError is returned for a malformed semantic version string
type ParseError struct {
	Version string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %v", e.Version, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FetchError wraps a failed release or tag listing
type FetchError struct {
	// Resource is "releases" or "tags"
	Resource string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch failed: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
