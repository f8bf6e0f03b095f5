package github

import "fmt"

// TransportError reports a network-level failure talking to the release host
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError reports a non-success HTTP status from the release host
type APIError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GitHub API request failed: %s", e.Status)
	}
	return fmt.Sprintf("GitHub API request failed: %s - %s", e.Status, e.Body)
}

// DecodeError reports a response body that does not have the expected shape
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
