package version

import (
	goversion "github.com/hashicorp/go-version"
)

// IsNewer reports whether available is a strictly greater semantic version
// than installed. A leading "v" is accepted on either side.
func IsNewer(available, installed string) (bool, error) {
	a, err := goversion.NewSemver(available)
	if err != nil {
		return false, &ParseError{Version: available, Err: err}
	}
	i, err := goversion.NewSemver(installed)
	if err != nil {
		return false, &ParseError{Version: installed, Err: err}
	}
	return a.GreaterThan(i), nil
}
