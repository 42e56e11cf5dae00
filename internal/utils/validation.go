package utils

import (
	"fmt"
	"net/url"

	"github.com/asaskevich/govalidator"
)

// IsBaseURL reports whether rawURL is an absolute http(s) URL with no query
// string or fragment, so it can safely be used as a base for joining paths.
func IsBaseURL(rawURL string) (bool, error) {
	if !govalidator.IsRequestURL(rawURL) {
		return false, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parsing url %q: %w", rawURL, err)
	}

	isHTTP := u.Scheme == "http" || u.Scheme == "https"
	return isHTTP && u.Host != "" && u.RawQuery == "" && u.Fragment == "", nil
}
