package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/multierr"
)

// IsValidHTTPURL reports whether raw is an absolute http(s) URL with a host.
func IsValidHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Hostname() != ""
}

// NormalizeURL lower-cases scheme and host, drops default ports and a bare
// trailing slash. Invalid input is returned trimmed but otherwise untouched.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}
	u.Host = host
	if u.Path == "/" && u.RawQuery == "" && u.Fragment == "" {
		u.Path = ""
	}
	return u.String()
}

// Validate checks the user-supplied fields of a monitor. Every violation is
// reported, each wrapped with ErrInvalidMonitor.
func (m *Monitor) Validate() error {
	var err error
	if strings.TrimSpace(m.Name) == "" {
		err = multierr.Append(err, invalid("name is required"))
	}
	if !IsValidHTTPURL(m.URL) {
		err = multierr.Append(err, invalid("url must be an absolute http or https URL"))
	}
	if m.CheckInterval < 0 {
		err = multierr.Append(err, invalid(fmt.Sprintf("check_interval must not be negative, got %d", m.CheckInterval)))
	}
	return err
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidMonitor, msg)
}

// IsInvalid reports whether err came from Validate.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidMonitor)
}
