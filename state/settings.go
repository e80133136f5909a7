package state

import (
	"fmt"
	"net/url"
)

const (
	// URLKey holds the page the surface displays.
	URLKey = "cctv.url"
	// DefaultURL is used whenever the stored value is missing or unusable.
	DefaultURL = "https://192.168.1.10/"
)

// ValidURL reports whether raw is an absolute URL.
func ValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs()
}

// ResolveURL returns the stored target URL. A missing, non-string, invalid or
// unreadable value is replaced with DefaultURL, which is written back. The
// returned URL is always usable; the error only reports a failed write-back.
func ResolveURL(s *Store) (string, error) {
	st, err := s.Load()
	if err != nil {
		// Corrupt settings are discarded rather than blocking the agent.
		st = make(State)
	}

	if raw, ok := st[URLKey].(string); ok && ValidURL(raw) {
		return raw, nil
	}

	st[URLKey] = DefaultURL
	if err := s.Save(st); err != nil {
		return DefaultURL, fmt.Errorf("persist default url: %w", err)
	}
	return DefaultURL, nil
}

// SetURL validates and stores a new target URL.
func SetURL(s *Store, raw string) error {
	if !ValidURL(raw) {
		return fmt.Errorf("not an absolute url: %q", raw)
	}
	return s.Set(URLKey, raw)
}
