package endpoint

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrMissingAuthority = errors.New("endpoint has no authority (host) component")
	ErrHasQuery         = errors.New("endpoint must be a base address, query strings are not allowed")
	ErrInvalidFormat    = errors.New("endpoint is not a valid uri")
)

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// Endpoint is a validated base address: one scheme, a mandatory authority,
// an optional path, never a query. It is a value type; construct it once at
// configuration time and copy it freely afterwards.
type Endpoint struct {
	scheme    string
	authority string
	path      string
}

// New parses and normalizes a user-supplied address. Inputs without a scheme
// get https by default; that is not an error, only noted in the log.
func New(raw string) (Endpoint, error) {
	s := strings.TrimSpace(raw)
	if !schemeRe.MatchString(s) {
		log.Println("D! endpoint", raw, "has no scheme, assuming https")
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrMissingAuthority, raw)
	}
	if u.RawQuery != "" || u.ForceQuery {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrHasQuery, raw)
	}

	return Endpoint{
		scheme:    u.Scheme,
		authority: u.Host,
		path:      u.Path,
	}, nil
}

func (e Endpoint) Scheme() string {
	return e.scheme
}

// Authority returns host[:port] exactly as configured.
func (e Endpoint) Authority() string {
	return e.authority
}

// Host returns the hostname alone, without port or brackets. The authority
// is guaranteed by the constructor; a panic here means an Endpoint was
// fabricated without it.
func (e Endpoint) Host() string {
	if e.authority == "" {
		panic("endpoint: Host called on endpoint without authority")
	}
	u := url.URL{Host: e.authority}
	return u.Hostname()
}

func (e Endpoint) Path() string {
	return e.path
}

func (e Endpoint) String() string {
	return e.scheme + "://" + e.authority + e.path
}

// BuildAddress joins the endpoint's base path with a relative path into a
// full address, collapsing duplicate slashes at the seam. An empty query is
// omitted entirely.
func (e Endpoint) BuildAddress(relPath, query string) (string, error) {
	base := strings.Trim(e.path, "/")
	rel := strings.Trim(relPath, "/")

	p := "/"
	if base != "" {
		p += base
	}
	if rel != "" {
		if base != "" {
			p += "/"
		}
		p += rel
	}

	pq := p
	if query != "" {
		pq += "?" + query
	}
	if _, err := url.ParseRequestURI(pq); err != nil {
		return "", fmt.Errorf("%w: joined path %q: %v", ErrInvalidFormat, pq, err)
	}

	return e.scheme + "://" + e.authority + pq, nil
}
