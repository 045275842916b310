package types

import (
	"net/textproto"
	"strings"
)

// Known header names inspected by the engine.
const (
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderRealIP       = "X-Real-Ip"
	HeaderClientIP     = "X-Client-Ip"
	HeaderTrueClientIP = "True-Client-Ip"
	HeaderUserAgent    = "User-Agent"

	// HeaderHoneypot is never set by legitimate clients; its presence marks
	// tooling that blindly replays captured header sets.
	HeaderHoneypot = "X-Abusegate-Token"
)

// Headers is a case-insensitive header map. Lookups go through canonical MIME
// header keys so callers never deal with raw string casing.
type Headers map[string][]string

// NewHeaders canonicalizes the given raw header map.
func NewHeaders(raw map[string][]string) Headers {
	h := make(Headers, len(raw))
	for k, v := range raw {
		key := textproto.CanonicalMIMEHeaderKey(k)
		h[key] = append(h[key], v...)
	}
	return h
}

// Get returns the first value for the named header, or "".
func (h Headers) Get(name string) string {
	values := h[textproto.CanonicalMIMEHeaderKey(name)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Values returns all values for the named header.
func (h Headers) Values(name string) []string {
	return h[textproto.CanonicalMIMEHeaderKey(name)]
}

// Has reports whether the named header is present.
func (h Headers) Has(name string) bool {
	_, ok := h[textproto.CanonicalMIMEHeaderKey(name)]
	return ok
}

// ForwardedFor returns the first hop of the X-Forwarded-For chain.
func (h Headers) ForwardedFor() string {
	v := h.Get(HeaderForwardedFor)
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func (h Headers) RealIP() string {
	return strings.TrimSpace(h.Get(HeaderRealIP))
}

func (h Headers) ClientIP() string {
	return strings.TrimSpace(h.Get(HeaderClientIP))
}

func (h Headers) TrueClientIP() string {
	return strings.TrimSpace(h.Get(HeaderTrueClientIP))
}

func (h Headers) UserAgent() string {
	return h.Get(HeaderUserAgent)
}
