package types

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// LinkIDLen is the length of a content-addressed link id in hex characters.
const LinkIDLen = 32

// LinkIDFromURL derives the content-addressed id for a URL: SHA-256 of the
// normalized form, hex-encoded and truncated. Identical URLs (modulo case of
// scheme/host, default port, fragment, trailing slash) map to the same id,
// which is what makes re-submission idempotent.
func LinkIDFromURL(raw string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(raw)))
	return hex.EncodeToString(sum[:])[:LinkIDLen]
}

// NormalizeURL canonicalizes a URL for identity purposes. It never fails:
// unparseable input is normalized to its trimmed form so the id derivation
// stays total and deterministic.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Strip default ports.
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	// A bare trailing slash is the same resource as no path at all.
	if u.Path == "/" && u.RawQuery == "" {
		u.Path = ""
	}

	return u.String()
}
