package activation

import (
	"net/url"
	"strings"
)

// TokenParam is the login URL query parameter carrying the token.
const TokenParam = "token"

// LoginURL binds token to the login base URL as base?token=<token>. It
// differs from plain concatenation only when base already has a query (the
// token is appended with '&') or the token holds characters that need query
// escaping.
func LoginURL(base, token string) string {
	sep := "?"
	switch {
	case strings.HasSuffix(base, "?"), strings.HasSuffix(base, "&"):
		sep = ""
	case strings.Contains(base, "?"):
		sep = "&"
	}
	return base + sep + TokenParam + "=" + url.QueryEscape(token)
}
