package http

import (
	"net/http"
	"strconv"
	"strings"
)

// ListParams carries the pagination and filtering parameters recognized by
// every list-shaped endpoint (projects, repositories, history).
type ListParams struct {
	Limit  int
	Page   int
	Cursor string
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ParseListParams reads limit/page/cursor from a request's query parameters,
// clamping limit to a sane range.
func ParseListParams(params map[string]string) ListParams {
	lp := ListParams{Limit: defaultListLimit, Page: 1}

	for key, value := range params {
		switch {
		case strings.EqualFold(key, "limit"):
			if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
				lp.Limit = parsed
			}
		case strings.EqualFold(key, "page"):
			if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
				lp.Page = parsed
			}
		case strings.EqualFold(key, "cursor"):
			lp.Cursor = value
		}
	}

	if lp.Limit > maxListLimit {
		lp.Limit = maxListLimit
	}

	return lp
}

// IPAddrFromRemoteAddr removes port information from string.
func IPAddrFromRemoteAddr(s string) string {
	idx := strings.LastIndex(s, ":")
	if idx == -1 {
		return s
	}

	return s[:idx]
}

// GetRemoteAddress returns IP address of the client making the request.
// It checks for X-Real-Ip or X-Forwarded-For headers which is used by Proxies.
func GetRemoteAddress(r *http.Request) string {
	realIP := r.Header.Get(headerRealIP)
	forwardedFor := r.Header.Get(headerForwardedFor)

	if realIP == "" && forwardedFor == "" {
		return IPAddrFromRemoteAddr(r.RemoteAddr)
	}

	if forwardedFor != "" {
		parts := strings.Split(forwardedFor, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}

		return parts[0]
	}

	return realIP
}
