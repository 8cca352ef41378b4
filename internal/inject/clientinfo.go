package inject

import (
	"net"
	"net/http"
	"strings"
)

// Enrich turns the upgraded request and the out-of-band confirmation
// request into the aggregate metadata and the session entry for one
// connection. The entry's Execute callback is bound by the session after
// enrichment.
func Enrich(r *http.Request, authReq *http.Request, desc *SessionDescriptor) (*ClientInfo, *SessionEntry) {
	ua := r.UserAgent()
	platform, osName := classifyUserAgent(ua)

	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	// The confirmation fetch traverses the same proxies as the upgrade;
	// when the upgrade carried no forwarding headers, its headers are
	// the next best source before falling back to the socket address.
	ip := forwardedIP(r)
	if ip == "" && authReq != nil {
		ip = forwardedIP(authReq)
	}
	if ip == "" {
		ip = remoteIP(r)
	}

	client := &ClientInfo{
		IP:        ip,
		UserAgent: ua,
		Platform:  platform,
		OS:        osName,
		Headers:   headers,
	}
	entry := &SessionEntry{
		ID:    desc.ID,
		Debug: desc.Debug,
	}
	return client, entry
}

// clientIP prefers proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if ip := forwardedIP(r); ip != "" {
		return ip
	}
	return remoteIP(r)
}

func forwardedIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	return r.Header.Get("X-Real-Ip")
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// classifyUserAgent is a token scan, not a full UA parser; the values feed
// operator displays and the core payload, nothing security-relevant.
func classifyUserAgent(ua string) (platform, osName string) {
	l := strings.ToLower(ua)

	switch {
	case strings.Contains(l, "ipad") || strings.Contains(l, "tablet"):
		platform = "tablet"
	case strings.Contains(l, "mobile") || strings.Contains(l, "iphone") || strings.Contains(l, "android"):
		platform = "mobile"
	case l == "":
		platform = "unknown"
	default:
		platform = "desktop"
	}

	switch {
	case strings.Contains(l, "iphone") || strings.Contains(l, "ipad") || strings.Contains(l, "ios"):
		osName = "ios"
	case strings.Contains(l, "android"):
		osName = "android"
	case strings.Contains(l, "windows"):
		osName = "windows"
	case strings.Contains(l, "mac os") || strings.Contains(l, "macintosh"):
		osName = "macos"
	case strings.Contains(l, "linux"):
		osName = "linux"
	default:
		osName = "unknown"
	}
	return
}
