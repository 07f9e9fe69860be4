package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

var errBodyTooLarge = errors.New("request body too large")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// readBodyJSON decodes at most maxBytes of JSON into out. An empty body
// leaves out untouched.
func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return err
	}
	if int64(len(body)) > maxBytes {
		return errBodyTooLarge
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// pathSegments splits the part of path after prefix: "/api/v1/cases/x/photos"
// with prefix "/api/v1/cases" yields ["x", "photos"].
func pathSegments(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// clientIP is the host part of the socket address. Behind a trusted proxy
// RealIP has already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// forwardedFor returns the hop appended by the nearest proxy, i.e. the last
// X-Forwarded-For entry. Earlier entries are client-controlled.
func forwardedFor(r *http.Request) string {
	fwd := r.Header.Values("X-Forwarded-For")
	if len(fwd) == 0 {
		return ""
	}
	hops := strings.Split(fwd[len(fwd)-1], ",")
	ip := strings.TrimSpace(hops[len(hops)-1])
	if net.ParseIP(ip) == nil {
		return ""
	}
	return ip
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
// Any other scheme counts as no credentials.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
