package utils

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Argument values are filtered to this allow-list before they reach
// the request parsers. The dashes, braces, brackets and quotes are
// needed by identifiers and serialized JSON parameter values;
// everything else is dropped.
var unallowedChars = regexp.MustCompile(`[^-A-Za-z0-9+.,_/:*{}()\[\]"]`)

// ParseQuery splits a raw query string into url.Values with
// lower-cased keys. The protocols allow parameter keys in any
// capitalization, so normalising here keeps every lookup downstream a
// fixed-key one.
func ParseQuery(query string) (url.Values, error) {
	m := make(url.Values)
	var err error
	for query != "" {
		key := query
		if i := strings.Index(key, "&"); i >= 0 {
			key, query = key[:i], key[i+1:]
		} else {
			query = ""
		}
		if key == "" {
			continue
		}
		value := ""
		if i := strings.Index(key, "="); i >= 0 {
			key, value = key[:i], key[i+1:]
		}
		key, err1 := url.QueryUnescape(key)
		if err1 != nil {
			if err == nil {
				err = err1
			}
			continue
		}
		key = strings.ToLower(key)

		value, err1 = url.QueryUnescape(value)
		if err1 != nil {
			if err == nil {
				err = err1
			}
			continue
		}

		m[key] = append(m[key], value)
	}
	return m, err
}

// NormaliseKV flattens parsed query values into the sanitized
// flat map the dispatcher consumes. The first value wins when a key
// repeats.
func NormaliseKV(values url.Values) map[string]string {
	args := make(map[string]string)
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		args[key] = unallowedChars.ReplaceAllString(vals[0], "")
	}
	return args
}

// ParseRemoteAddr is the client address as seen through reverse
// proxies.
func ParseRemoteAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); len(forwarded) > 0 {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); len(realIP) > 0 {
		return strings.TrimSpace(realIP)
	}
	return r.RemoteAddr
}
