// Package loopguard detects and consumes the one-shot redirect marker that
// prevents a redirected page from redirecting again.
package loopguard

import (
	"net/url"
	"strings"

	"github.com/ashureev/inapp-redirector/internal/domain"
)

const (
	// MarkerKey is the query parameter carried by every redirect target.
	MarkerKey = "redirected"
	// MarkerValue is the only value that marks a loopback.
	MarkerValue = "true"
)

// Check reports whether the first marker value in rawURL is "true".
// Unparseable URLs are never treated as loopbacks.
func Check(rawURL string) domain.LoopGuardState {
	_, query, _ := split(rawURL)
	for _, pair := range splitQuery(query) {
		key, value := pairKV(pair)
		if key != MarkerKey {
			continue
		}
		return domain.LoopGuardState{IsLoopback: value == MarkerValue}
	}
	return domain.LoopGuardState{}
}

// Strip removes every marker pair from rawURL, keeping the path, the other
// query pairs in their original order and encoding, and the fragment.
// A URL without the marker is returned unchanged.
func Strip(rawURL string) string {
	head, query, fragment := split(rawURL)
	pairs := splitQuery(query)

	kept := make([]string, 0, len(pairs))
	removed := false
	for _, pair := range pairs {
		if key, _ := pairKV(pair); key == MarkerKey {
			removed = true
			continue
		}
		kept = append(kept, pair)
	}
	if !removed {
		return rawURL
	}
	return join(head, strings.Join(kept, "&"), fragment)
}

// Mark returns rawURL with the marker set to true. Existing marker pairs are
// replaced; all other pairs are preserved verbatim.
func Mark(rawURL string) string {
	stripped := Strip(rawURL)
	head, query, fragment := split(stripped)
	marker := MarkerKey + "=" + MarkerValue
	if query == "" {
		query = marker
	} else {
		query += "&" + marker
	}
	return join(head, query, fragment)
}

// split breaks rawURL into the part before '?', the raw query and the
// fragment including its leading '#'.
func split(rawURL string) (head, query, fragment string) {
	head = rawURL
	if i := strings.IndexByte(head, '#'); i >= 0 {
		head, fragment = head[:i], head[i:]
	}
	if i := strings.IndexByte(head, '?'); i >= 0 {
		head, query = head[:i], head[i+1:]
	}
	return head, query, fragment
}

func join(head, query, fragment string) string {
	if query != "" {
		head += "?" + query
	}
	return head + fragment
}

func splitQuery(query string) []string {
	if query == "" {
		return nil
	}
	parts := strings.Split(query, "&")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func pairKV(pair string) (key, value string) {
	key, value, _ = strings.Cut(pair, "=")
	if k, err := url.QueryUnescape(key); err == nil {
		key = k
	}
	if v, err := url.QueryUnescape(value); err == nil {
		value = v
	}
	return key, value
}
