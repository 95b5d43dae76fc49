package adapter

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errUnresolvableLink = errors.New("unresolvable link")

// cleanText collapses runs of whitespace and trims the ends.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var clickIDParams = map[string]bool{
	"gclid":      true,
	"fbclid":     true,
	"msclkid":    true,
	"trk":        true,
	"trackingid": true,
	"refid":      true,
}

// canonicalURL resolves href against base and normalises it into the form
// used as the dedup key: scheme and host lower-cased, fragment removed,
// tracking parameters removed. dropQuery removes the whole query string.
func canonicalURL(base *url.URL, href string, dropQuery bool) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", errUnresolvableLink
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errUnresolvableLink, err)
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", errUnresolvableLink, href)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	if dropQuery {
		u.RawQuery = ""
		u.ForceQuery = false
		return u.String(), nil
	}

	q := u.Query()
	for key := range q {
		lk := strings.ToLower(key)
		if strings.HasPrefix(lk, "utm_") || clickIDParams[lk] {
			q.Del(key)
		}
	}
	// Encode sorts by key, so equivalent links with reordered params match.
	u.RawQuery = q.Encode()
	u.ForceQuery = false
	return u.String(), nil
}
