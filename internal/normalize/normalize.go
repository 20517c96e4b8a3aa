package normalize

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// trackingParams are query keys stripped during URL canonicalization.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"mc_cid":       {},
	"mc_eid":       {},
}

var whitespace = regexp.MustCompile(`\s+`)

// CanonicalURL lowercases the scheme and host and strips tracking
// parameters. Unparseable input is returned unchanged.
func CanonicalURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	query := parsed.Query()
	cleaned := url.Values{}
	for key, values := range query {
		if _, tracked := trackingParams[key]; tracked {
			continue
		}
		for _, v := range values {
			cleaned.Add(key, v)
		}
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.RawQuery = cleaned.Encode()
	return parsed.String()
}

// Text collapses runs of whitespace into single spaces and trims the result.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Fingerprint hashes the normalized, non-empty parts into a stable hex
// digest used for dedupe and checkpointing. Equal content produces equal
// fingerprints regardless of surrounding whitespace.
func Fingerprint(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		normalized = append(normalized, Text(part))
	}
	joined := strings.Join(normalized, "\x01")
	return fmt.Sprintf("%016x", xxhash.Sum64String(joined))
}

// Domain extracts the lowercase host of a URL, or "" if it has none.
func Domain(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// MergeKeywords merges keyword collections keeping first-seen order and
// case-folded uniqueness.
func MergeKeywords(collections ...[]string) []string {
	seen := map[string]struct{}{}
	merged := make([]string, 0)
	for _, collection := range collections {
		for _, item := range collection {
			value := strings.ToLower(Text(item))
			if value == "" {
				continue
			}
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			merged = append(merged, value)
		}
	}
	return merged
}
