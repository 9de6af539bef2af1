package analyze

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters that only identify the referral
// channel and never affect the resource itself. They are stripped from the
// canonical URL; every other parameter is preserved.
var trackingParams = map[string]struct{}{
	"fbclid":   {},
	"gclid":    {},
	"gclsrc":   {},
	"dclid":    {},
	"msclkid":  {},
	"igshid":   {},
	"igsh":     {},
	"mc_cid":   {},
	"mc_eid":   {},
	"yclid":    {},
	"ref_src":  {},
	"ref_url":  {},
	"spm":      {},
	"share_id": {},
}

// CanonicalURL strips known tracking parameters from raw. The result is the
// form stored on notes and used for dedup lookups. Idempotent:
// CanonicalURL(CanonicalURL(u)) == CanonicalURL(u).
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.RawQuery == "" {
		return raw
	}
	values := parsed.Query()
	for key := range values {
		if isTrackingParam(key) {
			values.Del(key)
		}
	}
	parsed.RawQuery = values.Encode()
	return parsed.String()
}

func isTrackingParam(key string) bool {
	lowered := strings.ToLower(key)
	if strings.HasPrefix(lowered, "utm_") {
		return true
	}
	_, ok := trackingParams[lowered]
	return ok
}
