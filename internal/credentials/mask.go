package credentials

import (
	"strings"

	"byom-relay/internal/domain"
)

const (
	keyPrefix    = "sk-"
	redaction    = "****"
	visibleTail  = 4
	minTailedLen = 2 * visibleTail
)

// Mask returns a copy of cfg that is safe to display. Only the secret changes:
// a known prefix and the last four characters survive around a fixed
// redaction. Short secrets keep no tail at all.
func Mask(cfg domain.ProviderConfig) domain.ProviderConfig {
	out := cfg
	out.Secret = MaskSecret(cfg.Secret)
	return out
}

// MaskSecret redacts a single secret. Blank input stays blank and input that
// already has the masked shape is returned unchanged.
func MaskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}

	prefix := ""
	rest := secret
	if strings.HasPrefix(secret, keyPrefix) {
		prefix = keyPrefix
		rest = strings.TrimPrefix(secret, keyPrefix)
	}
	if isMasked(rest) {
		return secret
	}
	if len(secret) <= minTailedLen {
		return prefix + redaction
	}
	return prefix + redaction + secret[len(secret)-visibleTail:]
}

// isMasked reports whether rest is exactly a redaction plus at most a
// visible tail. Longer values are redacted even if they start with stars.
func isMasked(rest string) bool {
	return strings.HasPrefix(rest, redaction) && len(rest) <= len(redaction)+visibleTail
}
