package usecase

import (
	"errors"
	"net/http"
	"regexp"
)

// QuotaReply is returned in place of a model reply when the provider reports
// an exhausted quota or a rate limit.
const QuotaReply = "Quota exceeded or rate limit hit. Please check your API key or usage."

var (
	rateLimitPattern = regexp.MustCompile(`(?i)rate[-_ ]?limit`)
	quotaPattern     = regexp.MustCompile(`(?i)insufficient[-_]?quota|exceeded your current quota|quota`)
)

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type errorTyper interface {
	ErrorType() string
}

// IsQuotaOrRateLimit reports whether err looks like a provider quota or rate
// limit failure: an upstream 429, or quota/rate-limit wording in the error's
// type or message.
func IsQuotaOrRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if status, ok := upstreamStatusCode(err); ok && status == http.StatusTooManyRequests {
		return true
	}
	var typed errorTyper
	if errors.As(err, &typed) {
		t := typed.ErrorType()
		if rateLimitPattern.MatchString(t) || quotaPattern.MatchString(t) {
			return true
		}
	}
	msg := err.Error()
	return rateLimitPattern.MatchString(msg) || quotaPattern.MatchString(msg)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
