package usecase

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"byom-relay/internal/domain"
	"byom-relay/internal/providers"
)

func TestIsQuotaOrRateLimit(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "status 429", err: &providers.AdapterError{Kind: domain.ProviderHosted, StatusCode: http.StatusTooManyRequests}, want: true},
		{name: "wrapped 429", err: fmt.Errorf("call: %w", &providers.AdapterError{StatusCode: 429}), want: true},
		{name: "type rate_limit", err: &providers.AdapterError{StatusCode: 400, Type: "rate_limit_exceeded", Cause: errors.New("slow down")}, want: true},
		{name: "type insufficient_quota", err: &providers.AdapterError{StatusCode: 403, Type: "insufficient_quota", Cause: errors.New("denied")}, want: true},
		{name: "message quota", err: errors.New("You exceeded your current quota, please check your plan"), want: true},
		{name: "message rate limit", err: errors.New("Rate Limit reached"), want: true},
		{name: "plain 500", err: &providers.AdapterError{StatusCode: 500, Cause: errors.New("internal")}, want: false},
		{name: "transport", err: errors.New("connection refused"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, IsQuotaOrRateLimit(tc.err))
		})
	}
}
