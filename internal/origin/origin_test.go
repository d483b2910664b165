package origin_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rochafa10/DeedFlow-sub010/internal/origin"
)

const expected = "https://app.deedflow.example"

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		origin  string
		referer string
		want    origin.Decision
		reason  origin.Reason
	}{
		{name: "read request bypasses the check", method: "GET", origin: "https://evil.example", want: origin.Allow},
		{name: "head request bypasses the check", method: "HEAD", origin: "https://evil.example", want: origin.Allow},
		{name: "matching origin", method: "POST", origin: expected, want: origin.Allow},
		{name: "matching origin case-insensitive", method: "POST", origin: "HTTPS://APP.DEEDFLOW.EXAMPLE", want: origin.Allow},
		{name: "foreign origin", method: "POST", origin: "https://evil.example", want: origin.Deny, reason: origin.ReasonOriginMismatch},
		{name: "origin wins over referer", method: "POST", origin: "https://evil.example", referer: expected + "/deals", want: origin.Deny, reason: origin.ReasonOriginMismatch},
		{name: "matching referer", method: "DELETE", referer: expected + "/portfolio/42", want: origin.Allow},
		{name: "foreign referer", method: "PUT", referer: "https://evil.example/form", want: origin.Deny, reason: origin.ReasonRefererMismatch},
		{name: "unparseable referer", method: "POST", referer: "::::not a url", want: origin.Deny, reason: origin.ReasonInvalidReferer},
		{name: "relative referer has no origin", method: "POST", referer: "/local/path", want: origin.Deny, reason: origin.ReasonInvalidReferer},
		{name: "no evidence defers", method: "POST", want: origin.Defer},
		{name: "patch with no evidence defers", method: "PATCH", want: origin.Defer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := origin.Check(tt.method, tt.origin, tt.referer, expected)
			require.Equal(t, tt.want, got.Decision)
			require.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestStateChanging(t *testing.T) {
	require.True(t, origin.StateChanging("POST"))
	require.True(t, origin.StateChanging("put"))
	require.True(t, origin.StateChanging("PATCH"))
	require.True(t, origin.StateChanging("DELETE"))
	require.False(t, origin.StateChanging("GET"))
	require.False(t, origin.StateChanging("OPTIONS"))
	require.False(t, origin.StateChanging("HEAD"))
}
