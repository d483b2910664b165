package origin

import (
	"net/http"
	"net/url"
	"strings"
)

// Decision is the outcome of the same-site check.
type Decision int

const (
	// Allow means the request carried same-site evidence matching the
	// serving origin, or does not need the check at all.
	Allow Decision = iota
	// Deny means the request declared a foreign or unparseable origin.
	Deny
	// Defer means the request carried no Origin or Referer header; the
	// caller should fall through to token validation.
	Defer
)

// Reason identifies why a same-site check denied a request.
type Reason string

const (
	ReasonOriginMismatch  Reason = "OriginMismatch"
	ReasonRefererMismatch Reason = "RefererMismatch"
	ReasonInvalidReferer  Reason = "InvalidReferer"
)

// Result carries the decision plus the deny reason when applicable.
type Result struct {
	Decision Decision
	Reason   Reason
}

// Check runs the same-site check for a request. Reads are exempt; an Origin
// header is compared exactly against the expected scheme+host+port; absent
// that, the Referer origin is compared; with neither header present the
// check defers to token validation.
func Check(method, originHeader, refererHeader, expectedOrigin string) Result {
	if !StateChanging(method) {
		return Result{Decision: Allow}
	}

	if o := strings.TrimSpace(originHeader); o != "" {
		if strings.EqualFold(strings.TrimRight(o, "/"), expectedOrigin) {
			return Result{Decision: Allow}
		}
		return Result{Decision: Deny, Reason: ReasonOriginMismatch}
	}

	if ref := strings.TrimSpace(refererHeader); ref != "" {
		parsed, err := url.Parse(ref)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return Result{Decision: Deny, Reason: ReasonInvalidReferer}
		}
		refOrigin := parsed.Scheme + "://" + parsed.Host
		if strings.EqualFold(refOrigin, expectedOrigin) {
			return Result{Decision: Allow}
		}
		return Result{Decision: Deny, Reason: ReasonRefererMismatch}
	}

	return Result{Decision: Defer}
}

// StateChanging reports whether the method can mutate server state and is
// therefore subject to anti-forgery checks.
func StateChanging(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
