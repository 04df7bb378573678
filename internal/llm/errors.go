package llm

import (
	"errors"
	"strings"
)

// ErrUnavailable marks failures caused by a missing credential, auth
// rejection, exhausted quota or a backend outage. Callers surface
// these with a more specific message than generic failures.
var ErrUnavailable = errors.New("llm service unavailable")

// Kind classifies a provider error for retry and display decisions.
type Kind int

const (
	// KindGeneric is any failure with no better classification.
	KindGeneric Kind = iota
	// KindTransient failures (rate limits, overload) are worth retrying.
	KindTransient
	// KindUnavailable failures (auth, quota, backend down) are not.
	KindUnavailable
)

var transientMarkers = []string{
	"rate_limit",
	"rate limit",
	"429",
	"too many requests",
	"overloaded",
	"timeout",
	"temporarily",
}

var unavailableMarkers = []string{
	"401",
	"403",
	"unauthorized",
	"invalid api key",
	"incorrect api key",
	"authentication",
	"quota",
	"insufficient_quota",
	"permission",
	"billing",
	"503",
	"service unavailable",
	"connection refused",
}

// Classify inspects an error's message and maps it into the taxonomy.
// Message matching is the only signal the upstream SDKs expose
// uniformly, so the marker lists stay deliberately broad.
func Classify(err error) Kind {
	if err == nil {
		return KindGeneric
	}
	if errors.Is(err, ErrUnavailable) {
		return KindUnavailable
	}
	msg := strings.ToLower(err.Error())
	for _, m := range unavailableMarkers {
		if strings.Contains(msg, m) {
			return KindUnavailable
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return KindTransient
		}
	}
	return KindGeneric
}

// IsUnavailable reports whether the error is a service-availability
// failure rather than a generic one.
func IsUnavailable(err error) bool {
	return Classify(err) == KindUnavailable
}
