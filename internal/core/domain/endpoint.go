package domain

import (
	"crypto/rand"
	"regexp"
	"time"
)

// EndpointIDLength is the length of generated endpoint identifiers.
const EndpointIDLength = 10

// endpointIDPattern accepts generated IDs plus a compatibility range for
// externally minted ones.
var endpointIDPattern = regexp.MustCompile(`^[a-z0-9]{8,32}$`)

const endpointIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Endpoint is a disposable, TTL-bound target for inbound webhook traffic.
// It is never mutated after creation; liveness is the live predicate
// now < ExpiresAt, evaluated at read/write time. The reaper only reclaims
// space, it is not the source of truth for liveness.
type Endpoint struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the endpoint is past its expiry at the given time.
func (e *Endpoint) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// NewEndpointID generates a random lowercase-alphanumeric endpoint ID.
func NewEndpointID() string {
	buf := make([]byte, EndpointIDLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = endpointIDAlphabet[int(b)%len(endpointIDAlphabet)]
	}
	return string(buf)
}

// IsValidEndpointID reports whether value is a well-formed endpoint ID.
func IsValidEndpointID(value string) bool {
	return endpointIDPattern.MatchString(value)
}
