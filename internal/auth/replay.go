package auth

// DefaultReplayTolerance is the allowed clock skew, in seconds,
// between a client-submitted timestamp and server time.
const DefaultReplayTolerance int64 = 300

// WithinWindow reports whether a client timestamp is within
// toleranceSeconds of the server clock. The boundary is inclusive on
// both sides.
func WithinWindow(clientTimestamp, now, toleranceSeconds int64) bool {
	delta := now - clientTimestamp
	if delta < 0 {
		delta = -delta
	}
	return delta <= toleranceSeconds
}
