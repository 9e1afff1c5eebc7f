// Package totp computes and validates the six-digit time-based codes used by every
// challenge, and binds them to accounts through token providers.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// Digits is the fixed code length.
	Digits = 6
	// StepSize buckets time for code computation.
	StepSize = time.Minute
	// Window is the number of neighbouring steps accepted on each side.
	Window = 2
)

// TimeStep returns the step counter for t (whole minutes since the Unix epoch).
func TimeStep(t time.Time) uint64 {
	return uint64(t.Unix()) / uint64(StepSize/time.Second)
}

// Compute returns the zero-padded code for secret at timeStep. A non-empty
// modifier is appended to the hashed material so that one secret yields
// unrelated code streams per purpose.
func Compute(secret []byte, timeStep uint64, modifier string) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], timeStep)

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	if modifier != "" {
		_, _ = mac.Write([]byte(modifier))
	}
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%0*d", Digits, bin%1_000_000)
}

// Validate checks code against the current step and its neighbours.
func Validate(secret []byte, code, modifier string) bool {
	return ValidateAt(secret, code, modifier, time.Now())
}

// ValidateAt is Validate with an explicit clock.
func ValidateAt(secret []byte, code, modifier string, now time.Time) bool {
	if !isCode(code) {
		return false
	}
	current := int64(TimeStep(now))
	for i := int64(-Window); i <= Window; i++ {
		step := current + i
		if step < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(Compute(secret, uint64(step), modifier)), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

func isCode(s string) bool {
	if len(s) != Digits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
