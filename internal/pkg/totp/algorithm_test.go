package totp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var rfcSecret = []byte("12345678901234567890")

// Without a modifier the computation is plain HOTP (RFC 4226 appendix D).
func TestCompute_RFC4226Vectors(t *testing.T) {
	want := []string{"755224", "287082", "359152", "969429", "338314", "254676", "287922", "162583", "399871", "520489"}
	for counter, code := range want {
		assert.Equal(t, code, Compute(rfcSecret, uint64(counter), ""), "counter %d", counter)
	}
}

func TestCompute_ModifierChangesStream(t *testing.T) {
	step := TimeStep(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.NotEqual(t, Compute(rfcSecret, step, ""), Compute(rfcSecret, step, "EmailSignIn:a1"))
	assert.NotEqual(t, Compute(rfcSecret, step, "A:a1"), Compute(rfcSecret, step, "B:a1"))
}

func TestTimeStep_OneMinute(t *testing.T) {
	base := time.Unix(600, 0)
	assert.Equal(t, uint64(10), TimeStep(base))
	assert.Equal(t, uint64(10), TimeStep(base.Add(59*time.Second)))
	assert.Equal(t, uint64(11), TimeStep(base.Add(60*time.Second)))
}

func TestValidateAt_Window(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 30, 15, 0, time.UTC)
	step := TimeStep(now)
	mod := "GenericTOTP:acc-1"

	for _, d := range []int64{-2, -1, 0, 1, 2} {
		code := Compute(rfcSecret, uint64(int64(step)+d), mod)
		assert.True(t, ValidateAt(rfcSecret, code, mod, now), "offset %d", d)
	}
	for _, d := range []int64{-3, 3} {
		code := Compute(rfcSecret, uint64(int64(step)+d), mod)
		assert.False(t, ValidateAt(rfcSecret, code, mod, now), "offset %d", d)
	}
}

func TestValidateAt_RejectsMalformed(t *testing.T) {
	now := time.Now()
	for _, code := range []string{"", "12345", "1234567", "12a456", " 12345", "-12345"} {
		assert.False(t, ValidateAt(rfcSecret, code, "", now), "code %q", code)
	}
}
