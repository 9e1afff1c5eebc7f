package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a ULID. Delivery ids rely on ULIDs sorting by creation time
// inside the account_purpose index.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
