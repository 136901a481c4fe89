package engine

import (
	"crypto/rand"

	"github.com/keybase/saltpack/encoding/basex"
)

// Identifier is an opaque interned string used as a key in every heap and
// field table. Equality is structural (plain Go string comparison), as
// spec.md §3 requires; Go strings are already immutable and comparable,
// so no separate interning table is needed to get that guarantee.
type Identifier string

// randNBytes mirrors kryptco-kr's util.go RandNBytes.
func randNBytes(n uint) (b []byte, err error) {
	b = make([]byte, n)
	_, err = rand.Read(b)
	return
}

// NewOpaqueIdentifier mints a random Identifier, base62-encoded the same
// way kryptco-kr's util.go Rand256Base62 mints request IDs.
func NewOpaqueIdentifier() (Identifier, error) {
	raw, err := randNBytes(16)
	if err != nil {
		return "", err
	}
	return Identifier(basex.Base62StdEncoding.EncodeToString(raw)), nil
}
