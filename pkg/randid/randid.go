// Package randid generates short random identifiers.
package randid

import (
	"crypto/rand"
	"math/big"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a random lowercase alphanumeric string of the given
// length. Uses crypto/rand so ids are safe to mint concurrently.
func Generate(length int) string {
	b := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the platform source is broken;
			// nothing sensible to do but panic.
			panic("randid: " + err.Error())
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b)
}
