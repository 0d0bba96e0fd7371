package crypto

import "crypto/rand"

// CryptographicRandomGenerator is a cryptographically secure random
// generator. The one-time-password codes are drawn from it.
//
// - implements crypto.RandGenerator
type CryptographicRandomGenerator struct{}

// Read implements crypto.RandGenerator. It fills the given buffer at its
// capacity as long as no error occurred.
func (crg CryptographicRandomGenerator) Read(buffer []byte) (int, error) {
	return rand.Read(buffer)
}
