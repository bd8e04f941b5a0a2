package controller

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20"

	"github.com/rigado/sdc"
)

// rng is the controller's only entropy source: a ChaCha20 keystream keyed by the startup seed.
type rng struct {
	cs     criticalSection
	stream *chacha20.Cipher
}

func newRNG(seed sdc.Seed) (*rng, error) {
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
	if err != nil {
		return nil, errors.Wrap(err, "can't seed rng")
	}
	return &rng{stream: c}, nil
}

func (r *rng) fill(b []byte) {
	r.cs.do(func() {
		for i := range b {
			b[i] = 0
		}
		r.stream.XORKeyStream(b, b)
	})
}
