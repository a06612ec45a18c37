package engine

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding"
	"errors"
	"fmt"
	"hash"

	"github.com/ericlagergren/polyval"

	"github.com/ericlagergren/authenc/internal/api"
)

var errNoState = errors.New("engine: hash state cannot be exported")

type digest struct {
	h hash.Hash
}

func newDigest(alg api.HashAlg, state []byte) (*digest, error) {
	var h hash.Hash
	if alg == api.SHA1 {
		h = sha1.New()
	} else {
		h = sha256.New()
	}
	if state != nil {
		u, ok := h.(encoding.BinaryUnmarshaler)
		if !ok {
			return nil, errNoState
		}
		if err := u.UnmarshalBinary(state); err != nil {
			return nil, fmt.Errorf("engine: %s: %w", alg, err)
		}
	}
	return &digest{h: h}, nil
}

func (d *digest) Size() int      { return d.h.Size() }
func (d *digest) BlockSize() int { return d.h.BlockSize() }

func (d *digest) Absorb(p []byte) error {
	d.h.Write(p)
	return nil
}

func (d *digest) State() ([]byte, error) {
	m, ok := d.h.(encoding.BinaryMarshaler)
	if !ok {
		return nil, errNoState
	}
	return m.MarshalBinary()
}

func (d *digest) Extract(b []byte) ([]byte, error) {
	return d.h.Sum(b), nil
}

// ghash computes GHASH with POLYVAL using the mapping from
// RFC 8452, Appendix A:
//
//	GHASH(H, X_1, ..., X_n) =
//	    ByteReverse(POLYVAL(mulX_POLYVAL(ByteReverse(H)),
//	        ByteReverse(X_1), ..., ByteReverse(X_n)))
type ghash struct {
	p   *polyval.Polyval
	tmp [api.BlockSize]byte
}

func newGHASH(key []byte) (*ghash, error) {
	if len(key) != api.BlockSize {
		return nil, fmt.Errorf("engine: invalid GHASH key length %d", len(key))
	}
	var h [api.BlockSize]byte
	copy(h[:], key)
	reverse(h[:])
	mulX(&h)
	p, err := polyval.New(h[:])
	if err != nil {
		return nil, err
	}
	return &ghash{p: p}, nil
}

func (g *ghash) Size() int      { return api.BlockSize }
func (g *ghash) BlockSize() int { return api.BlockSize }

func (g *ghash) Absorb(p []byte) error {
	if len(p)%api.BlockSize != 0 {
		return api.ErrUnaligned
	}
	for len(p) > 0 {
		copy(g.tmp[:], p[:api.BlockSize])
		reverse(g.tmp[:])
		g.p.Update(g.tmp[:])
		p = p[api.BlockSize:]
	}
	return nil
}

func (g *ghash) State() ([]byte, error) {
	return nil, errNoState
}

func (g *ghash) Extract(b []byte) ([]byte, error) {
	s := g.p.Sum(nil)
	reverse(s)
	return append(b, s...), nil
}

func reverse(p []byte) {
	for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
		p[i], p[j] = p[j], p[i]
	}
}

// mulX multiplies x by x in the POLYVAL field, where x is
// a little-endian 128-bit integer.
func mulX(x *[api.BlockSize]byte) {
	carry := x[15] >> 7
	for i := api.BlockSize - 1; i > 0; i-- {
		x[i] = x[i]<<1 | x[i-1]>>7
	}
	x[0] <<= 1
	mask := -carry
	x[0] ^= 0x01 & mask
	x[15] ^= 0xc2 & mask
}
