package authenc

import (
	"encoding/binary"
	"fmt"
	"math"
)

// frame holds the mode-specific blocks for a single request.
type frame struct {
	// start is the initial CBC chaining value or counter block
	// for the payload.
	start [16]byte
	// mask is the counter block used to encrypt the tag: CCM's
	// CTR0 or GCM's J0 (counter = 1).
	mask [16]byte
	// b0 is CCM's first CBC-MAC block.
	b0 [16]byte
	// a0 is CCM's encoded associated data length.
	a0 []byte
	// lengths is GCM's final GHASH block.
	lengths [16]byte
	// h is the GHASH subkey, derived while executing the plan.
	h [16]byte
	a0buf [10]byte
}

// buildFrame fills in f for the request. It never calls the
// engine.
func (c *Context) buildFrame(f *frame, sh *shape) error {
	switch c.suite.Cipher {
	case CBC:
		copy(f.start[:], sh.iv)
	case CTR:
		// RFC 3686, section 4.
		copy(f.start[0:4], c.nonce)
		copy(f.start[4:12], sh.iv)
		binary.BigEndian.PutUint32(f.start[12:16], 1)
	case CCM:
		return c.frameCCM(f, sh)
	case GCTR:
		c.frameGCM(f, sh)
	}
	return nil
}

// frameCCM builds B0, A0 and the counter blocks per RFC 3610.
func (c *Context) frameCCM(f *frame, sh *shape) error {
	var iv [16]byte
	if c.suite.Variant == RFC4309 {
		// RFC 4309, section 4: a 3 byte salt followed by the
		// 8 byte IV, leaving a 4 byte length field.
		iv[0] = 3
		copy(iv[1:4], c.nonce)
		copy(iv[4:12], sh.iv)
	} else {
		copy(iv[:], sh.iv)
	}

	lprime := int(iv[0])
	if lprime < 1 || lprime > 7 {
		return fmt.Errorf("%w: CCM L' = %d", ErrInvalidIV, lprime)
	}
	l := lprime + 1
	n := uint64(sh.cryptlen())
	if n > 1<<(8*l)-1 {
		return fmt.Errorf("%w: %d bytes with L = %d", ErrLengthOverflow, n, l)
	}

	// CTR0: flags = L', nonce, zero counter.
	f.mask = iv
	for i := 16 - l; i < 16; i++ {
		f.mask[i] = 0
	}
	f.start = f.mask
	f.start[15] = 1

	f.b0 = f.mask
	f.b0[0] |= byte((c.tagSize-2)/2) << 3
	if len(sh.assoc) > 0 {
		f.b0[0] |= 1 << 6
	}
	putUvarint(f.b0[16-l:], n)

	f.a0 = encodeA0(f.a0buf[:0], uint64(len(sh.assoc)))
	return nil
}

// encodeA0 appends the RFC 3610 encoding of the associated data
// length n to b. Empty associated data has no encoding.
func encodeA0(b []byte, n uint64) []byte {
	switch {
	case n == 0:
		return b
	case n < 1<<16-1<<8:
		return binary.BigEndian.AppendUint16(b, uint16(n))
	case n <= math.MaxUint32:
		b = append(b, 0xff, 0xfe)
		return binary.BigEndian.AppendUint32(b, uint32(n))
	default:
		b = append(b, 0xff, 0xff)
		return binary.BigEndian.AppendUint64(b, n)
	}
}

// putUvarint writes u to bs as a big-endian integer.
func putUvarint(bs []byte, u uint64) {
	for i := 0; i < len(bs); i++ {
		bs[i] = byte(u >> uint(8*(len(bs)-1-i)))
	}
}

// frameGCM builds the counter blocks and the length block per
// NIST SP 800-38D.
func (c *Context) frameGCM(f *frame, sh *shape) {
	var iv [12]byte
	if c.suite.Variant == Plain {
		copy(iv[:], sh.iv)
	} else {
		// RFC 4106, section 4: salt || IV.
		copy(iv[0:4], c.nonce)
		copy(iv[4:12], sh.iv)
	}
	copy(f.mask[:], iv[:])
	binary.BigEndian.PutUint32(f.mask[12:], 1)
	copy(f.start[:], iv[:])
	binary.BigEndian.PutUint32(f.start[12:], 2)

	if c.suite.Variant == RFC4543 {
		// Everything is additional data.
		n := uint64(len(sh.assoc) + len(sh.iv) + sh.cryptlen())
		binary.BigEndian.PutUint64(f.lengths[0:8], n*8)
		binary.BigEndian.PutUint64(f.lengths[8:16], 0)
	} else {
		binary.BigEndian.PutUint64(f.lengths[0:8], uint64(len(sh.assoc))*8)
		binary.BigEndian.PutUint64(f.lengths[8:16], uint64(sh.cryptlen())*8)
	}
}
