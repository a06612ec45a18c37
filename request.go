package authenc

import (
	"bytes"
	"fmt"
	"strconv"
)

// Direction is the direction of a request.
type Direction uint8

const (
	Encrypt Direction = iota
	Decrypt
)

func (d Direction) String() string {
	switch d {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	default:
		return "Direction(" + strconv.Itoa(int(d)) + ")"
	}
}

// shape is the validated form of a request.
type shape struct {
	dir Direction
	// iv is the caller's IV.
	iv []byte
	// assoc is the associated data that is authenticated
	// directly. For IPsec suites it excludes the trailing IV.
	assoc []byte
	// payload is the plaintext or ciphertext without the tag.
	payload []byte
	// tag is the received tag when decrypting.
	tag []byte
	// single is set when the cipher and MAC traverse the
	// payload together.
	single bool
}

func (s *shape) cryptlen() int {
	return len(s.payload)
}

// selectMode validates a request and decides whether it can be
// processed in a single pass. It never calls the engine.
func (c *Context) selectMode(dir Direction, iv, assoc, input []byte) (shape, error) {
	s := c.suite
	sh := shape{dir: dir, iv: iv, assoc: assoc, payload: input}

	if len(iv) != s.IVSize() {
		return sh, fmt.Errorf("%w: %d byte IV for %s", ErrInvalidIV, len(iv), s)
	}
	if s.ipsec() {
		if len(assoc) != 16 && len(assoc) != 20 {
			return sh, fmt.Errorf("%w: %d", ErrInvalidAssociatedDataLength, len(assoc))
		}
		n := len(assoc) - s.IVSize()
		// GMAC authenticates the IV in place of the trailing
		// associated data bytes, so they must agree.
		if s.Variant == RFC4543 && !bytes.Equal(assoc[n:], iv) {
			return sh, fmt.Errorf("%w: IV does not match associated data", ErrInvalidIV)
		}
		sh.assoc = assoc[:n]
	}

	if dir == Decrypt {
		if len(input) < c.tagSize {
			return sh, fmt.Errorf("%w: input shorter than %d byte tag", ErrInvalidLength, c.tagSize)
		}
		n := len(input) - c.tagSize
		sh.payload, sh.tag = input[:n], input[n:]
	}
	if s.Cipher == CBC && sh.cryptlen()%s.blockSize() != 0 {
		return sh, fmt.Errorf("%w: %d is not a multiple of %d", ErrInvalidLength, sh.cryptlen(), s.blockSize())
	}

	switch {
	case s.Variant == RFC4543:
		sh.single = false
	case !s.authenc():
		sh.single = true
	default:
		sh.single = len(assoc)%4 == 0 &&
			(s.Cipher != CTR || sh.cryptlen()%4 == 0)
	}
	if c.double {
		sh.single = false
	}
	return sh, nil
}
