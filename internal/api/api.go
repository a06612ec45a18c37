// Package api provides the abstract cipher and hash engine used by
// the AEAD request processor.
package api

import (
	"errors"
	"strconv"
)

const (
	// BlockSize is the AES block size in bytes.
	BlockSize = 16
	// DESBlockSize is the 3DES block size in bytes.
	DESBlockSize = 8
)

// ErrUnaligned is returned when a block-oriented primitive is
// handed a partial block.
var ErrUnaligned = errors.New("api: input is not a multiple of the block size")

// Alg is a block cipher algorithm.
type Alg uint8

const (
	AES Alg = iota
	DES3
)

func (a Alg) String() string {
	switch a {
	case AES:
		return "aes"
	case DES3:
		return "des3_ede"
	default:
		return "Alg(" + strconv.Itoa(int(a)) + ")"
	}
}

// BlockSize returns the block size of a in bytes.
func (a Alg) BlockSize() int {
	if a == DES3 {
		return DESBlockSize
	}
	return BlockSize
}

// Mode is a block cipher mode of operation.
type Mode uint8

const (
	// ECB encrypts each block independently.
	ECB Mode = iota
	// CBCEncrypt is CBC mode encryption.
	CBCEncrypt
	// CBCDecrypt is CBC mode decryption.
	CBCDecrypt
	// CTR is counter mode with a 128-bit big-endian counter.
	CTR
	// GCTR is counter mode with a 32-bit big-endian counter in
	// the last four bytes of the counter block.
	GCTR
	// CBCMAC chains src into iv without producing output.
	CBCMAC
)

func (m Mode) String() string {
	switch m {
	case ECB:
		return "ecb"
	case CBCEncrypt:
		return "cbc-enc"
	case CBCDecrypt:
		return "cbc-dec"
	case CTR:
		return "ctr"
	case GCTR:
		return "gctr"
	case CBCMAC:
		return "cbc-mac"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// HashAlg is a hash (or universal hash) algorithm.
type HashAlg uint8

const (
	SHA1 HashAlg = iota
	SHA256
	// GHASH is the GCM universal hash. It is keyed with the
	// hash subkey H and only absorbs whole blocks.
	GHASH
)

func (h HashAlg) String() string {
	switch h {
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	case GHASH:
		return "ghash"
	default:
		return "HashAlg(" + strconv.Itoa(int(h)) + ")"
	}
}

// Engine executes cipher and hash primitives.
//
// Implementations must be safe for concurrent use. Calls made for
// one request are issued in order and never interleaved with
// each other.
type Engine interface {
	// Name returns the name of the implementation.
	Name() string

	// Cipher applies mode under key to src and writes the
	// result to dst.
	//
	// For the chaining modes iv holds the chaining value or
	// counter block and is updated in place so that a following
	// call continues the stream. ECB ignores iv. CBCMAC ignores
	// dst. Every mode except CTR and GCTR requires src to be
	// a multiple of the block size.
	Cipher(alg Alg, mode Mode, key, iv, dst, src []byte) error

	// NewHash returns a hash state.
	//
	// key is only used by GHASH. If state is non-nil the hash
	// resumes from a state previously returned by Hash.State.
	NewHash(alg HashAlg, key, state []byte) (Hash, error)

	// Read fills p with random bytes.
	Read(p []byte) (int, error)
}

// Hash is an incremental hash state.
type Hash interface {
	// Size returns the digest size in bytes.
	Size() int

	// BlockSize returns the block size in bytes.
	BlockSize() int

	// Absorb writes p to the state.
	Absorb(p []byte) error

	// State exports the intermediate state.
	State() ([]byte, error)

	// Extract appends the digest to b and returns the
	// resulting slice. It does not change the state.
	Extract(b []byte) ([]byte, error)
}
