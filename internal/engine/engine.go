// Package engine implements the cipher and hash primitives on top
// of the standard library block ciphers and POLYVAL.
package engine

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"

	rand "github.com/ericlagergren/saferand"
	"golang.org/x/sys/cpu"

	"github.com/ericlagergren/authenc/internal/api"
)

var (
	haveAES = runtime.GOOS == "darwin" ||
		cpu.ARM64.HasAES ||
		cpu.X86.HasAES
	haveCLMUL = runtime.GOOS == "darwin" ||
		cpu.ARM64.HasPMULL ||
		cpu.X86.HasPCLMULQDQ
)

var errShortDst = errors.New("engine: output smaller than input")

type software struct{}

var _ api.Engine = software{}

// Software returns the software engine.
func Software() api.Engine {
	return software{}
}

func (software) Name() string {
	switch {
	case haveAES && haveCLMUL:
		return "aes+clmul"
	case haveAES:
		return "aes"
	default:
		return "generic"
	}
}

func newBlock(alg api.Alg, key []byte) (cipher.Block, error) {
	switch alg {
	case api.AES:
		return aes.NewCipher(key)
	case api.DES3:
		return des.NewTripleDESCipher(key)
	default:
		return nil, fmt.Errorf("engine: unknown cipher %s", alg)
	}
}

func (software) Cipher(alg api.Alg, mode api.Mode, key, iv, dst, src []byte) error {
	b, err := newBlock(alg, key)
	if err != nil {
		return err
	}
	bs := b.BlockSize()
	if mode != api.ECB && len(iv) != bs {
		return fmt.Errorf("engine: %s: invalid iv length %d", mode, len(iv))
	}
	if mode != api.CBCMAC && len(dst) < len(src) {
		return errShortDst
	}
	if mode != api.CTR && mode != api.GCTR && len(src)%bs != 0 {
		return api.ErrUnaligned
	}

	switch mode {
	case api.ECB:
		for i := 0; i < len(src); i += bs {
			b.Encrypt(dst[i:i+bs], src[i:i+bs])
		}
	case api.CBCEncrypt:
		if len(src) == 0 {
			return nil
		}
		cipher.NewCBCEncrypter(b, iv).CryptBlocks(dst[:len(src)], src)
		copy(iv, dst[len(src)-bs:len(src)])
	case api.CBCDecrypt:
		if len(src) == 0 {
			return nil
		}
		next := make([]byte, bs)
		copy(next, src[len(src)-bs:])
		cipher.NewCBCDecrypter(b, iv).CryptBlocks(dst[:len(src)], src)
		copy(iv, next)
	case api.CTR:
		if haveAES && alg == api.AES {
			ctrStream(b, iv, dst, src)
		} else {
			ctr(b, iv, dst, src, inc128)
		}
	case api.GCTR:
		ctr(b, iv, dst, src, inc32)
	case api.CBCMAC:
		for i := 0; i < len(src); i += bs {
			xor(iv, iv, src[i:i+bs], bs)
			b.Encrypt(iv, iv)
		}
	default:
		return fmt.Errorf("engine: unknown mode %s", mode)
	}
	return nil
}

// ctr XORs src with the key stream starting at block and writes
// the result to dst. block is left holding the next counter.
func ctr(b cipher.Block, block, dst, src []byte, inc func([]byte)) {
	ks := make([]byte, len(block))
	for len(src) > 0 {
		b.Encrypt(ks, block)
		inc(block)
		n := len(src)
		if n > len(ks) {
			n = len(ks)
		}
		xor(dst, src, ks, n)
		dst = dst[n:]
		src = src[n:]
	}
}

// ctrStream is ctr with inc128 on top of crypto/cipher's CTR
// stream, which uses the CPU's AES instructions for whole batches
// of blocks.
func ctrStream(b cipher.Block, block, dst, src []byte) {
	if len(src) == 0 {
		return
	}
	cipher.NewCTR(b, block).XORKeyStream(dst[:len(src)], src)
	bs := len(block)
	add128(block, uint64((len(src)+bs-1)/bs))
}

// add128 adds n to the big-endian 128-bit integer in block.
func add128(block []byte, n uint64) {
	hi := binary.BigEndian.Uint64(block[0:8])
	lo := binary.BigEndian.Uint64(block[8:16])
	sum := lo + n
	if sum < lo {
		hi++
	}
	binary.BigEndian.PutUint64(block[0:8], hi)
	binary.BigEndian.PutUint64(block[8:16], sum)
}

func inc128(block []byte) {
	for i := len(block) - 1; i >= 0; i-- {
		block[i]++
		if block[i] != 0 {
			return
		}
	}
}

func inc32(block []byte) {
	n := len(block) - 4
	binary.BigEndian.PutUint32(block[n:], binary.BigEndian.Uint32(block[n:])+1)
}

// xor sets z = x^y for up to n bytes.
func xor(z, x, y []byte, n int) {
	// This loop condition prevents needless bounds checks.
	for i := 0; i < n && i < len(z) && i < len(x) && i < len(y); i++ {
		z[i] = x[i] ^ y[i]
	}
}

func (software) NewHash(alg api.HashAlg, key, state []byte) (api.Hash, error) {
	switch alg {
	case api.SHA1, api.SHA256:
		return newDigest(alg, state)
	case api.GHASH:
		if state != nil {
			return nil, errNoState
		}
		return newGHASH(key)
	default:
		return nil, fmt.Errorf("engine: unknown hash %s", alg)
	}
}

func (software) Read(p []byte) (int, error) {
	return rand.Read(p)
}
