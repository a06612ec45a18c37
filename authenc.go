// Package authenc implements the AEAD request processing of an
// offload crypto engine: the generic authenc compositions
// (HMAC-SHA1, HMAC-SHA256 or AES-XCBC-MAC with CBC or RFC 3686
// CTR), CCM (RFC 3610, RFC 4309) and GCM (NIST SP 800-38D,
// RFC 4106, RFC 4543).
//
// Each request is validated, framed and turned into a Plan: an
// ordered list of cipher and hash steps that is then executed
// against the engine. Plans fuse the cipher and MAC into a single
// traversal of the payload where the request's alignment allows
// and fall back to two passes otherwise. Both produce identical
// output.
package authenc

import (
	"crypto/cipher"
	"runtime"
	"strconv"

	"github.com/ericlagergren/subtle"
	"go.uber.org/zap"
)

// Seal encrypts and authenticates plaintext, authenticates
// additionalData and appends the ciphertext and tag to dst.
//
// No output is written unless Seal succeeds.
func (c *Context) Seal(dst, iv, plaintext, additionalData []byte) ([]byte, error) {
	sh, err := c.selectMode(Encrypt, iv, additionalData, plaintext)
	if err != nil {
		return nil, err
	}
	var f frame
	if err := c.buildFrame(&f, &sh); err != nil {
		return nil, err
	}
	p := c.plan(&sh, &f)
	c.logPlan(p, &sh)

	ret, out := subtle.SliceForAppend(dst, len(plaintext)+c.tagSize)
	if subtle.InexactOverlap(out, plaintext) {
		panic("authenc: invalid buffer overlap")
	}
	x := c.newExec(&sh, &f, out[:len(plaintext)], out[len(plaintext):])
	if _, err := x.run(p); err != nil {
		wipe(out)
		return nil, err
	}
	return ret, nil
}

// Open decrypts and authenticates ciphertext, which must end with
// the tag, authenticates additionalData and, if successful,
// appends the resulting plaintext to dst.
//
// If authentication fails the plaintext that was written is
// zeroed and ErrAuthentication is returned.
func (c *Context) Open(dst, iv, ciphertext, additionalData []byte) ([]byte, error) {
	sh, err := c.selectMode(Decrypt, iv, additionalData, ciphertext)
	if err != nil {
		return nil, err
	}
	var f frame
	if err := c.buildFrame(&f, &sh); err != nil {
		return nil, err
	}
	p := c.plan(&sh, &f)
	c.logPlan(p, &sh)

	ret, out := subtle.SliceForAppend(dst, sh.cryptlen())
	if subtle.InexactOverlap(out, sh.payload) {
		panic("authenc: invalid buffer overlap")
	}
	x := c.newExec(&sh, &f, out, nil)
	ok, err := x.run(p)
	if err != nil {
		wipe(out)
		return nil, err
	}
	if !ok {
		wipe(out)
		if ce := c.log.Check(zap.DebugLevel, "authentication failed"); ce != nil {
			ce.Write(zap.Stringer("session", c.id), zap.String("suite", c.suite.Name))
		}
		return nil, ErrAuthentication
	}
	return ret, nil
}

func (c *Context) logPlan(p *Plan, sh *shape) {
	if ce := c.log.Check(zap.DebugLevel, "request planned"); ce != nil {
		ce.Write(
			zap.Stringer("session", c.id),
			zap.Stringer("direction", p.Direction),
			zap.Bool("single_pass", p.SinglePass),
			zap.Int("assoc_len", len(sh.assoc)),
			zap.Int("cryptlen", sh.cryptlen()),
			zap.Int("steps", len(p.Steps)),
		)
	}
}

// AEAD returns c as a cipher.AEAD whose nonce is the suite's IV.
//
// Like the standard library's AEADs, its Seal panics on invalid
// input.
func (c *Context) AEAD() cipher.AEAD {
	return aead{c}
}

type aead struct {
	c *Context
}

var _ cipher.AEAD = aead{}

func (a aead) NonceSize() int {
	return a.c.suite.IVSize()
}

func (a aead) Overhead() int {
	return a.c.tagSize
}

func (a aead) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	if len(nonce) != a.NonceSize() {
		panic("authenc: invalid nonce length: " + strconv.Itoa(len(nonce)))
	}
	out, err := a.c.Seal(dst, nonce, plaintext, additionalData)
	if err != nil {
		panic(err)
	}
	return out
}

func (a aead) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != a.NonceSize() {
		panic("authenc: invalid nonce length: " + strconv.Itoa(len(nonce)))
	}
	return a.c.Open(dst, nonce, ciphertext, additionalData)
}

func dup(x []byte) []byte {
	r := make([]byte, len(x))
	copy(r, x)
	return r
}

// xor sets z = x^y for up to n bytes.
func xor(z, x, y []byte, n int) {
	// This loop condition prevents needless bounds checks.
	for i := 0; i < n && i < len(z) && i < len(x) && i < len(y); i++ {
		z[i] = x[i] ^ y[i]
	}
}

//go:noinline
func wipe(p []byte) {
	for i := range p {
		p[i] = 0
	}
	runtime.KeepAlive(p)
}
