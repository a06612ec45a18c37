package authenc

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ericlagergren/authenc/internal/api"
	"github.com/ericlagergren/authenc/internal/engine"
)

// Context is a keyed AEAD session.
//
// A Context is immutable after New and is safe for concurrent
// use.
type Context struct {
	suite   Suite
	encKey  []byte
	nonce   []byte
	auth    authKeys
	tagSize int
	double  bool
	engine  api.Engine
	log     *zap.Logger
	id      uuid.UUID
}

// authKeys is the authentication key material selected at key
// schedule time: *hmacKeys, *xcbcKeys or nil.
type authKeys interface {
	wipe()
}

// hmacKeys holds the hash states after absorbing the inner and
// outer padded keys.
type hmacKeys struct {
	alg  api.HashAlg
	ipad []byte
	opad []byte
}

func (k *hmacKeys) wipe() {
	wipe(k.ipad)
	wipe(k.opad)
}

// xcbcKeys holds the RFC 3566 derived keys.
type xcbcKeys struct {
	k1, k2, k3 [16]byte
}

func (k *xcbcKeys) wipe() {
	wipe(k.k1[:])
	wipe(k.k2[:])
	wipe(k.k3[:])
}

type options struct {
	engine api.Engine
	log    *zap.Logger
	double bool
}

// Option configures a Context.
type Option func(*options)

// WithLogger sets the logger. Nothing secret is ever logged.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithDoublePass disables fused cipher and MAC traversals.
func WithDoublePass() Option {
	return func(o *options) {
		o.double = true
	}
}

func withEngine(e api.Engine) Option {
	return func(o *options) {
		o.engine = e
	}
}

// New creates a Context for suite s.
//
// For authenc suites key is an authenc key blob (see
// AuthencKey). For the combined modes key is the AES key. In
// both cases RFC wrapped suites carry their nonce or salt in the
// trailing bytes of the encryption key.
//
// A tagSize of zero selects the largest tag the suite supports.
func New(s Suite, key []byte, tagSize int, opts ...Option) (*Context, error) {
	o := options{
		engine: engine.Software(),
		log:    zap.NewNop(),
	}
	for _, fn := range opts {
		fn(&o)
	}

	if tagSize == 0 {
		tagSize = s.MaxTagSize()
	}
	if !s.validTagSize(tagSize) {
		return nil, fmt.Errorf("%w: %d for %s", ErrInvalidTagSize, tagSize, s)
	}

	var authKey, encKey []byte
	if s.authenc() {
		var err error
		authKey, encKey, err = SplitAuthencKey(key)
		if err != nil {
			return nil, err
		}
	} else {
		encKey = key
	}

	c := &Context{
		suite:   s,
		tagSize: tagSize,
		double:  o.double,
		engine:  o.engine,
		log:     o.log,
		id:      uuid.New(),
	}
	if n := s.nonceSize(); n > 0 {
		if len(encKey) < n {
			return nil, fmt.Errorf("%w: %d", ErrInvalidKeyLength, len(encKey))
		}
		c.nonce = dup(encKey[len(encKey)-n:])
		encKey = encKey[:len(encKey)-n]
	}
	if !s.validKeySize(len(encKey)) {
		return nil, fmt.Errorf("%w: %d byte %s key", ErrInvalidKeyLength, len(encKey), s.Block.alg())
	}
	c.encKey = dup(encKey)

	var err error
	switch s.Auth {
	case HMACSHA1, HMACSHA256:
		c.auth, err = deriveHMAC(c.engine, s.hashAlg(), authKey)
	case XCBC:
		switch len(authKey) {
		case 16, 24, 32:
		default:
			return nil, fmt.Errorf("%w: %d byte xcbc key", ErrInvalidKeyLength, len(authKey))
		}
		c.auth, err = deriveXCBC(c.engine, authKey)
	case NoAuth:
		if len(authKey) != 0 {
			return nil, fmt.Errorf("%w: unexpected authentication key", ErrInvalidKeyLength)
		}
	}
	if err != nil {
		wipe(c.encKey)
		return nil, fmt.Errorf("%w: %w", ErrKeyDerivation, err)
	}

	if ce := c.log.Check(zap.DebugLevel, "session created"); ce != nil {
		ce.Write(
			zap.Stringer("session", c.id),
			zap.String("suite", s.Name),
			zap.String("engine", c.engine.Name()),
			zap.Int("tag_size", tagSize),
		)
	}
	return c, nil
}

// Suite returns the Context's suite.
func (c *Context) Suite() Suite {
	return c.suite
}

// TagSize returns the tag size in bytes.
func (c *Context) TagSize() int {
	return c.tagSize
}

// Reset clears the Context's key material. The Context must not
// be used afterward.
func (c *Context) Reset() {
	wipe(c.encKey)
	wipe(c.nonce)
	if c.auth != nil {
		c.auth.wipe()
	}
}

// deriveHMAC precomputes the inner and outer HMAC states.
func deriveHMAC(e api.Engine, alg api.HashAlg, key []byte) (*hmacKeys, error) {
	h, err := e.NewHash(alg, nil, nil)
	if err != nil {
		return nil, err
	}
	bs := h.BlockSize()
	if len(key) > bs {
		if err := h.Absorb(key); err != nil {
			return nil, err
		}
		key, err = h.Extract(nil)
		if err != nil {
			return nil, err
		}
	}

	block := make([]byte, bs)
	defer wipe(block)

	k := &hmacKeys{alg: alg}
	for _, pad := range []byte{0x36, 0x5c} {
		for i := range block {
			block[i] = pad
		}
		xor(block, block, key, len(key))

		h, err := e.NewHash(alg, nil, nil)
		if err != nil {
			return nil, err
		}
		if err := h.Absorb(block); err != nil {
			return nil, err
		}
		state, err := h.State()
		if err != nil {
			return nil, err
		}
		if pad == 0x36 {
			k.ipad = state
		} else {
			k.opad = state
		}
	}
	return k, nil
}

// deriveXCBC derives K1, K2 and K3 per RFC 3566.
func deriveXCBC(e api.Engine, key []byte) (*xcbcKeys, error) {
	var src [48]byte
	for i := range src {
		src[i] = byte(i/16) + 1
	}
	var dst [48]byte
	if err := e.Cipher(api.AES, api.ECB, key, nil, dst[:], src[:]); err != nil {
		return nil, err
	}
	k := &xcbcKeys{}
	copy(k.k1[:], dst[0:16])
	copy(k.k2[:], dst[16:32])
	copy(k.k3[:], dst[32:48])
	wipe(dst[:])
	return k, nil
}

const (
	authencKeyParam    = 1
	authencKeyParamLen = 8
)

// AuthencKey encodes authKey and encKey as an authenc key blob:
// an rtattr header carrying the big-endian encryption key length,
// followed by authKey || encKey.
func AuthencKey(authKey, encKey []byte) []byte {
	b := make([]byte, authencKeyParamLen, authencKeyParamLen+len(authKey)+len(encKey))
	binary.LittleEndian.PutUint16(b[0:2], authencKeyParamLen)
	binary.LittleEndian.PutUint16(b[2:4], authencKeyParam)
	binary.BigEndian.PutUint32(b[4:8], uint32(len(encKey)))
	b = append(b, authKey...)
	return append(b, encKey...)
}

// SplitAuthencKey parses an authenc key blob. The returned slices
// alias key.
func SplitAuthencKey(key []byte) (authKey, encKey []byte, err error) {
	if len(key) < authencKeyParamLen {
		return nil, nil, fmt.Errorf("%w: short authenc key", ErrInvalidKeyLength)
	}
	if binary.LittleEndian.Uint16(key[0:2]) != authencKeyParamLen ||
		binary.LittleEndian.Uint16(key[2:4]) != authencKeyParam {
		return nil, nil, fmt.Errorf("%w: malformed authenc key header", ErrInvalidKeyLength)
	}
	n := uint64(binary.BigEndian.Uint32(key[4:8]))
	key = key[authencKeyParamLen:]
	if n > uint64(len(key)) {
		return nil, nil, fmt.Errorf("%w: encryption key length %d exceeds blob", ErrInvalidKeyLength, n)
	}
	split := len(key) - int(n)
	return key[:split], key[split:], nil
}

// GenerateKey returns a random key for s with an encryption key
// of encKeySize bytes, including any nonce or salt. Authenc
// suites get an authentication key of the hash's digest size
// (16 bytes for XCBC) and are returned as an authenc key blob.
func GenerateKey(s Suite, encKeySize int) ([]byte, error) {
	if !s.validKeySize(encKeySize) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeyLength, encKeySize)
	}
	r := engine.Software()
	encKey := make([]byte, encKeySize+s.nonceSize())
	if _, err := r.Read(encKey); err != nil {
		return nil, err
	}
	if !s.authenc() {
		return encKey, nil
	}
	authKey := make([]byte, s.MaxTagSize())
	if _, err := r.Read(authKey); err != nil {
		return nil, err
	}
	return AuthencKey(authKey, encKey), nil
}

// GenerateIV returns a random IV for s. CCM IVs use a four byte
// length field.
func GenerateIV(s Suite) ([]byte, error) {
	iv := make([]byte, s.IVSize())
	if _, err := engine.Software().Read(iv); err != nil {
		return nil, err
	}
	if s.Cipher == CCM && s.Variant == Plain {
		const lprime = 3
		iv[0] = lprime
		for i := len(iv) - lprime - 1; i < len(iv); i++ {
			iv[i] = 0
		}
	}
	return iv, nil
}
