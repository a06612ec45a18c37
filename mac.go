package authenc

import (
	"github.com/ericlagergren/authenc/internal/api"
)

// mac is the authentication state for one request.
type mac interface {
	// write absorbs p.
	write(p []byte) error
	// pad zero-pads the input to a block boundary.
	pad() error
	// sum appends the MAC to b.
	sum(b []byte) ([]byte, error)
}

func (c *Context) newMAC(f *frame) (mac, error) {
	e := c.engine
	switch k := c.auth.(type) {
	case *hmacKeys:
		h, err := e.NewHash(k.alg, nil, k.ipad)
		if err != nil {
			return nil, err
		}
		return hashMAC{h}, nil
	case *xcbcKeys:
		return &xcbcMAC{e: e, k: k}, nil
	}

	if c.suite.Cipher == CCM {
		m := &blockMAC{}
		state := make([]byte, api.BlockSize)
		m.absorb = func(p []byte) error {
			return e.Cipher(api.AES, api.CBCMAC, c.encKey, state, nil, p)
		}
		m.final = func(b []byte) ([]byte, error) {
			return append(b, state...), nil
		}
		return m, nil
	}

	h, err := e.NewHash(api.GHASH, f.h[:], nil)
	if err != nil {
		return nil, err
	}
	return &blockMAC{absorb: h.Absorb, final: h.Extract}, nil
}

// hashMAC is the inner HMAC hash.
type hashMAC struct {
	h api.Hash
}

func (m hashMAC) write(p []byte) error         { return m.h.Absorb(p) }
func (m hashMAC) pad() error                   { return nil }
func (m hashMAC) sum(b []byte) ([]byte, error) { return m.h.Extract(b) }

// blockMAC buffers input so that absorb only sees whole blocks.
type blockMAC struct {
	absorb func(p []byte) error
	final  func(b []byte) ([]byte, error)
	buf    [api.BlockSize]byte
	n      int
}

func (m *blockMAC) write(p []byte) error {
	if m.n > 0 {
		k := copy(m.buf[m.n:], p)
		m.n += k
		p = p[k:]
		if m.n < len(m.buf) {
			return nil
		}
		if err := m.absorb(m.buf[:]); err != nil {
			return err
		}
		m.n = 0
	}
	if n := len(p) &^ (api.BlockSize - 1); n > 0 {
		if err := m.absorb(p[:n]); err != nil {
			return err
		}
		p = p[n:]
	}
	m.n = copy(m.buf[:], p)
	return nil
}

func (m *blockMAC) pad() error {
	if m.n == 0 {
		return nil
	}
	for i := m.n; i < len(m.buf); i++ {
		m.buf[i] = 0
	}
	m.n = 0
	return m.absorb(m.buf[:])
}

func (m *blockMAC) sum(b []byte) ([]byte, error) {
	if err := m.pad(); err != nil {
		return nil, err
	}
	return m.final(b)
}

// xcbcMAC is AES-XCBC-MAC-96 per RFC 3566. The last block is held
// back until sum so that it can be combined with K2 or K3.
type xcbcMAC struct {
	e     api.Engine
	k     *xcbcKeys
	state [api.BlockSize]byte
	buf   [api.BlockSize]byte
	n     int
}

func (m *xcbcMAC) write(p []byte) error {
	for len(p) > 0 {
		if m.n == len(m.buf) {
			if err := m.e.Cipher(api.AES, api.CBCMAC, m.k.k1[:], m.state[:], nil, m.buf[:]); err != nil {
				return err
			}
			m.n = 0
		}
		// Absorb whole blocks directly while at least one more
		// byte follows them.
		if m.n == 0 && len(p) > api.BlockSize {
			n := (len(p) - 1) &^ (api.BlockSize - 1)
			if err := m.e.Cipher(api.AES, api.CBCMAC, m.k.k1[:], m.state[:], nil, p[:n]); err != nil {
				return err
			}
			p = p[n:]
		}
		k := copy(m.buf[m.n:], p)
		m.n += k
		p = p[k:]
	}
	return nil
}

func (m *xcbcMAC) pad() error {
	return nil
}

func (m *xcbcMAC) sum(b []byte) ([]byte, error) {
	last := m.buf
	if m.n == len(last) {
		xor(last[:], last[:], m.k.k2[:], len(last))
	} else {
		last[m.n] = 0x80
		for i := m.n + 1; i < len(last); i++ {
			last[i] = 0
		}
		xor(last[:], last[:], m.k.k3[:], len(last))
	}
	state := m.state
	if err := m.e.Cipher(api.AES, api.CBCMAC, m.k.k1[:], state[:], nil, last[:]); err != nil {
		return nil, err
	}
	return append(b, state[:]...), nil
}
