package authenc

import (
	"github.com/ericlagergren/subtle"

	"github.com/ericlagergren/authenc/internal/api"
)

// chunkSize is the size of a fused cipher and MAC traversal. It
// is a multiple of every block size.
const chunkSize = 256

// exec runs a plan against the engine.
type exec struct {
	c  *Context
	sh *shape
	f  *frame
	// out is the payload region of the output.
	out []byte
	// tag is the tag region of the output when encrypting.
	tag []byte

	mode    api.Mode
	ctr     []byte
	mac     mac
	scratch []byte
	ok      bool
}

func (c *Context) newExec(sh *shape, f *frame, out, tag []byte) *exec {
	x := &exec{c: c, sh: sh, f: f, out: out, tag: tag}
	switch c.suite.Cipher {
	case CBC:
		x.mode = api.CBCEncrypt
		if sh.dir == Decrypt {
			x.mode = api.CBCDecrypt
		}
	case CTR, CCM:
		x.mode = api.CTR
	case GCTR:
		x.mode = api.GCTR
	}
	return x
}

// run executes p. It reports whether the tag verified; encryption
// always verifies.
func (x *exec) run(p *Plan) (bool, error) {
	for _, s := range p.Steps {
		if err := x.step(s); err != nil {
			return false, &EngineError{Step: s, Err: err}
		}
	}
	return x.ok, nil
}

func (x *exec) buffer(b Buffer) []byte {
	switch b {
	case Assoc:
		return x.sh.assoc
	case IV:
		return x.sh.iv
	case Input:
		return x.sh.payload
	case Output:
		return x.out
	case B0:
		return x.f.b0[:]
	case A0:
		return x.f.a0
	case Lengths:
		return x.f.lengths[:]
	default:
		return nil
	}
}

func (x *exec) step(s Step) error {
	e := x.c.engine
	alg := x.c.suite.Block.alg()
	key := x.c.encKey

	switch s.Kind {
	case LoadKey:
		x.ctr = make([]byte, alg.BlockSize())
		copy(x.ctr, x.f.start[:])
		return nil
	case LoadState:
		m, err := x.c.newMAC(x.f)
		if err != nil {
			return err
		}
		x.mac = m
		return nil
	case DeriveSubkey:
		var zero [16]byte
		return e.Cipher(api.AES, api.ECB, key, nil, x.f.h[:], zero[:])
	case HashAbsorb:
		if err := x.mac.write(x.buffer(s.Src)[:s.Len]); err != nil {
			return err
		}
	case CipherApply:
		return e.Cipher(alg, x.mode, key, x.ctr, x.out[:s.Len], x.buffer(s.Src)[:s.Len])
	case CipherHash:
		if err := x.fused(s); err != nil {
			return err
		}
	case CopyPayload:
		copy(x.out, x.buffer(s.Src)[:s.Len])
		return nil
	case HashFinal:
		var err error
		x.scratch, err = x.mac.sum(x.scratch[:0])
		return err
	case HashOuter:
		k := x.c.auth.(*hmacKeys)
		h, err := e.NewHash(k.alg, nil, k.opad)
		if err != nil {
			return err
		}
		if err := h.Absorb(x.scratch); err != nil {
			return err
		}
		x.scratch, err = h.Extract(x.scratch[:0])
		return err
	case TagMask:
		ctr := x.f.mask
		return e.Cipher(api.AES, x.mode, key, ctr[:], x.scratch, x.scratch)
	case StoreTag:
		copy(x.tag, x.scratch[:x.c.tagSize])
		x.ok = true
		return nil
	case VerifyTag:
		x.ok = subtle.ConstantTimeCompare(x.scratch[:x.c.tagSize], x.sh.tag) == 1
		return nil
	}
	if s.Pad {
		return x.mac.pad()
	}
	return nil
}

// fused runs the cipher and MAC over the payload chunk by chunk.
// When s.Absorb is Input the MAC reads each chunk before it is
// transformed, otherwise after.
func (x *exec) fused(s Step) error {
	e := x.c.engine
	alg := x.c.suite.Block.alg()
	src := x.buffer(s.Src)[:s.Len]
	for off := 0; off < len(src); off += chunkSize {
		end := off + chunkSize
		if end > len(src) {
			end = len(src)
		}
		if s.Absorb == Input {
			if err := x.mac.write(src[off:end]); err != nil {
				return err
			}
		}
		if err := e.Cipher(alg, x.mode, x.c.encKey, x.ctr, x.out[off:end], src[off:end]); err != nil {
			return err
		}
		if s.Absorb == Output {
			if err := x.mac.write(x.out[off:end]); err != nil {
				return err
			}
		}
	}
	return nil
}
