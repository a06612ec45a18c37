package authenc

import (
	"strconv"
	"strings"
)

// StepKind identifies a plan step.
type StepKind uint8

const (
	// LoadKey loads the cipher key and the initial chaining
	// value or counter block.
	LoadKey StepKind = iota
	// LoadState seeds the MAC: the HMAC inner state, a zero
	// XCBC or CBC-MAC state, or GHASH keyed with H.
	LoadState
	// DeriveSubkey computes the GHASH subkey H = E(K, 0^128).
	DeriveSubkey
	// HashAbsorb writes a buffer to the MAC.
	HashAbsorb
	// CipherApply runs the cipher over the payload.
	CipherApply
	// CipherHash runs the cipher and the MAC over the payload
	// in one traversal.
	CipherHash
	// CopyPayload copies the payload to the output unchanged.
	CopyPayload
	// HashFinal finishes the MAC into the tag scratch buffer.
	HashFinal
	// HashOuter runs the HMAC outer hash over the scratch
	// buffer.
	HashOuter
	// TagMask encrypts the scratch buffer with a single counter
	// block.
	TagMask
	// StoreTag appends the truncated tag to the output.
	StoreTag
	// VerifyTag compares the scratch buffer to the received
	// tag.
	VerifyTag
)

var stepNames = [...]string{
	LoadKey:      "load-key",
	LoadState:    "load-state",
	DeriveSubkey: "derive-subkey",
	HashAbsorb:   "hash-absorb",
	CipherApply:  "cipher-apply",
	CipherHash:   "cipher-hash",
	CopyPayload:  "copy-payload",
	HashFinal:    "hash-final",
	HashOuter:    "hash-outer",
	TagMask:      "tag-mask",
	StoreTag:     "store-tag",
	VerifyTag:    "verify-tag",
}

func (k StepKind) String() string {
	if int(k) < len(stepNames) {
		return stepNames[k]
	}
	return "StepKind(" + strconv.Itoa(int(k)) + ")"
}

// Buffer names a byte range that a step reads.
type Buffer uint8

const (
	NoBuffer Buffer = iota
	// Assoc is the associated data, excluding the IV for
	// IPsec suites.
	Assoc
	// IV is the caller's IV.
	IV
	// Input is the payload as given to Seal or Open.
	Input
	// Output is the payload as written to the output.
	Output
	// B0 is CCM's first block.
	B0
	// A0 is CCM's associated data length encoding.
	A0
	// Lengths is GCM's length block.
	Lengths
)

var bufferNames = [...]string{
	NoBuffer: "",
	Assoc:    "assoc",
	IV:       "iv",
	Input:    "input",
	Output:   "output",
	B0:       "b0",
	A0:       "a0",
	Lengths:  "lengths",
}

func (b Buffer) String() string {
	if int(b) < len(bufferNames) {
		return bufferNames[b]
	}
	return "Buffer(" + strconv.Itoa(int(b)) + ")"
}

// Step is one instruction of a Plan.
type Step struct {
	Kind StepKind
	// Src is the buffer the step reads.
	Src Buffer
	// Absorb is the buffer a CipherHash step writes to the MAC:
	// Input to MAC before the cipher runs, Output after.
	Absorb Buffer
	// Len is the number of bytes read from Src.
	Len int
	// Pad zero-pads the MAC input to a block boundary after
	// this step.
	Pad bool
}

func (s Step) String() string {
	var b strings.Builder
	b.WriteString(s.Kind.String())
	if s.Src != NoBuffer {
		b.WriteByte('(')
		b.WriteString(s.Src.String())
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(s.Len))
		b.WriteByte(']')
		if s.Absorb != NoBuffer {
			b.WriteString(", mac=")
			b.WriteString(s.Absorb.String())
		}
		if s.Pad {
			b.WriteString(", pad")
		}
		b.WriteByte(')')
	}
	return b.String()
}

// Plan is the ordered list of steps for one request.
type Plan struct {
	Direction  Direction
	SinglePass bool
	Steps      []Step
}

func (p *Plan) String() string {
	var b strings.Builder
	for i, s := range p.Steps {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Plan validates a request and returns the steps that Seal
// (Encrypt) or Open (Decrypt) would execute for it.
func (c *Context) Plan(dir Direction, iv, input, additionalData []byte) (*Plan, error) {
	sh, err := c.selectMode(dir, iv, additionalData, input)
	if err != nil {
		return nil, err
	}
	var f frame
	if err := c.buildFrame(&f, &sh); err != nil {
		return nil, err
	}
	return c.plan(&sh, &f), nil
}

// plan emits the steps for a validated request.
func (c *Context) plan(sh *shape, f *frame) *Plan {
	p := &Plan{
		Direction:  sh.dir,
		SinglePass: sh.single,
		Steps:      make([]Step, 0, 12),
	}
	switch c.suite.Cipher {
	case CCM:
		c.planCCM(p, sh, f)
	case GCTR:
		c.planGCM(p, sh)
	default:
		c.planAuthenc(p, sh)
	}
	if sh.dir == Encrypt {
		p.add(Step{Kind: StoreTag})
	} else {
		p.add(Step{Kind: VerifyTag})
	}
	return p
}

func (p *Plan) add(s ...Step) {
	p.Steps = append(p.Steps, s...)
}

// absorb adds a HashAbsorb step unless n is zero.
func (p *Plan) absorb(src Buffer, n int, pad bool) {
	if n > 0 {
		p.add(Step{Kind: HashAbsorb, Src: src, Len: n, Pad: pad})
	}
}

// padLast marks the last MAC input step as padded.
func (p *Plan) padLast() {
	for i := len(p.Steps) - 1; i >= 0; i-- {
		switch p.Steps[i].Kind {
		case HashAbsorb, CipherHash:
			p.Steps[i].Pad = true
			return
		case LoadState:
			return
		}
	}
}

// macBuffer returns the buffer holding the payload bytes the MAC
// covers: ciphertext, unless the mode authenticates plaintext.
func macBuffer(dir Direction, plaintext bool) Buffer {
	if (dir == Encrypt) == plaintext {
		return Input
	}
	return Output
}

// planAuthenc emits the HMAC or XCBC composition.
//
// Decryption authenticates the ciphertext as received before it
// is deciphered.
func (c *Context) planAuthenc(p *Plan, sh *shape) {
	n := sh.cryptlen()
	hmac := c.suite.Auth != XCBC
	final := func() {
		p.add(Step{Kind: HashFinal})
		if hmac {
			p.add(Step{Kind: HashOuter})
		}
	}

	switch {
	case sh.single:
		p.add(Step{Kind: LoadState}, Step{Kind: LoadKey})
		p.absorb(Assoc, len(sh.assoc), false)
		if n > 0 {
			p.add(Step{Kind: CipherHash, Src: Input, Absorb: macBuffer(sh.dir, false), Len: n})
		}
		final()
	case sh.dir == Encrypt:
		if n > 0 {
			p.add(Step{Kind: LoadKey}, Step{Kind: CipherApply, Src: Input, Len: n})
		}
		p.add(Step{Kind: LoadState})
		p.absorb(Assoc, len(sh.assoc), false)
		p.absorb(Output, n, false)
		final()
	default:
		p.add(Step{Kind: LoadState})
		p.absorb(Assoc, len(sh.assoc), false)
		p.absorb(Input, n, false)
		final()
		if n > 0 {
			p.add(Step{Kind: LoadKey}, Step{Kind: CipherApply, Src: Input, Len: n})
		}
	}
}

// planCCM emits CCM. The CBC-MAC covers the plaintext in both
// directions.
func (c *Context) planCCM(p *Plan, sh *shape, f *frame) {
	n := sh.cryptlen()
	p.add(
		Step{Kind: LoadKey},
		Step{Kind: LoadState},
		Step{Kind: HashAbsorb, Src: B0, Len: len(f.b0)},
	)
	if len(sh.assoc) > 0 {
		p.absorb(A0, len(f.a0), false)
		p.absorb(Assoc, len(sh.assoc), true)
	}
	if n > 0 {
		p.add(Step{Kind: CipherHash, Src: Input, Absorb: macBuffer(sh.dir, true), Len: n, Pad: true})
	}
	p.add(Step{Kind: HashFinal}, Step{Kind: TagMask})
}

// planGCM emits GCM and GMAC. GHASH covers the ciphertext in both
// directions.
func (c *Context) planGCM(p *Plan, sh *shape) {
	n := sh.cryptlen()
	p.add(
		Step{Kind: LoadKey},
		Step{Kind: DeriveSubkey},
		Step{Kind: LoadState},
	)
	if c.suite.Variant == RFC4543 {
		// assoc || iv || payload is a single run of
		// additional data.
		p.absorb(Assoc, len(sh.assoc), false)
		p.absorb(IV, len(sh.iv), false)
		if sh.dir == Encrypt {
			if n > 0 {
				p.add(Step{Kind: CopyPayload, Src: Input, Len: n})
			}
			p.absorb(Output, n, false)
		} else {
			p.absorb(Input, n, false)
			if n > 0 {
				p.add(Step{Kind: CopyPayload, Src: Input, Len: n})
			}
		}
		p.padLast()
	} else {
		p.absorb(Assoc, len(sh.assoc), true)
		if n > 0 {
			p.add(Step{Kind: CipherHash, Src: Input, Absorb: macBuffer(sh.dir, false), Len: n, Pad: true})
		}
	}
	p.add(
		Step{Kind: HashAbsorb, Src: Lengths, Len: 16},
		Step{Kind: HashFinal},
		Step{Kind: TagMask},
	)
}
