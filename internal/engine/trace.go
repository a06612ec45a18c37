package engine

import (
	"sync"

	"github.com/ericlagergren/authenc/internal/api"
)

// Call is a primitive call observed by a Tracer.
type Call struct {
	// Op is "cipher", "new-hash", "absorb" or "extract".
	Op   string
	Alg  api.Alg
	Mode api.Mode
	Hash api.HashAlg
	// Data is a copy of the primitive's input.
	Data []byte
}

// Tracer wraps an engine and records every primitive call in
// order. It can optionally fail a specific call.
type Tracer struct {
	api.Engine

	mu    sync.Mutex
	calls []Call
	// FailAt, if positive, makes the FailAt'th recorded call
	// return Err instead of running.
	FailAt int
	Err    error
}

var _ api.Engine = (*Tracer)(nil)

// Trace returns a Tracer wrapping e.
func Trace(e api.Engine) *Tracer {
	return &Tracer{Engine: e}
}

// Calls returns the recorded calls.
func (t *Tracer) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// Reset clears the recorded calls.
func (t *Tracer) Reset() {
	t.mu.Lock()
	t.calls = nil
	t.mu.Unlock()
}

func (t *Tracer) record(c Call) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, c)
	if t.FailAt > 0 && len(t.calls) == t.FailAt {
		return t.Err
	}
	return nil
}

func (t *Tracer) Name() string {
	return "trace(" + t.Engine.Name() + ")"
}

func (t *Tracer) Cipher(alg api.Alg, mode api.Mode, key, iv, dst, src []byte) error {
	err := t.record(Call{Op: "cipher", Alg: alg, Mode: mode, Data: dup(src)})
	if err != nil {
		return err
	}
	return t.Engine.Cipher(alg, mode, key, iv, dst, src)
}

func (t *Tracer) NewHash(alg api.HashAlg, key, state []byte) (api.Hash, error) {
	if err := t.record(Call{Op: "new-hash", Hash: alg}); err != nil {
		return nil, err
	}
	h, err := t.Engine.NewHash(alg, key, state)
	if err != nil {
		return nil, err
	}
	return &tracedHash{Hash: h, t: t, alg: alg}, nil
}

type tracedHash struct {
	api.Hash
	t   *Tracer
	alg api.HashAlg
}

func (h *tracedHash) Absorb(p []byte) error {
	if err := h.t.record(Call{Op: "absorb", Hash: h.alg, Data: dup(p)}); err != nil {
		return err
	}
	return h.Hash.Absorb(p)
}

func (h *tracedHash) Extract(b []byte) ([]byte, error) {
	if err := h.t.record(Call{Op: "extract", Hash: h.alg}); err != nil {
		return nil, err
	}
	return h.Hash.Extract(b)
}

func dup(x []byte) []byte {
	r := make([]byte, len(x))
	copy(r, x)
	return r
}
