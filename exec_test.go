package authenc

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ericlagergren/authenc/internal/api"
	"github.com/ericlagergren/authenc/internal/engine"
)

func traced(t *testing.T, s Suite, key []byte, opts ...Option) (*Context, *engine.Tracer) {
	t.Helper()
	e := engine.Trace(engine.Software())
	c, err := New(s, key, 0, append(opts, withEngine(e))...)
	if err != nil {
		t.Fatal(err)
	}
	e.Reset()
	return c, e
}

func ops(calls []engine.Call) string {
	var b strings.Builder
	for i, c := range calls {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.Op)
	}
	return b.String()
}

// TestFusedOrder tests that a single pass interleaves the cipher
// and MAC chunk by chunk while a double pass does not.
func TestFusedOrder(t *testing.T) {
	key, iv, aad := testRequest(t, AuthencHMACSHA256AES)
	plaintext := make([]byte, 4*chunkSize)

	for _, tc := range []struct {
		double bool
		want   string
	}{
		{false, "new-hash absorb " +
			"cipher absorb cipher absorb cipher absorb cipher absorb " +
			"extract new-hash absorb extract"},
		{true, "cipher new-hash absorb absorb extract new-hash absorb extract"},
	} {
		var opts []Option
		if tc.double {
			opts = append(opts, WithDoublePass())
		}
		c, e := traced(t, AuthencHMACSHA256AES, key, opts...)
		if _, err := c.Seal(nil, iv, plaintext, aad); err != nil {
			t.Fatal(err)
		}
		if got := ops(e.Calls()); got != tc.want {
			t.Fatalf("double=%t:\nexpected %s\ngot      %s", tc.double, tc.want, got)
		}
	}
}

// TestMACInput tests that CCM authenticates the plaintext and GCM
// the ciphertext in both directions.
func TestMACInput(t *testing.T) {
	plaintext := make([]byte, 40)
	for i := range plaintext {
		plaintext[i] = byte(i) + 0x80
	}
	for _, tc := range []struct {
		suite      Suite
		plaintext  bool
		isMACInput func(c engine.Call) bool
	}{
		{AESCCM, true, func(c engine.Call) bool {
			return c.Op == "cipher" && c.Mode == api.CBCMAC
		}},
		{AESGCM, false, func(c engine.Call) bool {
			return c.Op == "absorb" && c.Hash == api.GHASH
		}},
	} {
		key, iv, aad := testRequest(t, tc.suite)
		c, e := traced(t, tc.suite, key)

		sealed, err := c.Seal(nil, iv, plaintext, aad)
		if err != nil {
			t.Fatal(err)
		}
		want := plaintext
		if !tc.plaintext {
			want = sealed[:len(plaintext)]
		}
		check := func(dir Direction) {
			var input []byte
			for _, call := range e.Calls() {
				if tc.isMACInput(call) {
					input = append(input, call.Data...)
				}
			}
			if !bytes.Contains(input, want) {
				t.Fatalf("%s %s: MAC input does not contain %x: %x", tc.suite, dir, want, input)
			}
		}
		check(Encrypt)

		e.Reset()
		if _, err := c.Open(nil, iv, sealed, aad); err != nil {
			t.Fatal(err)
		}
		check(Decrypt)
	}
}

// TestEngineFailure tests that a failing primitive aborts the
// request at every step and leaves no output behind.
func TestEngineFailure(t *testing.T) {
	boom := errors.New("boom")
	for _, s := range Suites() {
		key, iv, aad := testRequest(t, s)
		plaintext := make([]byte, payloadSize(s, 3*chunkSize+5))
		for i := range plaintext {
			plaintext[i] = byte(i)
		}

		for _, double := range []bool{false, true} {
			var opts []Option
			if double {
				opts = append(opts, WithDoublePass())
			}
			c, e := traced(t, s, key, opts...)
			sealed, err := c.Seal(nil, iv, plaintext, aad)
			if err != nil {
				t.Fatal(err)
			}
			nseal := len(e.Calls())
			e.Reset()
			if _, err := c.Open(nil, iv, sealed, aad); err != nil {
				t.Fatal(err)
			}
			nopen := len(e.Calls())
			e.Err = boom

			for i := 1; i <= nseal; i++ {
				e.Reset()
				e.FailAt = i
				buf := bytes.Repeat([]byte{0xff}, len(sealed))
				out, err := c.Seal(buf[:0], iv, plaintext, aad)
				if !errors.Is(err, ErrEngine) || !errors.Is(err, boom) {
					t.Fatalf("%s: Seal: call %d: unexpected error: %v", s, i, err)
				}
				if out != nil || !bytes.Equal(buf, make([]byte, len(buf))) {
					t.Fatalf("%s: Seal: call %d: output not wiped: %x", s, i, buf)
				}
			}
			for i := 1; i <= nopen; i++ {
				e.Reset()
				e.FailAt = i
				buf := bytes.Repeat([]byte{0xff}, len(plaintext))
				out, err := c.Open(buf[:0], iv, sealed, aad)
				var ee *EngineError
				if !errors.As(err, &ee) || ee.Err != boom {
					t.Fatalf("%s: Open: call %d: unexpected error: %v", s, i, err)
				}
				if out != nil || !bytes.Equal(buf, make([]byte, len(buf))) {
					t.Fatalf("%s: Open: call %d: output not wiped: %x", s, i, buf)
				}
			}
			e.FailAt = 0
		}
	}
}

// TestValidationNoEngine tests that invalid requests are rejected
// before the engine is called.
func TestValidationNoEngine(t *testing.T) {
	hmacKey, hmacIV, hmacAAD := testRequest(t, AuthencHMACSHA256AES)
	gcmKey, gcmIV, gcmAAD := testRequest(t, AESGCMRFC4106)
	gmacKey, gmacIV, gmacAAD := testRequest(t, AESGMACRFC4543)
	ccmIV := make([]byte, 16)
	ccmIV[0] = 1 // L = 2
	badL := make([]byte, 16)
	gmacTail := dup(gmacAAD)
	gmacTail[len(gmacTail)-1] ^= 1

	for i, tc := range []struct {
		suite Suite
		key   []byte
		dir   Direction
		iv    []byte
		input []byte
		aad   []byte
		err   error
	}{
		{AuthencHMACSHA256AES, hmacKey, Encrypt, hmacIV[:8], make([]byte, 16), hmacAAD, ErrInvalidIV},
		{AuthencHMACSHA256AES, hmacKey, Encrypt, hmacIV, make([]byte, 15), hmacAAD, ErrInvalidLength},
		{AuthencHMACSHA256AES, hmacKey, Decrypt, hmacIV, make([]byte, 31), hmacAAD, ErrInvalidLength},
		{AuthencHMACSHA256AES, hmacKey, Decrypt, hmacIV, make([]byte, 16+32+1), hmacAAD, ErrInvalidLength},
		{AESGCMRFC4106, gcmKey, Encrypt, gcmIV, make([]byte, 16), gcmAAD[:12], ErrInvalidAssociatedDataLength},
		{AESGCMRFC4106, gcmKey, Decrypt, gcmIV, make([]byte, 32), append(dup(gcmAAD), 0), ErrInvalidAssociatedDataLength},
		{AESGMACRFC4543, gmacKey, Encrypt, gmacIV, make([]byte, 16), gmacTail, ErrInvalidIV},
		{AESCCM, make([]byte, 16), Encrypt, ccmIV, make([]byte, 1<<16), nil, ErrLengthOverflow},
		{AESCCM, make([]byte, 16), Decrypt, ccmIV, make([]byte, 1<<16+16), nil, ErrLengthOverflow},
		{AESCCM, make([]byte, 16), Encrypt, badL, make([]byte, 16), nil, ErrInvalidIV},
	} {
		c, e := traced(t, tc.suite, tc.key)
		var err error
		if tc.dir == Encrypt {
			_, err = c.Seal(nil, tc.iv, tc.input, tc.aad)
		} else {
			_, err = c.Open(nil, tc.iv, tc.input, tc.aad)
		}
		if !errors.Is(err, tc.err) {
			t.Fatalf("#%d: %s: expected %v, got %v", i, tc.suite, tc.err, err)
		}
		if _, err := c.Plan(tc.dir, tc.iv, tc.input, tc.aad); !errors.Is(err, tc.err) {
			t.Fatalf("#%d: %s: Plan: expected %v, got %v", i, tc.suite, tc.err, err)
		}
		if calls := e.Calls(); len(calls) != 0 {
			t.Fatalf("#%d: %s: %d engine calls before rejecting: %s", i, tc.suite, len(calls), ops(calls))
		}
	}
}

func TestEngineErrorString(t *testing.T) {
	err := error(&EngineError{
		Step: Step{Kind: CipherApply, Src: Input, Len: 32},
		Err:  errors.New("boom"),
	})
	want := "authenc: engine failure at cipher-apply(input[32]): boom"
	if got := err.Error(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if errors.Is(err, ErrAuthentication) {
		t.Fatal("EngineError should not match ErrAuthentication")
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", err), ErrEngine) {
		t.Fatal("wrapped EngineError should match ErrEngine")
	}
}

// TestLogging tests that requests are logged without key material
// or payloads.
func TestLogging(t *testing.T) {
	require := require.New(t)

	core, logs := observer.New(zap.DebugLevel)
	key, iv, aad := testRequest(t, AuthencHMACSHA1AES)
	c, err := New(AuthencHMACSHA1AES, key, 0, WithLogger(zap.New(core)))
	require.NoError(err)

	plaintext := []byte("YELLOW SUBMARINE")
	sealed, err := c.Seal(nil, iv, plaintext, aad)
	require.NoError(err)
	sealed[0] ^= 1
	_, err = c.Open(nil, iv, sealed, aad)
	require.ErrorIs(err, ErrAuthentication)

	require.Equal(1, logs.FilterMessage("session created").Len())
	require.Equal(2, logs.FilterMessage("request planned").Len())
	require.Equal(1, logs.FilterMessage("authentication failed").Len())

	secrets := []string{
		hex.EncodeToString(key),
		hex.EncodeToString(plaintext),
		string(plaintext),
	}
	for _, entry := range logs.All() {
		for k, v := range entry.ContextMap() {
			s := fmt.Sprint(v)
			for _, secret := range secrets {
				require.NotContains(s, secret, "field %q of %q", k, entry.Message)
			}
		}
	}
}
