package authenc

import (
	"testing"
)

func TestPlanOrder(t *testing.T) {
	hmacKey := AuthencKey(make([]byte, 20), make([]byte, 16))
	ctrKey := AuthencKey(make([]byte, 20), make([]byte, 20))
	for i, tc := range []struct {
		suite  Suite
		key    []byte
		double bool
		dir    Direction
		iv     []byte
		input  []byte
		aad    []byte
		want   string
	}{
		{
			suite: AuthencHMACSHA1AES, key: hmacKey,
			dir: Encrypt, iv: make([]byte, 16), input: make([]byte, 32), aad: make([]byte, 8),
			want: "load-state -> load-key -> hash-absorb(assoc[8]) -> cipher-hash(input[32], mac=output) -> " +
				"hash-final -> hash-outer -> store-tag",
		},
		{
			suite: AuthencHMACSHA1AES, key: hmacKey,
			dir: Decrypt, iv: make([]byte, 16), input: make([]byte, 32+20), aad: make([]byte, 8),
			want: "load-state -> load-key -> hash-absorb(assoc[8]) -> cipher-hash(input[32], mac=input) -> " +
				"hash-final -> hash-outer -> verify-tag",
		},
		{
			suite: AuthencHMACSHA1AES, key: hmacKey, double: true,
			dir: Encrypt, iv: make([]byte, 16), input: make([]byte, 32), aad: make([]byte, 8),
			want: "load-key -> cipher-apply(input[32]) -> load-state -> hash-absorb(assoc[8]) -> " +
				"hash-absorb(output[32]) -> hash-final -> hash-outer -> store-tag",
		},
		{
			suite: AuthencHMACSHA1AES, key: hmacKey, double: true,
			dir: Decrypt, iv: make([]byte, 16), input: make([]byte, 32+20), aad: make([]byte, 8),
			want: "load-state -> hash-absorb(assoc[8]) -> hash-absorb(input[32]) -> hash-final -> " +
				"hash-outer -> load-key -> cipher-apply(input[32]) -> verify-tag",
		},
		{
			// Unaligned associated data falls back to two passes.
			suite: AuthencXCBCAES, key: AuthencKey(make([]byte, 16), make([]byte, 16)),
			dir: Decrypt, iv: make([]byte, 16), input: make([]byte, 32+16), aad: make([]byte, 7),
			want: "load-state -> hash-absorb(assoc[7]) -> hash-absorb(input[32]) -> hash-final -> " +
				"load-key -> cipher-apply(input[32]) -> verify-tag",
		},
		{
			// So does an unaligned CTR payload.
			suite: AuthencHMACSHA256CTR, key: ctrKey,
			dir: Encrypt, iv: make([]byte, 8), input: make([]byte, 30), aad: make([]byte, 8),
			want: "load-key -> cipher-apply(input[30]) -> load-state -> hash-absorb(assoc[8]) -> " +
				"hash-absorb(output[30]) -> hash-final -> hash-outer -> store-tag",
		},
		{
			suite: AuthencHMACSHA1AES, key: hmacKey,
			dir: Encrypt, iv: make([]byte, 16),
			want: "load-state -> load-key -> hash-final -> hash-outer -> store-tag",
		},
		{
			suite: AESCCM, key: make([]byte, 16),
			dir: Encrypt, iv: append([]byte{3}, make([]byte, 15)...), input: make([]byte, 20), aad: make([]byte, 8),
			want: "load-key -> load-state -> hash-absorb(b0[16]) -> hash-absorb(a0[2]) -> hash-absorb(assoc[8], pad) -> " +
				"cipher-hash(input[20], mac=input, pad) -> hash-final -> tag-mask -> store-tag",
		},
		{
			suite: AESCCM, key: make([]byte, 16),
			dir: Decrypt, iv: append([]byte{3}, make([]byte, 15)...), input: make([]byte, 20+16),
			want: "load-key -> load-state -> hash-absorb(b0[16]) -> " +
				"cipher-hash(input[20], mac=output, pad) -> hash-final -> tag-mask -> verify-tag",
		},
		{
			suite: AESGCM, key: make([]byte, 16),
			dir: Encrypt, iv: make([]byte, 12), input: make([]byte, 20), aad: make([]byte, 8),
			want: "load-key -> derive-subkey -> load-state -> hash-absorb(assoc[8], pad) -> " +
				"cipher-hash(input[20], mac=output, pad) -> hash-absorb(lengths[16]) -> hash-final -> tag-mask -> store-tag",
		},
		{
			suite: AESGCM, key: make([]byte, 16),
			dir: Decrypt, iv: make([]byte, 12), input: make([]byte, 20+16), aad: make([]byte, 8),
			want: "load-key -> derive-subkey -> load-state -> hash-absorb(assoc[8], pad) -> " +
				"cipher-hash(input[20], mac=input, pad) -> hash-absorb(lengths[16]) -> hash-final -> tag-mask -> verify-tag",
		},
		{
			suite: AESGCM, key: make([]byte, 16),
			dir: Encrypt, iv: make([]byte, 12),
			want: "load-key -> derive-subkey -> load-state -> hash-absorb(lengths[16]) -> hash-final -> tag-mask -> store-tag",
		},
		{
			suite: AESGMACRFC4543, key: make([]byte, 20),
			dir: Encrypt, iv: make([]byte, 8), input: make([]byte, 5), aad: make([]byte, 16),
			want: "load-key -> derive-subkey -> load-state -> hash-absorb(assoc[8]) -> hash-absorb(iv[8]) -> " +
				"copy-payload(input[5]) -> hash-absorb(output[5], pad) -> hash-absorb(lengths[16]) -> " +
				"hash-final -> tag-mask -> store-tag",
		},
		{
			suite: AESGMACRFC4543, key: make([]byte, 20),
			dir: Decrypt, iv: make([]byte, 8), input: make([]byte, 5+16), aad: make([]byte, 16),
			want: "load-key -> derive-subkey -> load-state -> hash-absorb(assoc[8]) -> hash-absorb(iv[8]) -> " +
				"hash-absorb(input[5], pad) -> copy-payload(input[5]) -> hash-absorb(lengths[16]) -> " +
				"hash-final -> tag-mask -> verify-tag",
		},
	} {
		var opts []Option
		if tc.double {
			opts = append(opts, WithDoublePass())
		}
		c, err := New(tc.suite, tc.key, 0, opts...)
		if err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
		p, err := c.Plan(tc.dir, tc.iv, tc.input, tc.aad)
		if err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
		if got := p.String(); got != tc.want {
			t.Fatalf("#%d: %s %s:\nexpected %s\ngot      %s", i, tc.suite, tc.dir, tc.want, got)
		}
	}
}

// TestPlanTag tests that every plan ends with its only tag
// producing step.
func TestPlanTag(t *testing.T) {
	for _, s := range Suites() {
		key, iv, aad := testRequest(t, s)
		for _, double := range []bool{false, true} {
			var opts []Option
			if double {
				opts = append(opts, WithDoublePass())
			}
			c, err := New(s, key, 0, opts...)
			if err != nil {
				t.Fatal(err)
			}
			for _, dir := range []Direction{Encrypt, Decrypt} {
				for _, n := range []int{0, 16, 48} {
					input := make([]byte, n)
					if dir == Decrypt {
						input = make([]byte, n+c.TagSize())
					}
					p, err := c.Plan(dir, iv, input, aad)
					if err != nil {
						t.Fatalf("%s %s %d: %v", s, dir, n, err)
					}
					want := StoreTag
					if dir == Decrypt {
						want = VerifyTag
					}
					tags := 0
					for _, step := range p.Steps {
						if step.Kind == StoreTag || step.Kind == VerifyTag {
							tags++
						}
						if n == 0 && (step.Kind == CipherApply || step.Kind == CipherHash) {
							t.Fatalf("%s %s: cipher step for empty payload: %s", s, dir, p)
						}
					}
					if tags != 1 || p.Steps[len(p.Steps)-1].Kind != want {
						t.Fatalf("%s %s %d: bad tag step: %s", s, dir, n, p)
					}
				}
			}
		}
	}
}
