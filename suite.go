package authenc

import (
	"crypto/sha1"
	"crypto/sha256"
	"strconv"

	"github.com/ericlagergren/authenc/internal/api"
)

// CipherMode is the payload cipher mode.
type CipherMode uint8

const (
	CBC CipherMode = iota
	CTR
	CCM
	GCTR
)

func (m CipherMode) String() string {
	switch m {
	case CBC:
		return "cbc"
	case CTR:
		return "ctr"
	case CCM:
		return "ccm"
	case GCTR:
		return "gctr"
	default:
		return "CipherMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// AuthMode is the authentication mode of an authenc suite.
type AuthMode uint8

const (
	// NoAuth is used by the combined modes (CCM, GCM), whose
	// authentication is part of the cipher mode.
	NoAuth AuthMode = iota
	HMACSHA1
	HMACSHA256
	XCBC
)

func (m AuthMode) String() string {
	switch m {
	case NoAuth:
		return "none"
	case HMACSHA1:
		return "hmac(sha1)"
	case HMACSHA256:
		return "hmac(sha256)"
	case XCBC:
		return "xcbc(aes)"
	default:
		return "AuthMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// BlockCipher is the underlying block cipher.
type BlockCipher uint8

const (
	AES BlockCipher = iota
	TripleDES
)

func (b BlockCipher) alg() api.Alg {
	if b == TripleDES {
		return api.DES3
	}
	return api.AES
}

// Variant is an RFC wrapping of a base mode.
type Variant uint8

const (
	Plain Variant = iota
	// RFC3686 is CTR mode with a key-carried nonce.
	RFC3686
	// RFC4309 is CCM for IPsec ESP.
	RFC4309
	// RFC4106 is GCM for IPsec ESP.
	RFC4106
	// RFC4543 is GMAC for IPsec ESP: the payload is only
	// authenticated.
	RFC4543
)

// Suite is a statically resolved cipher and authentication
// combination.
type Suite struct {
	Name    string
	Cipher  CipherMode
	Block   BlockCipher
	Auth    AuthMode
	Variant Variant
}

var (
	AuthencHMACSHA1AES     = Suite{"authenc(hmac(sha1),cbc(aes))", CBC, AES, HMACSHA1, Plain}
	AuthencHMACSHA1DES3    = Suite{"authenc(hmac(sha1),cbc(des3_ede))", CBC, TripleDES, HMACSHA1, Plain}
	AuthencHMACSHA256AES   = Suite{"authenc(hmac(sha256),cbc(aes))", CBC, AES, HMACSHA256, Plain}
	AuthencHMACSHA256DES3  = Suite{"authenc(hmac(sha256),cbc(des3_ede))", CBC, TripleDES, HMACSHA256, Plain}
	AuthencXCBCAES         = Suite{"authenc(xcbc(aes),cbc(aes))", CBC, AES, XCBC, Plain}
	AuthencHMACSHA1CTR     = Suite{"authenc(hmac(sha1),rfc3686(ctr(aes)))", CTR, AES, HMACSHA1, RFC3686}
	AuthencHMACSHA256CTR   = Suite{"authenc(hmac(sha256),rfc3686(ctr(aes)))", CTR, AES, HMACSHA256, RFC3686}
	AuthencXCBCCTR         = Suite{"authenc(xcbc(aes),rfc3686(ctr(aes)))", CTR, AES, XCBC, RFC3686}
	AESCCM                 = Suite{"ccm(aes)", CCM, AES, NoAuth, Plain}
	AESCCMRFC4309          = Suite{"rfc4309(ccm(aes))", CCM, AES, NoAuth, RFC4309}
	AESGCM                 = Suite{"gcm(aes)", GCTR, AES, NoAuth, Plain}
	AESGCMRFC4106          = Suite{"rfc4106(gcm(aes))", GCTR, AES, NoAuth, RFC4106}
	AESGMACRFC4543         = Suite{"rfc4543(gcm(aes))", GCTR, AES, NoAuth, RFC4543}
)

// Suites returns every predefined suite.
func Suites() []Suite {
	return []Suite{
		AuthencHMACSHA1AES,
		AuthencHMACSHA1DES3,
		AuthencHMACSHA256AES,
		AuthencHMACSHA256DES3,
		AuthencXCBCAES,
		AuthencHMACSHA1CTR,
		AuthencHMACSHA256CTR,
		AuthencXCBCCTR,
		AESCCM,
		AESCCMRFC4309,
		AESGCM,
		AESGCMRFC4106,
		AESGMACRFC4543,
	}
}

// Lookup returns the predefined suite with the given name.
func Lookup(name string) (Suite, bool) {
	for _, s := range Suites() {
		if s.Name == name {
			return s, true
		}
	}
	return Suite{}, false
}

func (s Suite) String() string {
	return s.Name
}

func (s Suite) blockSize() int {
	return s.Block.alg().BlockSize()
}

func (s Suite) hashAlg() api.HashAlg {
	if s.Auth == HMACSHA1 {
		return api.SHA1
	}
	return api.SHA256
}

// authenc reports whether s is a generic cipher+MAC composition.
func (s Suite) authenc() bool {
	return s.Auth != NoAuth
}

// ipsec reports whether s takes ESP associated data, where the
// last 8 bytes of the associated data carry the IV.
func (s Suite) ipsec() bool {
	return s.Variant == RFC4309 || s.Variant == RFC4106 || s.Variant == RFC4543
}

// IVSize returns the size in bytes of the per-request IV.
func (s Suite) IVSize() int {
	switch {
	case s.Variant != Plain:
		return 8
	case s.Cipher == CCM:
		return 16
	case s.Cipher == GCTR:
		return 12
	default:
		return s.blockSize()
	}
}

// nonceSize returns the number of trailing key bytes that hold
// a nonce or salt.
func (s Suite) nonceSize() int {
	switch s.Variant {
	case RFC3686, RFC4106, RFC4543:
		return 4
	case RFC4309:
		return 3
	default:
		return 0
	}
}

// MaxTagSize returns the largest supported tag size in bytes.
func (s Suite) MaxTagSize() int {
	switch s.Auth {
	case HMACSHA1:
		return sha1.Size
	case HMACSHA256:
		return sha256.Size
	default:
		return 16
	}
}

// validTagSize reports whether n is a supported tag size.
func (s Suite) validTagSize(n int) bool {
	switch {
	case s.authenc():
		return n >= 1 && n <= s.MaxTagSize()
	case s.Variant == RFC4543:
		return n == 16
	case s.Variant == RFC4106, s.Variant == RFC4309:
		return n == 8 || n == 12 || n == 16
	case s.Cipher == CCM:
		return n >= 4 && n <= 16 && n%2 == 0
	case s.Cipher == GCTR:
		return n == 4 || n == 8 || (n >= 12 && n <= 16)
	default:
		return false
	}
}

func (s Suite) validKeySize(n int) bool {
	if s.Block == TripleDES {
		return n == 24
	}
	return n == 16 || n == 24 || n == 32
}
