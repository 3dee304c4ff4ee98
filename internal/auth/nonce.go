package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// NonceSize is the number of random bytes in a [Nonce].
const NonceSize = 16

// Nonce is the per-flow correlation token, held as standard base64 text.
type Nonce string

// GenerateNonce reads [NonceSize] bytes from the system CSPRNG.
//
// It panics if the entropy source fails; no flow can continue safely without one.
func GenerateNonce() Nonce {
	b := make([]byte, NonceSize)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("auth: reading random nonce: %v", err))
	}
	return Nonce(base64.StdEncoding.EncodeToString(b))
}

func (n Nonce) String() string {
	return string(n)
}

// Encoded returns the percent-encoded form carried in URLs and in the state value.
func (n Nonce) Encoded() string {
	return url.QueryEscape(string(n))
}

// Matches reports whether received carries this nonce.
//
// Query parsing turns a literal '+' into a space, so spaces are mapped back first. The value may arrive in
// encoded or raw form; both are reduced to the encoded form and compared in constant time.
func (n Nonce) Matches(received string) bool {
	got, ok := canonicalNonce(received)
	if !ok || n == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(n.Encoded())) == 1
}

func canonicalNonce(v string) (string, bool) {
	v = strings.ReplaceAll(v, " ", "+")
	raw, err := url.PathUnescape(v)
	if err != nil {
		return "", false
	}
	return url.QueryEscape(raw), true
}
