// Package signature provides helper functions for handling the blockchain
// hashing and signing needs.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrConfiguration is returned when the hashing or signing primitives can't
// be constructed from the provided configuration.
var ErrConfiguration = errors.New("signature configuration error")

// DefaultSecret is the well known secret used to sign transactions when no
// secret is configured. It is never accepted in a production environment.
const DefaultSecret = "default-secret"

// EnvProduction names the environment where the default secret is refused.
const EnvProduction = "production"

// Set of digest names that can be configured.
const (
	DigestSHA256    = "sha256"
	DigestKeccak256 = "keccak256"
)

// =============================================================================

// HashFunc produces the lower case hex representation of a fixed length
// digest over the data.
type HashFunc func(data []byte) string

// SHA256 returns the hex encoded SHA-256 digest of the data.
func SHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Keccak256 returns the hex encoded Keccak-256 digest of the data.
func Keccak256(data []byte) string {
	return hex.EncodeToString(crypto.Keccak256(data))
}

// DigestNames returns the names of the digests that can be configured.
func DigestNames() []string {
	return []string{DigestSHA256, DigestKeccak256}
}

// Digest returns the hash function registered under the specified name.
func Digest(name string) (HashFunc, error) {
	switch strings.ToLower(name) {
	case DigestSHA256, "":
		return SHA256, nil
	case DigestKeccak256:
		return Keccak256, nil
	}

	return nil, fmt.Errorf("digest %q: %w", name, ErrConfiguration)
}

// =============================================================================

// ResolveSecret returns the secret to use for signing. An empty secret falls
// back to DefaultSecret outside of production.
func ResolveSecret(secret string, environment string) (string, error) {
	if secret != "" {
		return secret, nil
	}

	if strings.EqualFold(environment, EnvProduction) {
		return "", fmt.Errorf("signing secret is required in %s: %w", EnvProduction, ErrConfiguration)
	}

	return DefaultSecret, nil
}

// Signer produces keyed hashes over values using a shared secret. Every
// principal signs with the same secret, so a signature proves the value was
// not altered but not who produced it.
type Signer struct {
	secret []byte
}

// NewSigner constructs a signer for the specified secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("empty signing secret: %w", ErrConfiguration)
	}

	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the hex encoded HMAC-SHA256 of the marshaled value.
func (s *Signer) Sign(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)

	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the keyed hash for the value and compares it against
// the provided signature.
func (s *Signer) Verify(value any, sig string) (bool, error) {
	exp, err := s.Sign(value)
	if err != nil {
		return false, err
	}

	return hmac.Equal([]byte(exp), []byte(sig)), nil
}

// =============================================================================

// ContractAddress derives the address of a contract from its name and the
// time it was created. The address is the first 20 bytes of the SHA-256
// digest in its checksummed hex form.
func ContractAddress(name string, created time.Time) string {
	hash := sha256.Sum256([]byte(name + created.UTC().Format(time.RFC3339Nano)))
	return common.BytesToAddress(hash[:common.AddressLength]).Hex()
}
