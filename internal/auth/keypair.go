// ABOUTME: ed25519 keypairs for signing transactions
// ABOUTME: Generates, loads and saves OpenSSH private keys

package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/2389/mythic-metadata/internal/address"
)

// ErrNotEd25519 is returned when a key file holds a non-ed25519 key.
var ErrNotEd25519 = errors.New("key is not ed25519")

// Keypair signs transactions as one principal.
type Keypair struct {
	private ed25519.PrivateKey
	signer  ssh.Signer
	pubkey  address.Pubkey
}

// GenerateKeypair creates a new random keypair.
func GenerateKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return NewKeypair(priv)
}

// NewKeypair wraps an existing ed25519 private key.
func NewKeypair(priv ed25519.PrivateKey) (*Keypair, error) {
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}
	pub, err := address.FromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &Keypair{private: priv, signer: signer, pubkey: pub}, nil
}

// ParseKeypair parses an unencrypted OpenSSH or PKCS#8 ed25519 private key.
func ParseKeypair(pemBytes []byte) (*Keypair, error) {
	raw, err := ssh.ParseRawPrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	switch k := raw.(type) {
	case ed25519.PrivateKey:
		return NewKeypair(k)
	case *ed25519.PrivateKey:
		return NewKeypair(*k)
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotEd25519, raw)
	}
}

// LoadKeypair reads a private key file.
func LoadKeypair(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	return ParseKeypair(data)
}

// MarshalPrivateKey returns the key in OpenSSH PEM format.
func (k *Keypair) MarshalPrivateKey(comment string) ([]byte, error) {
	block, err := ssh.MarshalPrivateKey(k.private, comment)
	if err != nil {
		return nil, fmt.Errorf("encoding private key: %w", err)
	}
	return pem.EncodeToMemory(block), nil
}

// Save writes the private key to path with owner-only permissions.
func (k *Keypair) Save(path, comment string) error {
	data, err := k.MarshalPrivateKey(comment)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

// Pubkey returns the principal this keypair signs for.
func (k *Keypair) Pubkey() address.Pubkey {
	return k.pubkey
}

// AuthorizedKey returns the public key in authorized_keys format.
func (k *Keypair) AuthorizedKey() string {
	return string(ssh.MarshalAuthorizedKey(k.signer.PublicKey()))
}

func (k *Keypair) sign(message []byte) (*ssh.Signature, error) {
	return k.signer.Sign(rand.Reader, message)
}

// PublicKey converts a principal to its SSH public key.
func PublicKey(p address.Pubkey) (ssh.PublicKey, error) {
	return ssh.NewPublicKey(ed25519.PublicKey(p.Bytes()))
}
