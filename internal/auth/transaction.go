// ABOUTME: Signed transaction envelope around one registry instruction
// ABOUTME: Canonical message encoding, digest, id and signing

package auth

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/registry"
	"github.com/2389/mythic-metadata/internal/state"
)

// Signature is one signer's ssh signature over the transaction message.
type Signature struct {
	Signer address.Pubkey `json:"signer"`
	Format string         `json:"format"`
	Blob   []byte         `json:"blob"`
}

// Transaction is a signed instruction.
type Transaction struct {
	Instruction registry.Instruction `json:"instruction"`
	Nonce       string               `json:"nonce"`
	Timestamp   int64                `json:"timestamp"`
	Signatures  []Signature          `json:"signatures"`
}

// NewTransaction wraps ix with a fresh nonce and the current time.
func NewTransaction(ix registry.Instruction) *Transaction {
	return &Transaction{
		Instruction: ix,
		Nonce:       uuid.NewString(),
		Timestamp:   time.Now().Unix(),
	}
}

// Message returns the canonical bytes every signer signs.
func (tx *Transaction) Message() []byte {
	e := state.NewEncoder(state.Discriminator("mythic", "transaction"))
	e.Pubkey(tx.Instruction.ProgramID)
	e.Len(len(tx.Instruction.Accounts))
	for _, a := range tx.Instruction.Accounts {
		e.Text(a.Name)
		e.Pubkey(a.Address)
		e.U8(boolByte(a.Signer))
		e.U8(boolByte(a.Writable))
	}
	e.Bytes(tx.Instruction.Data)
	e.Text(tx.Nonce)
	e.I64(tx.Timestamp)
	return e.Data()
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Digest returns sha256 of the message.
func (tx *Transaction) Digest() [32]byte {
	return sha256.Sum256(tx.Message())
}

// ID returns the base58 digest that identifies the transaction.
func (tx *Transaction) ID() string {
	d := tx.Digest()
	return base58.Encode(d[:])
}

// Sign adds a signature from each keypair, replacing any earlier signature
// by the same signer.
func (tx *Transaction) Sign(keys ...*Keypair) error {
	msg := tx.Message()
	for _, k := range keys {
		sig, err := k.sign(msg)
		if err != nil {
			return fmt.Errorf("signing as %s: %w", k.Pubkey(), err)
		}
		tx.setSignature(Signature{Signer: k.Pubkey(), Format: sig.Format, Blob: sig.Blob})
	}
	return nil
}

func (tx *Transaction) setSignature(sig Signature) {
	for i := range tx.Signatures {
		if tx.Signatures[i].Signer == sig.Signer {
			tx.Signatures[i] = sig
			return
		}
	}
	tx.Signatures = append(tx.Signatures, sig)
}
