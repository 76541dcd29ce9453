// ABOUTME: Tests for transaction signing and verification
// ABOUTME: Covers keypair files, timestamps, signer sets, tampering and replays

package auth

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/registry"
)

var testNow = time.Unix(1_700_000_000, 0)

func newKeypair(t *testing.T) *Keypair {
	t.Helper()
	k, err := GenerateKeypair()
	require.NoError(t, err)
	return k
}

func newVerifier(t *testing.T) *Verifier {
	t.Helper()
	v := NewVerifier(0, 0, WithClock(func() time.Time { return testNow }))
	t.Cleanup(v.Close)
	return v
}

func builder() *registry.Builder {
	return registry.NewBuilder(address.NewDeriver(address.MustParse(address.DefaultProgramID)), address.SchemeName)
}

// keyTx builds a create_metadata_key transaction needing authority and payer.
func keyTx(t *testing.T, authority, payer *Keypair) *Transaction {
	t.Helper()
	ix, _, err := builder().CreateMetadataKey(registry.KeyParams{
		NamespaceAuthority: authority.Pubkey(),
		Payer:              payer.Pubkey(),
		Name:               "royalties",
		Label:              "Royalties",
	})
	require.NoError(t, err)
	tx := NewTransaction(ix)
	tx.Timestamp = testNow.Unix()
	return tx
}

func assertKind(t *testing.T, err error, want *registry.Error) {
	t.Helper()
	require.Error(t, err)
	var got *registry.Error
	require.True(t, errors.As(err, &got), "error %v is not a registry error", err)
	assert.Equal(t, want.Code, got.Code, "got %v", err)
}

func TestKeypair_SaveLoad(t *testing.T) {
	k := newKeypair(t)
	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, k.Save(path, "alice"))

	loaded, err := LoadKeypair(path)
	require.NoError(t, err)
	assert.Equal(t, k.Pubkey(), loaded.Pubkey())
	assert.True(t, strings.HasPrefix(k.AuthorizedKey(), "ssh-ed25519 "))
}

func TestParseKeypair_Invalid(t *testing.T) {
	_, err := ParseKeypair([]byte("not a key"))
	assert.Error(t, err)
}

func TestTransaction_IDStable(t *testing.T) {
	a := newKeypair(t)
	tx := keyTx(t, a, a)
	id := tx.ID()

	require.NoError(t, tx.Sign(a))
	assert.Equal(t, id, tx.ID(), "signatures are not part of the message")

	tx.Nonce = "other"
	assert.NotEqual(t, id, tx.ID())
}

func TestTransaction_SignReplacesSameSigner(t *testing.T) {
	a := newKeypair(t)
	tx := keyTx(t, a, a)
	require.NoError(t, tx.Sign(a))
	require.NoError(t, tx.Sign(a))
	assert.Len(t, tx.Signatures, 1)
}

func TestVerify_Valid(t *testing.T) {
	authority, payer := newKeypair(t), newKeypair(t)
	tx := keyTx(t, authority, payer)
	require.NoError(t, tx.Sign(authority, payer))

	inv, err := newVerifier(t).Verify(tx)
	require.NoError(t, err)
	assert.Equal(t, tx.ID(), inv.ID)
	assert.ElementsMatch(t, []address.Pubkey{authority.Pubkey(), payer.Pubkey()}, inv.Signers)
}

func TestVerify_SurvivesJSON(t *testing.T) {
	a := newKeypair(t)
	tx := keyTx(t, a, a)
	require.NoError(t, tx.Sign(a))

	data, err := json.Marshal(tx)
	require.NoError(t, err)
	var decoded Transaction
	require.NoError(t, json.Unmarshal(data, &decoded))

	_, err = newVerifier(t).Verify(&decoded)
	require.NoError(t, err)
}

func TestVerify_Expired(t *testing.T) {
	a := newKeypair(t)
	tx := keyTx(t, a, a)
	tx.Timestamp = testNow.Add(-DefaultMaxAge - time.Second).Unix()
	require.NoError(t, tx.Sign(a))

	_, err := newVerifier(t).Verify(tx)
	assertKind(t, err, registry.ErrSignatureExpired)
}

func TestVerify_FutureTimestamp(t *testing.T) {
	a := newKeypair(t)
	tx := keyTx(t, a, a)
	tx.Timestamp = testNow.Add(MaxClockSkew + time.Second).Unix()
	require.NoError(t, tx.Sign(a))

	_, err := newVerifier(t).Verify(tx)
	assertKind(t, err, registry.ErrSignatureExpired)
}

func TestVerify_SmallSkewAccepted(t *testing.T) {
	a := newKeypair(t)
	tx := keyTx(t, a, a)
	tx.Timestamp = testNow.Add(30 * time.Second).Unix()
	require.NoError(t, tx.Sign(a))

	_, err := newVerifier(t).Verify(tx)
	assert.NoError(t, err)
}

func TestVerify_MissingSigner(t *testing.T) {
	authority, payer := newKeypair(t), newKeypair(t)
	tx := keyTx(t, authority, payer)
	require.NoError(t, tx.Sign(payer))

	_, err := newVerifier(t).Verify(tx)
	assertKind(t, err, registry.ErrMissingSignature)
}

func TestVerify_UnexpectedSigner(t *testing.T) {
	a, stranger := newKeypair(t), newKeypair(t)
	tx := keyTx(t, a, a)
	require.NoError(t, tx.Sign(a, stranger))

	_, err := newVerifier(t).Verify(tx)
	assertKind(t, err, registry.ErrSignatureInvalid)
}

func TestVerify_TamperedData(t *testing.T) {
	a := newKeypair(t)
	tx := keyTx(t, a, a)
	require.NoError(t, tx.Sign(a))
	tx.Instruction.Data = append([]byte(nil), tx.Instruction.Data...)
	tx.Instruction.Data[len(tx.Instruction.Data)-1] ^= 0xff

	_, err := newVerifier(t).Verify(tx)
	assertKind(t, err, registry.ErrSignatureInvalid)
}

func TestVerify_ForgedSignature(t *testing.T) {
	a, other := newKeypair(t), newKeypair(t)
	tx := keyTx(t, a, a)
	require.NoError(t, tx.Sign(other))
	tx.Signatures[0].Signer = a.Pubkey()

	_, err := newVerifier(t).Verify(tx)
	assertKind(t, err, registry.ErrSignatureInvalid)
}

func TestVerify_Replay(t *testing.T) {
	a := newKeypair(t)
	tx := keyTx(t, a, a)
	require.NoError(t, tx.Sign(a))
	v := newVerifier(t)

	inv, err := v.Verify(tx)
	require.NoError(t, err)

	_, err = v.Verify(tx)
	assertKind(t, err, registry.ErrTransactionReplayed)

	v.Release(inv.ID)
	_, err = v.Verify(tx)
	assert.NoError(t, err)
}
