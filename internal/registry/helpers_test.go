// ABOUTME: Test harness for the registry program
// ABOUTME: Runs instructions against an in-memory ledger with explicit signers

package registry

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/ledger"
	"github.com/2389/mythic-metadata/internal/state"
)

type harness struct {
	t     *testing.T
	prog  *Program
	b     *Builder
	store ledger.Store
	seq   int
}

func newHarness(t *testing.T, scheme address.Scheme) *harness {
	t.Helper()
	return newHarnessWithLimits(t, scheme, state.DefaultLimits())
}

func newHarnessWithLimits(t *testing.T, scheme address.Scheme, limits state.Limits) *harness {
	t.Helper()
	store := ledger.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	prog, err := New(store, Config{
		ProgramID: address.MustParse(address.DefaultProgramID),
		Scheme:    scheme,
		Limits:    limits,
	})
	require.NoError(t, err)

	h := &harness{t: t, prog: prog, b: prog.Builder(), store: store}
	if scheme == address.SchemeCounter {
		ix, err := h.b.InitializeCounter(principal(t))
		require.NoError(t, err)
		h.mustExec(ix, ix.Signers()...)
	}
	return h
}

func principal(t *testing.T) address.Pubkey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	p, err := address.FromBytes(pub)
	require.NoError(t, err)
	return p
}

func (h *harness) exec(ix Instruction, signers ...address.Pubkey) (*Receipt, error) {
	h.seq++
	return h.prog.Execute(context.Background(), &Invocation{
		ID:          fmt.Sprintf("tx-%d", h.seq),
		Instruction: ix,
		Signers:     signers,
	})
}

func (h *harness) mustExec(ix Instruction, signers ...address.Pubkey) *Receipt {
	h.t.Helper()
	r, err := h.exec(ix, signers...)
	require.NoError(h.t, err)
	return r
}

func (h *harness) slot() uint64 {
	h.t.Helper()
	slot, err := h.prog.LatestSlot(context.Background())
	require.NoError(h.t, err)
	return slot
}

func decodeAccount[T any, P interface {
	*T
	state.Account
}](h *harness, addr address.Pubkey) P {
	h.t.Helper()
	acct, err := h.prog.Account(context.Background(), addr)
	require.NoError(h.t, err)
	var rec P = new(T)
	require.NoError(h.t, rec.UnmarshalBinary(acct.Data))
	return rec
}

func (h *harness) counter() *state.Counter {
	addr, _, err := h.prog.Deriver().Counter()
	require.NoError(h.t, err)
	return decodeAccount[state.Counter](h, addr)
}

func (h *harness) metadataKey(addr address.Pubkey) *state.MetadataKey {
	return decodeAccount[state.MetadataKey](h, addr)
}

func (h *harness) metadata(addr address.Pubkey) *state.Metadata {
	return decodeAccount[state.Metadata](h, addr)
}

// keyParams fills in the next counter id under the counter scheme.
func (h *harness) keyParams(ns address.Pubkey, name string) KeyParams {
	p := KeyParams{
		NamespaceAuthority: ns,
		Payer:              ns,
		Name:               name,
		Label:              name + " label",
		ContentType:        "text/plain",
	}
	if h.b.Scheme() == address.SchemeCounter {
		p.ID = h.counter().ID
	}
	return p
}

func (h *harness) createKey(ns address.Pubkey, name string) address.Pubkey {
	h.t.Helper()
	ix, addr, err := h.b.CreateMetadataKey(h.keyParams(ns, name))
	require.NoError(h.t, err)
	h.mustExec(ix, ns)
	return addr
}

func (h *harness) createMetadata(root, issuer, subject address.Pubkey, authority state.Authority) address.Pubkey {
	h.t.Helper()
	ix, addr, err := h.b.CreateMetadata(MetadataParams{
		MetadataKey:      root,
		IssuingAuthority: issuer,
		Payer:            issuer,
		Subject:          subject,
		UpdateAuthority:  authority,
	})
	require.NoError(h.t, err)
	h.mustExec(ix, issuer)
	return addr
}

// fixture is a record with one collection, owned by owner.
type fixture struct {
	owner      address.Pubkey
	root       address.Pubkey
	collection address.Pubkey
	metadata   address.Pubkey
}

func (h *harness) fixture() fixture {
	h.t.Helper()
	ns := principal(h.t)
	owner := principal(h.t)
	f := fixture{
		owner:      owner,
		root:       h.createKey(ns, "dao-metadata"),
		collection: h.createKey(ns, "dao-metadata-collection"),
	}
	f.metadata = h.createMetadata(f.root, owner, principal(h.t), state.Delegate(owner))
	h.mustExec(h.b.AppendMetadataCollection(f.target(owner), state.None()), owner)
	return f
}

func (f fixture) target(signer address.Pubkey) Target {
	return Target{
		Metadata:              f.metadata,
		MetadataKey:           f.root,
		CollectionMetadataKey: f.collection,
		UpdateAuthority:       signer,
	}
}

func (f fixture) item(signer, item address.Pubkey) Target {
	t := f.target(signer)
	t.ItemMetadataKey = item
	return t
}

var schemes = []address.Scheme{address.SchemeName, address.SchemeCounter}
