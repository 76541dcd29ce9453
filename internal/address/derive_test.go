// ABOUTME: Tests for program-derived address search
// ABOUTME: Covers determinism, bump round-trips, seed limits and exhaustion

package address

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeriver() *Deriver {
	return NewDeriver(MustParse(DefaultProgramID))
}

func randomPubkey(t *testing.T) Pubkey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	p, err := FromBytes(pub)
	require.NoError(t, err)
	return p
}

func TestFind_Deterministic(t *testing.T) {
	d := testDeriver()
	ns := randomPubkey(t)

	first, firstBump, err := d.MetadataKeyByName(ns, "dao-metadata")
	require.NoError(t, err)
	second, secondBump, err := d.MetadataKeyByName(ns, "dao-metadata")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstBump, secondBump)
}

func TestFind_OffCurve(t *testing.T) {
	d := testDeriver()

	addr, _, err := d.Counter()
	require.NoError(t, err)
	assert.False(t, addr.IsOnCurve())

	// A real ed25519 key is always on the curve.
	assert.True(t, randomPubkey(t).IsOnCurve())
}

func TestCreate_MatchesFind(t *testing.T) {
	d := testDeriver()
	issuer := randomPubkey(t)
	subject := randomPubkey(t)
	root, _, err := d.MetadataKeyByID(1)
	require.NoError(t, err)

	addr, bump, err := d.Metadata(root, issuer, subject)
	require.NoError(t, err)

	again, err := d.Create(bump, MetadataSeeds(root, issuer, subject)...)
	require.NoError(t, err)
	assert.Equal(t, addr, again)
}

func TestFind_DomainSeparation(t *testing.T) {
	d := testDeriver()
	ns := randomPubkey(t)

	byName, _, err := d.MetadataKeyByName(ns, "favorite-color")
	require.NoError(t, err)
	otherName, _, err := d.MetadataKeyByName(ns, "favorite-colour")
	require.NoError(t, err)
	byID, _, err := d.MetadataKeyByID(1)
	require.NoError(t, err)
	otherID, _, err := d.MetadataKeyByID(2)
	require.NoError(t, err)
	counter, _, err := d.Counter()
	require.NoError(t, err)

	all := []Pubkey{byName, otherName, byID, otherID, counter}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			assert.NotEqual(t, all[i], all[j], "addresses %d and %d collide", i, j)
		}
	}
}

func TestFind_ProgramIDChangesAddress(t *testing.T) {
	a, _, err := testDeriver().Counter()
	require.NoError(t, err)
	b, _, err := NewDeriver(Pubkey{1}).Counter()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestFind_SeedTooLong(t *testing.T) {
	d := testDeriver()

	_, _, err := d.MetadataKeyByName(randomPubkey(t), string(bytes.Repeat([]byte("x"), MaxSeedLen+1)))
	assert.ErrorIs(t, err, ErrMaxSeedLength)
}

func TestFind_TooManySeeds(t *testing.T) {
	seeds := make([][]byte, MaxSeeds)
	for i := range seeds {
		seeds[i] = []byte{byte(i)}
	}

	_, _, err := testDeriver().Find(seeds...)
	assert.ErrorIs(t, err, ErrTooManySeeds)
}

func TestFind_Exhausted(t *testing.T) {
	d := testDeriver()
	d.onCurve = func([]byte) bool { return true }

	_, _, err := d.Counter()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestCreate_RejectsOnCurve(t *testing.T) {
	d := testDeriver()
	d.onCurve = func([]byte) bool { return true }

	_, err := d.Create(255, CounterSeeds()...)
	assert.ErrorIs(t, err, ErrOnCurve)
}

func TestMetadataKeyIDSeeds_LittleEndian(t *testing.T) {
	seeds := MetadataKeyIDSeeds(0x0102)
	require.Len(t, seeds, 3)
	assert.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, seeds[2])
}

func TestParseScheme(t *testing.T) {
	tests := []struct {
		in      string
		want    Scheme
		wantErr bool
	}{
		{"", SchemeCounter, false},
		{"counter", SchemeCounter, false},
		{"name", SchemeName, false},
		{"uuid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScheme(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
