// ABOUTME: Seed formulas for counter, metadata key and metadata accounts
// ABOUTME: Also defines the name-keyed and counter-keyed addressing schemes

package address

import (
	"encoding/binary"
	"fmt"
)

// Seed components shared by every account kind.
const (
	Prefix          = "mythic_metadata"
	KindCounter     = "counter"
	KindMetadataKey = "metadata_key"
	KindMetadata    = "metadata"
)

// DefaultProgramID is the program id used when none is configured.
const DefaultProgramID = "myThHf7Ec8WEFiVFeUEiuq1KPPmx3udRF7hehPQBaa3"

// Scheme selects how metadata keys are addressed.
type Scheme string

const (
	// SchemeName addresses a key by (namespace authority, name).
	SchemeName Scheme = "name"
	// SchemeCounter addresses a key by the id drawn from the counter.
	SchemeCounter Scheme = "counter"
)

// ParseScheme validates a scheme name. The empty string selects SchemeCounter.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case "", SchemeCounter:
		return SchemeCounter, nil
	case SchemeName:
		return SchemeName, nil
	default:
		return "", fmt.Errorf("unknown addressing scheme %q (want %q or %q)", s, SchemeName, SchemeCounter)
	}
}

// CounterSeeds returns the seeds of the counter singleton.
func CounterSeeds() [][]byte {
	return [][]byte{[]byte(Prefix), []byte(KindCounter)}
}

// MetadataKeyNameSeeds returns the name-keyed seeds of a metadata key.
func MetadataKeyNameSeeds(namespaceAuthority Pubkey, name string) [][]byte {
	return [][]byte{[]byte(Prefix), []byte(KindMetadataKey), namespaceAuthority.Bytes(), []byte(name)}
}

// MetadataKeyIDSeeds returns the counter-keyed seeds of a metadata key.
func MetadataKeyIDSeeds(id uint64) [][]byte {
	return [][]byte{[]byte(Prefix), []byte(KindMetadataKey), binary.LittleEndian.AppendUint64(nil, id)}
}

// MetadataSeeds returns the seeds of a metadata record.
func MetadataSeeds(metadataKey, issuingAuthority, subject Pubkey) [][]byte {
	return [][]byte{
		[]byte(Prefix),
		[]byte(KindMetadata),
		metadataKey.Bytes(),
		issuingAuthority.Bytes(),
		subject.Bytes(),
	}
}

// Counter finds the counter address.
func (d *Deriver) Counter() (Pubkey, uint8, error) {
	return d.Find(CounterSeeds()...)
}

// MetadataKeyByName finds a name-keyed metadata key address.
func (d *Deriver) MetadataKeyByName(namespaceAuthority Pubkey, name string) (Pubkey, uint8, error) {
	return d.Find(MetadataKeyNameSeeds(namespaceAuthority, name)...)
}

// MetadataKeyByID finds a counter-keyed metadata key address.
func (d *Deriver) MetadataKeyByID(id uint64) (Pubkey, uint8, error) {
	return d.Find(MetadataKeyIDSeeds(id)...)
}

// Metadata finds the address of the record for (root key, issuer, subject).
func (d *Deriver) Metadata(metadataKey, issuingAuthority, subject Pubkey) (Pubkey, uint8, error) {
	return d.Find(MetadataSeeds(metadataKey, issuingAuthority, subject)...)
}
