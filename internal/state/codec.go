// ABOUTME: Binary encoder and decoder for the persisted account layout
// ABOUTME: Little-endian integers, u32 length prefixes and 8-byte discriminators

package state

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/2389/mythic-metadata/internal/address"
)

// DiscriminatorLen is the size of the type tag in front of every record.
const DiscriminatorLen = 8

var (
	// ErrShortBuffer is returned when a record ends before all fields are read.
	ErrShortBuffer = errors.New("record truncated")

	// ErrTrailingData is returned when bytes remain after the last field.
	ErrTrailingData = errors.New("trailing data after record")

	// ErrDiscriminator is returned when a record carries the wrong type tag.
	ErrDiscriminator = errors.New("discriminator mismatch")

	// ErrInvalidTag is returned for an option tag other than 0 or 1.
	ErrInvalidTag = errors.New("invalid option tag")
)

// Discriminator returns sha256(namespace + ":" + name)[:8].
func Discriminator(namespace, name string) [DiscriminatorLen]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d [DiscriminatorLen]byte
	copy(d[:], sum[:DiscriminatorLen])
	return d
}

// AccountDiscriminator returns the type tag of an account record.
func AccountDiscriminator(typeName string) [DiscriminatorLen]byte {
	return Discriminator("account", typeName)
}

// Encoder appends fields in the persisted layout.
type Encoder struct {
	buf []byte
}

// NewEncoder starts a record with the given discriminator.
func NewEncoder(discriminator [DiscriminatorLen]byte) *Encoder {
	buf := make([]byte, 0, 128)
	return &Encoder{buf: append(buf, discriminator[:]...)}
}

func (e *Encoder) U8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) U32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) U64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *Encoder) I64(v int64) {
	e.U64(uint64(v))
}

func (e *Encoder) Pubkey(p address.Pubkey) {
	e.buf = append(e.buf, p[:]...)
}

func (e *Encoder) Bytes(b []byte) {
	e.U32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *Encoder) Text(s string) {
	e.U32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// Authority writes a 1-byte tag followed by 32 bytes; the key bytes are zero
// when no authority is set.
func (e *Encoder) Authority(a Authority) {
	if key, ok := a.Get(); ok {
		e.U8(1)
		e.Pubkey(key)
		return
	}
	e.U8(0)
	e.Pubkey(address.Pubkey{})
}

// Len writes a sequence count.
func (e *Encoder) Len(n int) {
	e.U32(uint32(n))
}

// Data returns the encoded record.
func (e *Encoder) Data() []byte {
	return e.buf
}

// Decoder reads fields in the persisted layout. The first error is sticky;
// later reads return zero values and Finish reports it.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder checks the discriminator and positions the decoder after it.
func NewDecoder(data []byte, discriminator [DiscriminatorLen]byte) (*Decoder, error) {
	if len(data) < DiscriminatorLen {
		return nil, ErrShortBuffer
	}
	if [DiscriminatorLen]byte(data[:DiscriminatorLen]) != discriminator {
		return nil, ErrDiscriminator
	}
	return &Decoder{buf: data, off: DiscriminatorLen}, nil
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.off < n {
		d.err = fmt.Errorf("%w: need %d bytes at offset %d", ErrShortBuffer, n, d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *Decoder) U8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) U32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *Decoder) U64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Decoder) I64() int64 {
	return int64(d.U64())
}

func (d *Decoder) Pubkey() address.Pubkey {
	var p address.Pubkey
	copy(p[:], d.take(address.PubkeyLen))
	return p
}

func (d *Decoder) Bytes() []byte {
	n := d.U32()
	b := d.take(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (d *Decoder) Text() string {
	n := d.U32()
	return string(d.take(int(n)))
}

func (d *Decoder) Authority() Authority {
	tag := d.U8()
	key := d.Pubkey()
	switch tag {
	case 0:
		return None()
	case 1:
		return Delegate(key)
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w: %d", ErrInvalidTag, tag)
		}
		return None()
	}
}

// Len reads a sequence count. Counts larger than the remaining input are
// rejected so a corrupt record cannot force a huge allocation.
func (d *Decoder) Len() int {
	n := int(d.U32())
	if d.err == nil && n > len(d.buf)-d.off {
		d.err = fmt.Errorf("%w: sequence of %d elements at offset %d", ErrShortBuffer, n, d.off)
		return 0
	}
	return n
}

// Err returns the first decoding error.
func (d *Decoder) Err() error {
	return d.err
}

// Finish returns the first decoding error or ErrTrailingData when input remains.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return fmt.Errorf("%w: %d bytes", ErrTrailingData, len(d.buf)-d.off)
	}
	return nil
}
