// ABOUTME: Counter singleton issuing metadata key ids
// ABOUTME: Starts at 1 and hands out each value exactly once

package state

import (
	"math"
)

// Counter is the sequence that numbers metadata keys under the counter scheme.
type Counter struct {
	Bump uint8  `json:"bump"`
	ID   uint64 `json:"id"`
}

// NewCounter returns a counter whose first issued id is 1.
func NewCounter(bump uint8) *Counter {
	return &Counter{Bump: bump, ID: 1}
}

// Next returns the current id and advances the counter.
func (c *Counter) Next() (uint64, error) {
	if c.ID == math.MaxUint64 {
		return 0, ErrCounterAtMax
	}
	id := c.ID
	c.ID++
	return id, nil
}

func (c *Counter) Kind() Kind { return KindCounter }

func (c *Counter) MarshalBinary() ([]byte, error) {
	e := NewEncoder(AccountDiscriminator(string(KindCounter)))
	e.U8(c.Bump)
	e.U64(c.ID)
	return e.Data(), nil
}

func (c *Counter) UnmarshalBinary(data []byte) error {
	d, err := NewDecoder(data, AccountDiscriminator(string(KindCounter)))
	if err != nil {
		return err
	}
	c.Bump = d.U8()
	c.ID = d.U64()
	return d.Finish()
}
