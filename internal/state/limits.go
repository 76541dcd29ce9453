// ABOUTME: Size limits applied to metadata keys, records and items
// ABOUTME: Defaults match the on-ledger account sizes of the registry

package state

import (
	"fmt"

	"github.com/2389/mythic-metadata/internal/address"
)

// Limits bounds the size of stored entities.
type Limits struct {
	MaxNameLen        int `yaml:"max_name_len"`
	MaxLabelLen       int `yaml:"max_label_len"`
	MaxDescriptionLen int `yaml:"max_description_len"`
	MaxContentTypeLen int `yaml:"max_content_type_len"`
	MaxValueLen       int `yaml:"max_value_len"`
	MaxCollections    int `yaml:"max_collections"`
	MaxItems          int `yaml:"max_items"`
}

// DefaultLimits returns the registry's standard limits.
func DefaultLimits() Limits {
	return Limits{
		MaxNameLen:        30,
		MaxLabelLen:       50,
		MaxDescriptionLen: 100,
		MaxContentTypeLen: 20,
		MaxValueLen:       100,
		MaxCollections:    5,
		MaxItems:          10,
	}
}

// Validate checks that every limit is positive and that names fit in a seed.
func (l Limits) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"max_name_len", l.MaxNameLen},
		{"max_label_len", l.MaxLabelLen},
		{"max_description_len", l.MaxDescriptionLen},
		{"max_content_type_len", l.MaxContentTypeLen},
		{"max_value_len", l.MaxValueLen},
		{"max_collections", l.MaxCollections},
		{"max_items", l.MaxItems},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", f.name, f.value)
		}
	}
	if l.MaxNameLen > address.MaxSeedLen {
		return fmt.Errorf("max_name_len %d exceeds seed length %d", l.MaxNameLen, address.MaxSeedLen)
	}
	return nil
}

func checkText(field, value string, max int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%w: %s", ErrEmptyField, field)
	}
	if len(value) > max {
		return fmt.Errorf("%w: %s is %d bytes, max %d", ErrFieldTooLong, field, len(value), max)
	}
	return nil
}

// CheckValue validates an item value against MaxValueLen.
func (l Limits) CheckValue(value []byte) error {
	if len(value) > l.MaxValueLen {
		return fmt.Errorf("%w: %d bytes, max %d", ErrValueTooLong, len(value), l.MaxValueLen)
	}
	return nil
}
