// ABOUTME: Error helpers for verification failures
// ABOUTME: Wraps registry sentinels so callers classify them with registry.KindOf

package auth

import (
	"fmt"

	"github.com/2389/mythic-metadata/internal/registry"
)

func wrapf(e *registry.Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", e, fmt.Sprintf(format, args...))
}
