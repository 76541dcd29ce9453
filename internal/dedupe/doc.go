// Package dedupe remembers recently seen transaction digests so a signed
// transaction is executed at most once within its validity window.
package dedupe
