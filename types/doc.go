// Package types holds pagination containers, the current-page resolver and
// the enum contract shared across packages.
package types
