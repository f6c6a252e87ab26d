// Package dav1d implements decoder.Decoder directly on top of libdav1d
// (build with the "dav1d" tag; requires cgo and pkg-config).
package dav1d

import (
	"fmt"
)

// FormatAPIVersion formats a dav1d_version_api() value as
// "major.minor.patch".
func FormatAPIVersion(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", (v>>16)&0xff, (v>>8)&0xff, v&0xff)
}
