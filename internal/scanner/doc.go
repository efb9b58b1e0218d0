// Package scanner enumerates local media files under the archive root and
// derives their comparison keys and channel folders.
package scanner
