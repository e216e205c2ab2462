// Package protocol owns the wire contract.
//
// Ownership boundary:
// - transfer header encode/decode
// - exact-read primitive
//
// Wire layout: 2-byte BE name length, name bytes, 8-byte BE file size,
// then exactly file-size payload bytes. No trailer, no checksum.
package protocol
