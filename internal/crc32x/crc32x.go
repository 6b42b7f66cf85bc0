// Package crc32x provides CRC-32 (IEEE 802.3, polynomial 0xEDB88320) checksum
// helpers used throughout the framing and reassembly layers.
package crc32x

import (
	"encoding/hex"
	"hash/crc32"
)

// Calculate returns the standard IEEE CRC-32 of data.
func Calculate(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Verify reports whether data's CRC-32 matches expected.
func Verify(data []byte, expected uint32) bool {
	return Calculate(data) == expected
}

// Hex formats a CRC-32 value as 8 zero-padded lowercase hex digits.
func Hex(sum uint32) string {
	var buf [4]byte
	buf[0] = byte(sum >> 24)
	buf[1] = byte(sum >> 16)
	buf[2] = byte(sum >> 8)
	buf[3] = byte(sum)
	return hex.EncodeToString(buf[:])
}
