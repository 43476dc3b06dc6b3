package fec

import (
	"encoding/binary"
	"hash/crc32"
)

// CRCLen is the size of the checksum trailer.
const CRCLen = 4

// Checksum computes the IEEE CRC-32 of data.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Seal returns data followed by its big-endian CRC-32.
func Seal(data []byte) []byte {
	out := make([]byte, len(data)+CRCLen)
	copy(out, data)
	binary.BigEndian.PutUint32(out[len(data):], Checksum(data))
	return out
}

// Open verifies and strips the CRC-32 trailer added by Seal.
func Open(sealed []byte) ([]byte, error) {
	if len(sealed) < CRCLen {
		return nil, ErrChecksum
	}
	data := sealed[:len(sealed)-CRCLen]
	if binary.BigEndian.Uint32(sealed[len(data):]) != Checksum(data) {
		return nil, ErrChecksum
	}
	return data, nil
}
