package protocol

import (
	"fmt"
	"hash/crc32"
)

// ChecksumAlg selects the digest computed by a ChecksumLayer.
type ChecksumAlg uint8

const (
	Sum8 ChecksumAlg = iota
	Sum16
	Xor8
	CRC16CCITT
	CRC32
)

func (a ChecksumAlg) String() string {
	switch a {
	case Sum8:
		return "sum8"
	case Sum16:
		return "sum16"
	case Xor8:
		return "xor8"
	case CRC16CCITT:
		return "crc16-ccitt"
	case CRC32:
		return "crc32"
	default:
		return fmt.Sprintf("ChecksumAlg(%d)", uint8(a))
	}
}

// Width is the number of bytes the digest occupies on the wire.
func (a ChecksumAlg) Width() int {
	switch a {
	case Sum8, Xor8:
		return 1
	case Sum16, CRC16CCITT:
		return 2
	case CRC32:
		return 4
	default:
		return 0
	}
}

// Compute returns the digest of data.
func (a ChecksumAlg) Compute(data []byte) uint64 {
	switch a {
	case Sum8:
		var s uint8
		for _, b := range data {
			s += b
		}
		return uint64(s)
	case Sum16:
		var s uint16
		for _, b := range data {
			s += uint16(b)
		}
		return uint64(s)
	case Xor8:
		var x uint8
		for _, b := range data {
			x ^= b
		}
		return uint64(x)
	case CRC16CCITT:
		return uint64(crc16CCITT(data))
	case CRC32:
		return uint64(crc32.ChecksumIEEE(data))
	default:
		return 0
	}
}

// crc16CCITT is CRC-16/CCITT-FALSE: poly 0x1021, init 0xFFFF, no reflection.
func crc16CCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
