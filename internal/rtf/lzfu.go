// Package rtf handles the rich-text bodies found in Outlook stores: it
// decompresses MAPI compressed RTF, recovers HTML or plain text encapsulated
// in RTF, and renders RTF as plain text.
package rtf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	magicCompressed   = 0x75465a4c // "LZFu"
	magicUncompressed = 0x414c454d // "MELA"
)

// prebuf seeds the LZFu dictionary.
const prebuf = "{\\rtf1\\ansi\\mac\\deff0\\deftab720{\\fonttbl;}" +
	"{\\f0\\fnil \\froman \\fswiss \\fmodern \\fscript \\fdecor MS Sans SerifSymbolArialTimes New RomanCourier" +
	"{\\colortbl\\red0\\green0\\blue0\r\n\\par \\pard\\plain\\f0\\fs20\\b\\i\\u\\tab\\tx"

var (
	ErrShortHeader = errors.New("rtf: compressed header too short")
	ErrBadMagic    = errors.New("rtf: unknown compression type")
	ErrBadCRC      = errors.New("rtf: compressed data CRC mismatch")
)

// Decompress expands a PR_RTF_COMPRESSED stream.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < 16 {
		return nil, ErrShortHeader
	}
	compSize := binary.LittleEndian.Uint32(data[0:4])
	rawSize := binary.LittleEndian.Uint32(data[4:8])
	magic := binary.LittleEndian.Uint32(data[8:12])
	crc := binary.LittleEndian.Uint32(data[12:16])

	// compSize counts everything after its own field.
	end := len(data)
	if n := int(compSize) + 4; n >= 16 && n < end {
		end = n
	}
	src := data[16:end]

	switch magic {
	case magicUncompressed:
		if int(rawSize) < len(src) {
			src = src[:rawSize]
		}
		return append([]byte(nil), src...), nil
	case magicCompressed:
	default:
		return nil, fmt.Errorf("%w: 0x%08x", ErrBadMagic, magic)
	}

	if got := checksum(src); got != crc {
		return nil, fmt.Errorf("%w: got 0x%08x, want 0x%08x", ErrBadCRC, got, crc)
	}

	var dict [4096]byte
	copy(dict[:], prebuf)
	wp := len(prebuf)
	out := make([]byte, 0, rawSize)

	pos := 0
	for pos < len(src) {
		control := src[pos]
		pos++
		for bit := 0; bit < 8 && pos < len(src); bit++ {
			if control&(1<<bit) == 0 {
				b := src[pos]
				pos++
				out = append(out, b)
				dict[wp] = b
				wp = (wp + 1) & 0xfff
				continue
			}
			if pos+1 >= len(src) {
				return out, nil
			}
			ref := int(src[pos])<<8 | int(src[pos+1])
			pos += 2
			off, n := ref>>4, ref&0xf+2
			if off == wp {
				return trimRaw(out, rawSize), nil
			}
			for i := 0; i < n; i++ {
				b := dict[(off+i)&0xfff]
				out = append(out, b)
				dict[wp] = b
				wp = (wp + 1) & 0xfff
			}
		}
	}
	return trimRaw(out, rawSize), nil
}

func trimRaw(out []byte, rawSize uint32) []byte {
	if rawSize > 0 && len(out) > int(rawSize) {
		return out[:rawSize]
	}
	return out
}

// checksum is CRC-32 (IEEE) without the usual pre- and post-inversion.
func checksum(b []byte) uint32 {
	var c uint32
	for _, v := range b {
		c = crc32.IEEETable[byte(c)^v] ^ (c >> 8)
	}
	return c
}
