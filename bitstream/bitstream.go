// seehuhn.de/go/pdfmark - tamper-evident watermarks for PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package bitstream converts text messages to and from strings of binary
// digits.
//
// A bit stream is represented as a Go string consisting of the characters
// '0' and '1'.  Every byte of the message contributes exactly 8 characters,
// most significant bit first.  Encoded messages always end with the
// [Terminator], which marks the end of a hidden payload.
package bitstream

import "strings"

// Terminator is appended to every encoded message.  A decoded bit stream is
// only considered meaningful if the terminator can be located in it.
const Terminator = "//3.sys//"

// Encode appends the terminator to text and returns the bit stream of the
// result.
//
// The message is treated as a sequence of bytes.  Callers are expected to
// pass 7-bit ASCII text.
func Encode(text string) string {
	msg := text + Terminator

	var b strings.Builder
	b.Grow(8 * len(msg))
	for i := 0; i < len(msg); i++ {
		c := msg[i]
		for bit := 7; bit >= 0; bit-- {
			if c&(1<<bit) != 0 {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	}
	return b.String()
}

// Decode converts a bit stream back to text.  Bits are grouped into bytes in
// order of appearance.  A trailing group of fewer than 8 bits is ignored.
//
// The result is only meaningful if it contains the [Terminator]; Decode
// itself does not look for it and does not remove it.
func Decode(bits string) string {
	n := len(bits) / 8
	buf := make([]byte, n)
	for i := range buf {
		var c byte
		for _, d := range bits[8*i : 8*i+8] {
			c <<= 1
			if d == '1' {
				c |= 1
			}
		}
		buf[i] = c
	}
	return string(buf)
}

// Chunk splits bits into consecutive pieces of the given size, from left to
// right.  If len(bits) is not a multiple of size, the last chunk is shorter.
// It is never padded.
//
// Chunk panics if size is not positive.
func Chunk(bits string, size int) []string {
	if size <= 0 {
		panic("bitstream: invalid chunk size")
	}

	res := make([]string, 0, (len(bits)+size-1)/size)
	for start := 0; start < len(bits); start += size {
		end := min(start+size, len(bits))
		res = append(res, bits[start:end])
	}
	return res
}

// Len returns the length in bits of Encode(text), without computing the
// encoding.
func Len(text string) int {
	return 8 * (len(text) + len(Terminator))
}
