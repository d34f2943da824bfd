// Package textutil holds byte-level checks applied to source text before
// it reaches the parser.
package textutil

import "bytes"

// sniffLength bounds the prefix scanned by IsBinary.
const sniffLength = 8000

// IsBinary reports whether data has a NUL byte in its first sniffLength
// bytes. No JavaScript source contains one.
func IsBinary(data []byte) bool {
	return bytes.IndexByte(data[:min(len(data), sniffLength)], 0) >= 0
}

// CountLines returns the number of lines in data. A final line without a
// trailing newline still counts.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	lines := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		lines++
	}

	return lines
}
