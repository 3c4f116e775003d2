// Package docio loads raw text from source policy documents.
package docio

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Text extracts plain text from PDF bytes. When the data cannot be parsed as
// a PDF it falls back to filtering printable characters, which keeps plain
// text fixtures usable in tests and tolerates partially damaged files.
func Text(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
		if reader, err := r.GetPlainText(); err == nil {
			if out, err := io.ReadAll(reader); err == nil && len(out) > 0 {
				return string(out)
			}
		}
	}
	return string(printableText(data))
}

// ReadFile loads a document from disk and extracts its text.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Text(data), nil
}

func printableText(in []byte) []byte {
	var out bytes.Buffer
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			if b := in[0]; printableASCII(b) {
				out.WriteByte(b)
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if printableRune(r) {
			out.WriteRune(r)
		}
	}
	return out.Bytes()
}

func printableASCII(b byte) bool {
	return b == '\n' || b == '\r' || b == '\t' || (b >= 32 && b < 127)
}

func printableRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return true
	}
	return r >= 32 && r <= 0x10FFFF
}
