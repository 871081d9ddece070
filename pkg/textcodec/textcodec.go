// Package textcodec converts uploads written in legacy single-byte code pages into UTF-8 text.
package textcodec

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
)

// DefaultCodePage is the code page used by the university information system exports.
const DefaultCodePage = "windows-1250"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Lookup resolves an IANA code page name into an encoding.
func Lookup(codepage string) (encoding.Encoding, error) {
	name := strings.ToLower(strings.TrimSpace(codepage))
	switch name {
	case "", DefaultCodePage, "cp1250":
		return charmap.Windows1250, nil
	case "utf-8", "utf8":
		return encoding.Nop, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, appErrors.UnsupportedType(fmt.Sprintf("unsupported code page %q", codepage))
	}
	return enc, nil
}

// Decode converts raw bytes in the given code page to text. Bytes the code page does not
// define decode to U+FFFD instead of failing. Row endings are normalised to "\n".
func Decode(raw []byte, codepage string) (string, error) {
	enc, err := Lookup(codepage)
	if err != nil {
		return "", err
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	var out []byte
	if enc == encoding.Nop {
		out = bytes.ToValidUTF8(raw, []byte("�"))
	} else {
		out, _, err = transform.Bytes(enc.NewDecoder(), raw)
		if err != nil {
			return "", appErrors.MalformedInput("decode text", err)
		}
	}
	text := strings.ReplaceAll(string(out), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}
