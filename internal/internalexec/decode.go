package internalexec

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
)

// DecodeLine turns raw process output into text. Valid UTF-8 is returned
// as is; otherwise the bytes are decoded as EUC-KR (the code page legacy
// Windows database tools emit), and if that also fails invalid sequences
// are replaced with U+FFFD.
func DecodeLine(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := korean.EUCKR.NewDecoder().Bytes(raw)
	if err == nil && utf8.Valid(decoded) && !strings.ContainsRune(string(decoded), utf8.RuneError) {
		return string(decoded)
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}
