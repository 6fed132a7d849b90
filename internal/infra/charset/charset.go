// Package charset resolves encoding names, detects the encoding of a byte
// prefix and wraps readers so that downstream parsers always see UTF-8.
package charset

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Canonical names used for comparison and reporting
const (
	UTF8    = "utf-8"
	ASCII   = "ascii"
	CP949   = "cp949"
	EUCKR   = "euc-kr"
	Latin1  = "latin-1"
	ISO8859 = "iso-8859-1"
	Unknown = "unknown"
)

var aliases = map[string]string{
	"utf8":            UTF8,
	"utf-8-sig":       UTF8,
	"us-ascii":        ASCII,
	"euckr":           EUCKR,
	"uhc":             CP949,
	"windows-949":     CP949,
	"ks-c-5601-1987":  CP949,
	"latin1":          Latin1,
	"l1":              Latin1,
	"iso8859-1":       ISO8859,
	"iso-8859-1":      ISO8859,
	"windows-1252":    "cp1252",
	"sjis":            "shift-jis",
	"cp932":           "shift-jis",
	"windows-31j":     "shift-jis",
	"eucjp":           "euc-jp",
	"utf16":           "utf-16",
	"utf-16-le":       "utf-16le",
	"utf-16-be":       "utf-16be",
	"gb-18030":        "gb18030",
	"iso-8859-1:1987": ISO8859,
}

var compatibleGroups = [][]string{
	{UTF8, ASCII},
	{CP949, EUCKR},
	{Latin1, ISO8859},
}

// Normalize lowercases a name and maps common aliases to one spelling
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "_", "-")
	if n == "" {
		return UTF8
	}
	if canon, ok := aliases[n]; ok {
		return canon
	}
	return n
}

// Compatible reports whether text in one encoding reads correctly under the other
func Compatible(a, b string) bool {
	a, b = Normalize(a), Normalize(b)
	if a == b {
		return true
	}
	for _, group := range compatibleGroups {
		if contains(group, a) && contains(group, b) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Lookup returns the decoder family for name. A nil encoding means the
// bytes are already UTF-8 (utf-8 and ascii).
func Lookup(name string) (encoding.Encoding, error) {
	switch n := Normalize(name); n {
	case UTF8, ASCII:
		return nil, nil
	case CP949, EUCKR:
		return korean.EUCKR, nil
	case Latin1, ISO8859:
		return charmap.ISO8859_1, nil
	case "cp1252":
		return charmap.Windows1252, nil
	case "shift-jis":
		return japanese.ShiftJIS, nil
	case "euc-jp":
		return japanese.EUCJP, nil
	case "utf-16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	default:
		enc, err := htmlindex.Get(n)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q", name)
		}
		return enc, nil
	}
}

// Supported reports whether Lookup understands name
func Supported(name string) bool {
	_, err := Lookup(name)
	return err == nil
}

// NewReader decodes r from the named encoding into UTF-8.
// A leading UTF-8 byte order mark is dropped.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// Decodes reports whether prefix is valid text in the named encoding.
// When truncated is set the prefix was cut at an arbitrary byte, so only
// complete lines are inspected.
func Decodes(prefix []byte, name string, truncated bool) bool {
	if truncated {
		if i := bytes.LastIndexByte(prefix, '\n'); i >= 0 {
			prefix = prefix[:i+1]
		}
	}
	prefix = bytes.TrimPrefix(prefix, []byte("\xef\xbb\xbf"))

	switch Normalize(name) {
	case ASCII:
		return isASCII(prefix)
	case UTF8:
		if truncated {
			prefix = trimPartialRune(prefix)
		}
		return utf8.Valid(prefix)
	}

	enc, err := Lookup(name)
	if err != nil {
		return false
	}
	out, err := enc.NewDecoder().Bytes(prefix)
	if err != nil {
		return false
	}
	return !bytes.ContainsRune(out, utf8.RuneError)
}

// MinConfidence is the chardet confidence below which a guess is not trusted
const MinConfidence = 50

// Detect guesses the encoding of prefix. Valid UTF-8 is reported as ascii
// when every byte is 7-bit. Other bytes are tried as Korean first, then
// handed to chardet; an unconfident guess falls back to latin-1, which
// decodes any byte sequence.
func Detect(prefix []byte) string {
	body := bytes.TrimPrefix(prefix, []byte("\xef\xbb\xbf"))
	if isASCII(body) {
		return ASCII
	}
	if utf8.Valid(trimPartialRune(body)) {
		return UTF8
	}
	if looksKorean(body) {
		return CP949
	}
	res, err := chardet.NewTextDetector().DetectBest(body)
	if err == nil && res != nil && res.Charset != "" && res.Confidence >= MinConfidence {
		name := Normalize(res.Charset)
		if Decodes(body, name, true) {
			return name
		}
	}
	return Latin1
}

// looksKorean reports whether b decodes cleanly as CP949 and at least
// half of the non-ASCII text is Hangul syllables. Short prefixes are
// misread by chardet, so this runs first.
func looksKorean(b []byte) bool {
	out, err := korean.EUCKR.NewDecoder().Bytes(b)
	if err != nil {
		return false
	}
	// a lead byte cut off at the end of the prefix
	out = bytes.TrimSuffix(out, []byte(string(utf8.RuneError)))
	if bytes.ContainsRune(out, utf8.RuneError) {
		return false
	}
	hangul, other := 0, 0
	for _, r := range string(out) {
		switch {
		case r < utf8.RuneSelf:
		case r >= 0xAC00 && r <= 0xD7A3:
			hangul++
		default:
			other++
		}
	}
	return hangul > 0 && hangul >= other
}

// CheckResult is the outcome of Check
type CheckResult struct {
	Declared string
	Detected string
	OK       bool
}

// Check decodes prefix under the declared encoding. On failure it detects
// the actual encoding and accepts it only when it is compatible with the
// declared one and the prefix decodes under it.
func Check(prefix []byte, declared string, truncated bool) CheckResult {
	res := CheckResult{Declared: Normalize(declared), Detected: Normalize(declared), OK: true}
	if Decodes(prefix, declared, truncated) {
		return res
	}
	res.Detected = Detect(prefix)
	res.OK = res.Detected != Unknown &&
		Compatible(declared, res.Detected) &&
		Decodes(prefix, res.Detected, truncated)
	return res
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// trimPartialRune drops an incomplete multi-byte sequence at the end of b
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if c < utf8.RuneSelf {
			return b
		}
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}
