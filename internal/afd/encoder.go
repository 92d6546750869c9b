package afd

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Encoding is the declared character encoding of the output file.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "iso-8859-1"

	DefaultEncoding = EncodingUTF8
)

// ParseEncoding rejects unknown encodings at the boundary. Empty input
// selects the default.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "":
		return DefaultEncoding, nil
	case string(EncodingUTF8), "utf8":
		return EncodingUTF8, nil
	case string(EncodingLatin1), "latin1":
		return EncodingLatin1, nil
	}
	return "", fmt.Errorf("unsupported encoding %q", s)
}

// ContentType is the HTTP content type for the encoding.
func (e Encoding) ContentType() string {
	return "text/plain; charset=" + string(e)
}

func (e Encoding) filenameToken() string {
	switch e {
	case EncodingLatin1:
		return "ISO88591"
	default:
		return "UTF8"
	}
}

// Latin1Policy decides what happens to characters outside the legacy
// encoding's repertoire. Silently dropping or mangling them is not an
// option; the file's integrity is regulator-verified.
type Latin1Policy string

const (
	// PolicyTransliterate strips combining marks (e.g. é -> e) before
	// encoding; anything still unrepresentable is rejected.
	PolicyTransliterate Latin1Policy = "transliterate"
	// PolicyReject fails the encode on the first unrepresentable character.
	PolicyReject Latin1Policy = "reject"
)

// EncodeConfig selects the output encoding and the inputs the filename
// derives from.
type EncodeConfig struct {
	Encoding Encoding
	Policy   Latin1Policy
	CNPJ     string
	Start    time.Time
	End      time.Time
}

// Result is the encoded file plus the metadata the HTTP layer exposes.
type Result struct {
	Bytes       []byte
	RecordCount int
	Filename    string
}

// Encode joins the records with the layout's newline separator, encodes
// them, counts detail records for response metadata, and derives the
// deterministic filename. Encoding identical inputs twice yields
// byte-identical output.
func Encode(records []Record, cfg EncodeConfig) (Result, error) {
	var b strings.Builder
	count := 0
	for _, r := range records {
		if r.IsDetail() {
			count++
		}
		b.WriteString(r.Line)
		b.WriteString("\n")
	}
	text := b.String()

	out := []byte(text)
	if cfg.Encoding == EncodingLatin1 {
		encoded, err := encodeLatin1(text, cfg.Policy)
		if err != nil {
			return Result{}, err
		}
		out = encoded
	}

	return Result{
		Bytes:       out,
		RecordCount: count,
		Filename:    Filename(cfg.CNPJ, cfg.Start, cfg.End, cfg.Encoding),
	}, nil
}

// Filename is deterministic over (company, date range, encoding), so
// repeated generation for the same inputs is reproducible and names for
// distinct inputs never collide.
func Filename(cnpj string, start, end time.Time, enc Encoding) string {
	return fmt.Sprintf("AFD_%s_%s-%s_%s.txt",
		digitsOnly(cnpj), start.Format("20060102"), end.Format("20060102"), enc.filenameToken())
}

func encodeLatin1(text string, policy Latin1Policy) ([]byte, error) {
	var chain transform.Transformer = charmap.ISO8859_1.NewEncoder()
	if policy == PolicyTransliterate {
		// NFD decomposition followed by combining-mark removal maps
		// accented Latin letters to their base characters.
		chain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), charmap.ISO8859_1.NewEncoder())
	}
	out, _, err := transform.String(chain, text)
	if err != nil {
		return nil, fmt.Errorf("text not representable in %s: %w", EncodingLatin1, err)
	}
	return []byte(out), nil
}
