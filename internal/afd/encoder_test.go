package afd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func testEncodeConfig(enc Encoding) EncodeConfig {
	return EncodeConfig{
		Encoding: enc,
		Policy:   PolicyTransliterate,
		CNPJ:     testCompany.CNPJ,
		Start:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	records, err := Build(testInput(Layout671))
	require.NoError(t, err)

	res, err := Encode(records, testEncodeConfig(EncodingUTF8))
	require.NoError(t, err)
	assert.Equal(t, 4, res.RecordCount)

	// Reading the file back with the declared encoding yields exactly the
	// built lines: one header, N details, one trailer.
	lines := strings.Split(strings.TrimRight(string(res.Bytes), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, records[0].Line, lines[0])
	assert.Equal(t, records[5].Line, lines[5])

	details := 0
	for i, line := range lines {
		require.NotEmpty(t, line)
		if i != 0 && i != len(lines)-1 {
			details++
		}
	}
	assert.Equal(t, res.RecordCount, details)
	assert.Contains(t, lines[len(lines)-1], "000000004", "trailer count equals detail lines")
}

func TestEncodeIdempotent(t *testing.T) {
	in := testInput(Layout671)

	first, err := Build(in)
	require.NoError(t, err)
	second, err := Build(in)
	require.NoError(t, err)

	resA, err := Encode(first, testEncodeConfig(EncodingUTF8))
	require.NoError(t, err)
	resB, err := Encode(second, testEncodeConfig(EncodingUTF8))
	require.NoError(t, err)

	assert.True(t, bytes.Equal(resA.Bytes, resB.Bytes), "identical inputs encode byte-identically")
	assert.Equal(t, resA.Filename, resB.Filename)
}

func TestEncodeLatin1Transliterates(t *testing.T) {
	in := testInput(Layout671)
	in.Company.LegalName = "Calçados São João Ltda"

	records, err := Build(in)
	require.NoError(t, err)

	res, err := Encode(records, testEncodeConfig(EncodingLatin1))
	require.NoError(t, err)

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(res.Bytes)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "Calcados Sao Joao Ltda")
}

func TestEncodeLatin1RejectPolicy(t *testing.T) {
	in := testInput(Layout671)
	in.Company.LegalName = "ACME Calçados"

	records, err := Build(in)
	require.NoError(t, err)

	cfg := testEncodeConfig(EncodingLatin1)
	cfg.Policy = PolicyReject

	// ç is representable in Latin-1; the strict encoder keeps it as-is.
	res, err := Encode(records, cfg)
	require.NoError(t, err)
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(res.Bytes)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "Calçados")

	// A rune outside the Latin-1 repertoire fails loudly instead of being
	// dropped or mangled.
	in.Company.LegalName = "ACME ☃ Ltda"
	records, err = Build(in)
	require.NoError(t, err)
	_, err = Encode(records, cfg)
	assert.Error(t, err)
}

func TestFilenameDeterministic(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	name := Filename("12.345.678/0001-95", start, end, EncodingUTF8)
	assert.Equal(t, "AFD_12345678000195_20260301-20260331_UTF8.txt", name)

	// Encoding participates in the name, so the triple never collides.
	latin := Filename("12.345.678/0001-95", start, end, EncodingLatin1)
	assert.NotEqual(t, name, latin)
	assert.Equal(t, name, Filename("12.345.678/0001-95", start, end, EncodingUTF8))
}

func TestParseEncoding(t *testing.T) {
	enc, err := ParseEncoding("")
	require.NoError(t, err)
	assert.Equal(t, DefaultEncoding, enc)

	enc, err = ParseEncoding("latin1")
	require.NoError(t, err)
	assert.Equal(t, EncodingLatin1, enc)

	enc, err = ParseEncoding("UTF-8")
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, enc)

	_, err = ParseEncoding("utf-16")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/plain; charset=utf-8", EncodingUTF8.ContentType())
	assert.Equal(t, "text/plain; charset=iso-8859-1", EncodingLatin1.ContentType())
}
