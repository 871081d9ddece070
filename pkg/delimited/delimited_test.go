package delimited

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseZipsRowsAgainstHeader(t *testing.T) {
	text := "\"osCislo\";\"jmeno\";\"prijmeni\"\n" +
		"  \"A12B1230P\";\"Pepa\";\"Vlas\"\n" +
		"  \"X98Y7654T\";\"Alice\";\"Smith\"\n"

	records := Parse(text, ';')
	require.Len(t, records, 2)
	assert.Equal(t, []string{"osCislo", "jmeno", "prijmeni"}, records[0].Keys)
	assert.Equal(t, "Pepa", records[0].Values["jmeno"])
	assert.Equal(t, "X98Y7654T", records[1].Values["osCislo"])
}

func TestParseHonoursQuotedSeparatorsAndNewlines(t *testing.T) {
	text := "name,note\n\"Novák, Jan\",\"line one\nline two\"\n"

	records := Parse(text, ',')
	require.Len(t, records, 1)
	assert.Equal(t, "Novák, Jan", records[0].Values["name"])
	assert.Equal(t, "line one\nline two", records[0].Values["note"])
}

func TestParseDropsMalformedRows(t *testing.T) {
	text := "a,b\n1,2\n3\n4,5,6\n7,8\n"

	result := ParseDetailed(text, ',')
	require.Len(t, result.Records, 2)
	assert.Equal(t, "1", result.Records[0].Values["a"])
	assert.Equal(t, "8", result.Records[1].Values["b"])
	assert.Equal(t, 2, result.Dropped)
}

func TestParseDropsBrokenQuoting(t *testing.T) {
	text := "a,b\n1,2\nx\"y,3\n5,6\n"

	records := Parse(text, ',')
	require.Len(t, records, 2)
	assert.Equal(t, "5", records[1].Values["a"])
}

func TestParseUnparsableInputYieldsEmpty(t *testing.T) {
	assert.Empty(t, Parse("invalid csv data", ';'))
	assert.Empty(t, Parse("", ';'))
	assert.Empty(t, Parse("\"unterminated;\n", ';'))
}

func TestRecordGet(t *testing.T) {
	records := Parse("\ufeffjmeno ; prijmeni\nJan;Novák\n", ';')
	require.Len(t, records, 1)
	v, ok := records[0].Get("prijmeni")
	assert.True(t, ok)
	assert.Equal(t, "Novák", v)
	_, ok = records[0].Get("email")
	assert.False(t, ok)
}

func TestParseBrokenHeaderYieldsNoRecords(t *testing.T) {
	text := "jm\"eno,prijmeni\nJan,Novák\nEva,Svobodová\n"

	result := ParseDetailed(text, ',')
	assert.NotNil(t, result.Header)
	assert.Empty(t, result.Header)
	assert.Empty(t, result.Records)
	assert.Zero(t, result.Dropped)
}
