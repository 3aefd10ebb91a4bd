package rowset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := strings.NewReader("x,legend,value\n2024-01-01,clicks,5\n2024-01-02,views,2.5\n")

	rs, err := Parse(input)
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "legend", "value"}, rs.Columns)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, "2024-01-01", rs.Rows[0][0])
	assert.Equal(t, "clicks", rs.Rows[0][1])
	assert.Equal(t, 5.0, rs.Rows[0][2])
	assert.Equal(t, 2.5, rs.Rows[1][2])
}

func TestParseRaggedRows(t *testing.T) {
	input := strings.NewReader("x,clicks,views\nmon,1\ntue,2,3\n")

	rs, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, rs.Rows, 2)
	assert.Len(t, rs.Rows[0], 2)
	assert.Len(t, rs.Rows[1], 3)
}

func TestParseKeepsTimestampsAsStrings(t *testing.T) {
	input := strings.NewReader("x,value\n1609459200,5\n")

	rs, err := Parse(input)
	require.NoError(t, err)
	// Unix timestamps survive as strings for the date normalizer.
	assert.Equal(t, "1609459200", rs.Rows[0][0])
}

func TestParseEmptyBody(t *testing.T) {
	rs, err := Parse(strings.NewReader("x,value\n"))
	require.NoError(t, err)
	assert.Empty(t, rs.Rows)
}

func TestParseMissingHeader(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,clicks\na,1\nb,2\n"), 0o644))

	rs, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Len(t, rs.Rows, 2)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
