package democmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[show]
Display = interface up\ninterface down
Help = show interface status
Completions = show, showall
UsePager = false

[listing]
Display = line 1\nline 2\nline 3
Help = a long paged listing
UsePager = true
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commands.ini")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestLoadParsesSections(t *testing.T) {
	table, err := Load(writeSample(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"show", "listing"}, table.Names())

	show, ok := table.Lookup("show")
	require.True(t, ok)
	assert.Equal(t, "interface up\ninterface down", show.Display)
	assert.Equal(t, "show interface status", show.Help)
	assert.Equal(t, []string{"show", "showall"}, show.Completions)
	assert.False(t, show.UsePager)

	listing, ok := table.Lookup("listing")
	require.True(t, ok)
	assert.True(t, listing.UsePager)
	assert.Equal(t, "line 1\nline 2\nline 3", listing.Display)
}

func TestLookupMiss(t *testing.T) {
	table, err := Load(writeSample(t))
	require.NoError(t, err)

	_, ok := table.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestCompletePrefixMatch(t *testing.T) {
	table, err := Load(writeSample(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"show"}, table.Complete("sh"))
	assert.Equal(t, []string{"show", "listing"}, table.Complete(""))
	assert.Empty(t, table.Complete("zzz"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	assert.Error(t, err)
}
