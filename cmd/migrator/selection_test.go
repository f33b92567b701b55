package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSelectionFile_ParsesSelectionJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "migration_selection.json")
	body := `{"Tables":["EMPLOYEES"],"Views":["EMP_VIEW"],"IncludeData":{"EMPLOYEES":true}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	sel, err := loadSelectionFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"EMPLOYEES"}, sel.Tables)
	assert.Equal(t, []string{"EMP_VIEW"}, sel.Views)
	assert.True(t, sel.IncludeData["EMPLOYEES"])
}

func TestLoadSelectionFile_MissingFileReturnsError(t *testing.T) {
	_, err := loadSelectionFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
