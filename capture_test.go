package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageAndReadCapture(t *testing.T) {
	dir := t.TempDir()

	_, ok := readStagedCapture(dir)
	assert.False(t, ok)

	require.NoError(t, stageCapture(dir, "stdin", "print('hi')\n"))

	c, ok := readStagedCapture(dir)
	require.True(t, ok)
	assert.Equal(t, 1, c.Version)
	assert.Equal(t, "stdin", c.Source)
	assert.Equal(t, "print('hi')\n", c.Code)
	assert.NotEmpty(t, c.StagedAt)

	clearStagedCapture(dir)
	_, ok = readStagedCapture(dir)
	assert.False(t, ok)
}

func TestStageCaptureRejectsEmptySelection(t *testing.T) {
	dir := t.TempDir()
	err := stageCapture(dir, "stdin", "   \n")
	require.Error(t, err)
	_, ok := readStagedCapture(dir)
	assert.False(t, ok)
}

func TestStageCaptureOverwritesPrevious(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, stageCapture(dir, "stdin", "first"))
	require.NoError(t, stageCapture(dir, "clipboard", "second"))

	c, ok := readStagedCapture(dir)
	require.True(t, ok)
	assert.Equal(t, "second", c.Code)
	assert.Equal(t, "clipboard", c.Source)
}

func TestReadStagedCaptureRejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	p := capturePath(dir)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(`{"version":2,"code":"x"}`), 0o644))

	_, ok := readStagedCapture(dir)
	assert.False(t, ok)
}
