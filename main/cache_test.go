package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMarkersRoundTrip(t *testing.T) {
	markers := newFileMarkers(t.TempDir())

	ok, err := markers.Exists("cifar10/sym20")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, markers.Mark("cifar10/sym20"))

	ok, err = markers.Exists("cifar10/sym20")
	require.NoError(t, err)
	assert.True(t, ok)

	// Marking twice is harmless.
	require.NoError(t, markers.Mark("cifar10/sym20"))
}

func TestFileMarkersDistinctNames(t *testing.T) {
	dir := t.TempDir()
	markers := newFileMarkers(dir)

	require.NoError(t, markers.Mark("cifar10/sym20"))

	ok, err := markers.Exists("cifar100/sym20")
	require.NoError(t, err)
	assert.False(t, ok, "marker for one name must not satisfy another")

	info, err := os.Stat(filepath.Join(dir, "cifar10", "sym20"))
	require.NoError(t, err)
	assert.Zero(t, info.Size(), "markers are empty files")
}

func TestFileMarkersMarkedAt(t *testing.T) {
	markers := newFileMarkers(t.TempDir())

	_, ok, err := markers.MarkedAt("webvision/train")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, markers.Mark("webvision/train"))

	at, ok, err := markers.MarkedAt("webvision/train")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, at.IsZero())
}
