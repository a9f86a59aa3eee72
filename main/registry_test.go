package main

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := openRegistry(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRegistryRoundTrip(t *testing.T) {
	reg := openTestRegistry(t)

	cfg := ExperimentConfig{
		Name:               "cifar10/sym20",
		Dataset:            "cifar10",
		Trainer:            cifarTrainer,
		NoisyLabels:        true,
		CorruptionType:     corruptionSym,
		Severity:           0.2,
		CheckpointInterval: 10,
	}
	args := trainerArgs(cfg, "/data/cifar10", "/out/cifar10/sym20")

	id, err := reg.Begin(cfg, args, "/out/cifar10/sym20")
	require.NoError(t, err)
	require.NotZero(t, id)

	rec, err := reg.Show(id)
	require.NoError(t, err)
	assert.Equal(t, runStatusRunning, rec.Status)
	assert.Equal(t, "cifar10/sym20", rec.Name)
	assert.True(t, rec.NoisyLabels)
	assert.Equal(t, corruptionSym, rec.CorruptionType)
	assert.InDelta(t, 0.2, rec.Severity, 1e-9)
	assert.Contains(t, rec.Args, "--severity=0.2")
	assert.False(t, rec.StartedAt.IsZero())
	assert.True(t, rec.FinishedAt.IsZero())

	require.NoError(t, reg.Finish(id, runStatusSucceeded, 0))

	rec, err = reg.Show(id)
	require.NoError(t, err)
	assert.Equal(t, runStatusSucceeded, rec.Status)
	assert.Zero(t, rec.ExitCode)
	assert.False(t, rec.FinishedAt.IsZero())
}

func TestRegistryListOrder(t *testing.T) {
	reg := openTestRegistry(t)

	for _, name := range []string{"first", "second", "third"} {
		cfg := ExperimentConfig{Name: name, Dataset: "cifar10", Trainer: cifarTrainer, CheckpointInterval: 10}
		_, err := reg.Begin(cfg, trainerArgs(cfg, "/data", "/out/"+name), "/out/"+name)
		require.NoError(t, err)
	}

	records, err := reg.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "third", records[0].Name)
	assert.Equal(t, "first", records[2].Name)
}

func TestRegistryShowMissing(t *testing.T) {
	reg := openTestRegistry(t)
	_, err := reg.Show(42)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
