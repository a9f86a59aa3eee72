package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRunFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nightly.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profile: lab
data_dir: /scratch/data
checkpoint_interval: 5
experiments:
  - name: cifar10/sym40
    dataset: cifar10
    trainer: cifar/sgn.py
    noisy_labels: true
    corruption_type: sym
    severity: 0.4
`), 0o644))

	rf, err := loadRunFile(path)
	require.NoError(t, err)
	assert.Equal(t, "lab", rf.Profile)
	assert.Equal(t, "/scratch/data", rf.DataDir)
	assert.Equal(t, 5, rf.CheckpointInterval)
	require.Len(t, rf.Experiments, 1)
	exp := rf.Experiments[0]
	assert.Equal(t, "cifar10/sym40", exp.Name)
	assert.True(t, exp.NoisyLabels)
	assert.Equal(t, corruptionSym, exp.CorruptionType)
	assert.InDelta(t, 0.4, exp.Severity, 1e-9)
}

func TestLoadRunFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "suite": "cifar10",
  "out_dir": "/scratch/out"
}`), 0o644))

	rf, err := loadRunFile(path)
	require.NoError(t, err)
	assert.Equal(t, "cifar10", rf.Suite)
	assert.Equal(t, "/scratch/out", rf.OutDir)
}

func TestResolveSettingsPrecedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".sweep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".sweep", "config.yaml"), []byte(`
defaults:
  data_dir: /default/data
  checkpoint_interval: 20
profiles:
  lab:
    data_dir: /lab/data
    out_dir: /lab/out
`), 0o644))

	rf := &RunFile{Profile: "lab", OutDir: "/runfile/out"}

	// Flag value survives every layer.
	s := settings{dataDir: "/flag/data"}
	require.NoError(t, resolveSettings(&s, "", rf))
	assert.Equal(t, "/flag/data", s.dataDir)
	assert.Equal(t, "/runfile/out", s.outDir, "run file beats profile")
	assert.Equal(t, 20, s.checkpointInterval, "config defaults fill remaining gaps")
	assert.Equal(t, "cache", s.cacheDir, "hard default as last resort")
	assert.Equal(t, "all", s.suite)

	// Without a flag, the profile named by the run file applies.
	s = settings{}
	require.NoError(t, resolveSettings(&s, "", rf))
	assert.Equal(t, "/lab/data", s.dataDir)
}

func TestResolveSettingsUnknownProfile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".sweep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".sweep", "config.yaml"), []byte("defaults: {}\n"), 0o644))

	var s settings
	err := resolveSettings(&s, "nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestResolveSettingsProfileWithoutConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var s settings
	err := resolveSettings(&s, "lab", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no config file")
}

func TestExperimentsForRunFileList(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	rf := &RunFile{
		Experiments: []ExperimentConfig{
			{Name: "custom/a", Dataset: "cifar10", Trainer: "cifar/sgn.py"},
			{Name: "custom/b", Dataset: "cifar100", Trainer: "cifar/sgn.py", CheckpointInterval: 3},
		},
	}
	s := settings{trainEpochs: 100, checkpointInterval: 10}
	require.NoError(t, resolveSettings(&s, "", rf))

	configs, err := experimentsFor(&s, rf)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, 10, configs[0].CheckpointInterval, "unset interval backfilled from settings")
	assert.Equal(t, 100, configs[0].TrainEpochs)
	assert.Equal(t, 3, configs[1].CheckpointInterval, "explicit interval kept")
}

func TestExperimentsForSuiteFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	s := settings{suite: "webvision"}
	require.NoError(t, resolveSettings(&s, "", nil))

	configs, err := experimentsFor(&s, nil)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "webvision/train", configs[0].Name)
	assert.Equal(t, webvisionTrainer, configs[0].Trainer)
}
