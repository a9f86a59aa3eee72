package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile holds reusable sweep settings. Zero values mean "not set"
// and defer to the next layer (flag > run file > profile > defaults).
type Profile struct {
	DataDir            string `json:"data_dir" yaml:"data_dir"`
	OutDir             string `json:"out_dir" yaml:"out_dir"`
	CacheDir           string `json:"cache_dir" yaml:"cache_dir"`
	Suite              string `json:"suite" yaml:"suite"`
	TrainEpochs        int    `json:"train_epochs" yaml:"train_epochs"`
	CheckpointInterval int    `json:"checkpoint_interval" yaml:"checkpoint_interval"`
}

type Config struct {
	Defaults Profile            `json:"defaults" yaml:"defaults"`
	Profiles map[string]Profile `json:"profiles" yaml:"profiles"`
	path     string
}

// RunFile describes a single sweep: the profile settings plus an
// optional explicit experiment list that replaces the built-in suites.
type RunFile struct {
	Profile            string             `json:"profile" yaml:"profile"`
	DataDir            string             `json:"data_dir" yaml:"data_dir"`
	OutDir             string             `json:"out_dir" yaml:"out_dir"`
	CacheDir           string             `json:"cache_dir" yaml:"cache_dir"`
	Suite              string             `json:"suite" yaml:"suite"`
	TrainEpochs        int                `json:"train_epochs" yaml:"train_epochs"`
	CheckpointInterval int                `json:"checkpoint_interval" yaml:"checkpoint_interval"`
	Experiments        []ExperimentConfig `json:"experiments" yaml:"experiments"`
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sweep"), nil
}

func defaultConfigPaths() ([]string, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.yml"),
		filepath.Join(dir, "config.json"),
	}, nil
}

// loadConfig reads the first of ~/.sweep/config.(yaml|yml|json) that
// exists. A nil Config with nil error means no config file at all.
func loadConfig() (*Config, error) {
	paths, err := defaultConfigPaths()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		cfg := &Config{
			Profiles: make(map[string]Profile),
			path:     path,
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return cfg, nil
		}
		if err := unmarshalConfigData(data, filepath.Ext(path), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if cfg.Profiles == nil {
			cfg.Profiles = make(map[string]Profile)
		}
		return cfg, nil
	}
	return nil, nil
}

func loadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rf RunFile
	if err := unmarshalConfigData(data, filepath.Ext(path), &rf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &rf, nil
}

func configPathHint() string {
	dir, err := configDir()
	if err != nil {
		return "~/.sweep/config.(json|yaml)"
	}
	return fmt.Sprintf("%s/config.(json|yaml)", dir)
}

func unmarshalConfigData(data []byte, ext string, target any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	switch strings.ToLower(ext) {
	case ".json":
		return json.Unmarshal(trimmed, target)
	default:
		return yaml.Unmarshal(trimmed, target)
	}
}

// settings is the flattened result of the precedence chain. Fields
// are filled front to back: explicit flags first, then the run file,
// then the chosen profile, then config defaults, then hard defaults.
type settings struct {
	dataDir            string
	outDir             string
	cacheDir           string
	suite              string
	trainEpochs        int
	checkpointInterval int
}

func (s *settings) apply(p Profile) {
	if s.dataDir == "" {
		s.dataDir = p.DataDir
	}
	if s.outDir == "" {
		s.outDir = p.OutDir
	}
	if s.cacheDir == "" {
		s.cacheDir = p.CacheDir
	}
	if s.suite == "" {
		s.suite = p.Suite
	}
	if s.trainEpochs == 0 {
		s.trainEpochs = p.TrainEpochs
	}
	if s.checkpointInterval == 0 {
		s.checkpointInterval = p.CheckpointInterval
	}
}

func (s *settings) applyRunFile(rf *RunFile) {
	if rf == nil {
		return
	}
	s.apply(Profile{
		DataDir:            rf.DataDir,
		OutDir:             rf.OutDir,
		CacheDir:           rf.CacheDir,
		Suite:              rf.Suite,
		TrainEpochs:        rf.TrainEpochs,
		CheckpointInterval: rf.CheckpointInterval,
	})
}

func (s *settings) applyDefaults() {
	s.apply(Profile{
		DataDir:            "data",
		OutDir:             "out",
		CacheDir:           "cache",
		Suite:              "all",
		CheckpointInterval: 10,
	})
}

// resolveSettings runs the whole precedence chain. profileName may be
// empty; the run file may name a profile of its own.
func resolveSettings(s *settings, profileName string, rf *RunFile) error {
	if rf != nil && profileName == "" {
		profileName = rf.Profile
	}
	s.applyRunFile(rf)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg == nil {
		if profileName != "" {
			return fmt.Errorf("profile %q requested but no config file found (expected %s)", profileName, configPathHint())
		}
	} else {
		if profileName != "" {
			prof, ok := cfg.Profiles[profileName]
			if !ok {
				return fmt.Errorf("profile %q not found in %s", profileName, cfg.path)
			}
			s.apply(prof)
		}
		s.apply(cfg.Defaults)
	}
	s.applyDefaults()
	return nil
}

// experimentsFor picks the sweep contents: an explicit list from the
// run file wins over the built-in suites. Epochs and checkpoint
// interval backfill list entries that leave them unset.
func experimentsFor(s *settings, rf *RunFile) ([]ExperimentConfig, error) {
	if rf != nil && len(rf.Experiments) > 0 {
		configs := make([]ExperimentConfig, len(rf.Experiments))
		for i, cfg := range rf.Experiments {
			if cfg.TrainEpochs == 0 {
				cfg.TrainEpochs = s.trainEpochs
			}
			if cfg.CheckpointInterval == 0 {
				cfg.CheckpointInterval = s.checkpointInterval
			}
			configs[i] = cfg
		}
		if err := checkConfigs(configs); err != nil {
			return nil, err
		}
		return configs, nil
	}
	return resolveSuites(s.suite, s.trainEpochs, s.checkpointInterval)
}
