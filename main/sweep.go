package main

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Corruption types understood by sgn.py. Empty means clean labels.
const (
	corruptionSym  = "sym"
	corruptionAsym = "asym"
)

// CIFAR-N human-annotation noise variants. These select a fixed label
// file inside the trainer, so they carry no severity.
var cifarNTypes = []string{"aggre", "rand1", "rand2", "rand3", "worst"}

// ExperimentConfig is one point of the sweep: a named, immutable
// parameter set for a single trainer invocation. Name doubles as the
// cache key and the output subdirectory, so it must be unique across
// the whole sweep.
type ExperimentConfig struct {
	Name               string  `json:"name" yaml:"name"`
	Dataset            string  `json:"dataset" yaml:"dataset"`
	Trainer            string  `json:"trainer" yaml:"trainer"`
	DataSubdir         string  `json:"data_subdir" yaml:"data_subdir"`
	NoisyLabels        bool    `json:"noisy_labels" yaml:"noisy_labels"`
	CorruptionType     string  `json:"corruption_type" yaml:"corruption_type"`
	Severity           float64 `json:"severity" yaml:"severity"`
	TrainEpochs        int     `json:"train_epochs" yaml:"train_epochs"`
	CheckpointInterval int     `json:"checkpoint_interval" yaml:"checkpoint_interval"`
}

func (c ExperimentConfig) validate() error {
	if c.Name == "" {
		return fmt.Errorf("experiment has no name")
	}
	if strings.HasPrefix(c.Name, "/") || strings.Contains(c.Name, "..") {
		return fmt.Errorf("experiment name %q must be a relative path without '..'", c.Name)
	}
	if c.Dataset == "" {
		return fmt.Errorf("experiment %s has no dataset", c.Name)
	}
	if c.Trainer == "" {
		return fmt.Errorf("experiment %s has no trainer path", c.Name)
	}
	if c.NoisyLabels && c.CorruptionType == "" {
		return fmt.Errorf("experiment %s enables noisy labels without a corruption type", c.Name)
	}
	if c.Severity < 0 || c.Severity > 1 {
		return fmt.Errorf("experiment %s severity %g outside [0,1]", c.Name, c.Severity)
	}
	if c.CheckpointInterval <= 0 {
		return fmt.Errorf("experiment %s has non-positive checkpoint interval", c.Name)
	}
	return nil
}

// trainerArgs builds the argv handed to sgn.py. Corruption flags are
// emitted only when noisy labels are enabled; severity is additionally
// omitted when zero (the CIFAR-N variants select noise by type alone).
func trainerArgs(cfg ExperimentConfig, dataDir, runOutDir string) []string {
	args := []string{
		"--data_dir=" + dataDir,
		"--output_dir=" + runOutDir,
		"--dataset=" + cfg.Dataset,
	}
	if cfg.NoisyLabels {
		args = append(args, "--noisy_labels", "--corruption_type="+cfg.CorruptionType)
		if cfg.Severity > 0 {
			args = append(args, fmt.Sprintf("--severity=%g", cfg.Severity))
		}
	}
	if cfg.TrainEpochs > 0 {
		args = append(args, fmt.Sprintf("--train_epochs=%d", cfg.TrainEpochs))
	}
	args = append(args, fmt.Sprintf("--checkpoint_interval=%d", cfg.CheckpointInterval))
	return args
}

// dataDirFor resolves the dataset directory for one experiment. Suites
// keep each dataset family in its own subdirectory of the shared data
// root, mirroring how the trainer's datasets are laid out on disk.
func dataDirFor(cfg ExperimentConfig, dataDir string) string {
	if cfg.DataSubdir == "" {
		return dataDir
	}
	return filepath.Join(dataDir, cfg.DataSubdir)
}

const (
	cifarTrainer      = "cifar/sgn.py"
	clothing1mTrainer = "clothing1m/sgn.py"
	webvisionTrainer  = "webvision/sgn.py"
)

var suiteNames = []string{"cifar10", "cifar100", "cifarn", "clothing1m", "webvision"}

// builtinSuite returns the predefined sweep for one dataset family.
// Epochs and checkpoint interval apply uniformly to every point.
func builtinSuite(family string, epochs, cpInterval int) ([]ExperimentConfig, error) {
	switch family {
	case "cifar10", "cifar100":
		return cifarSuite(family, epochs, cpInterval), nil
	case "cifarn":
		return cifarNSuite(epochs, cpInterval), nil
	case "clothing1m":
		return []ExperimentConfig{{
			Name:               "clothing1m/train",
			Dataset:            "clothing1m",
			Trainer:            clothing1mTrainer,
			DataSubdir:         "clothing1m",
			TrainEpochs:        epochs,
			CheckpointInterval: cpInterval,
		}}, nil
	case "webvision":
		return []ExperimentConfig{{
			Name:               "webvision/train",
			Dataset:            "webvision",
			Trainer:            webvisionTrainer,
			DataSubdir:         "webvision",
			TrainEpochs:        epochs,
			CheckpointInterval: cpInterval,
		}}, nil
	default:
		return nil, fmt.Errorf("unknown suite %q (choose one of %s, or all)", family, strings.Join(suiteNames, ", "))
	}
}

// cifarSuite is the classic noisy-labels grid: one clean baseline plus
// symmetric and asymmetric corruption at 20/40/60 percent severity.
func cifarSuite(dataset string, epochs, cpInterval int) []ExperimentConfig {
	configs := []ExperimentConfig{{
		Name:               dataset + "/no_noise",
		Dataset:            dataset,
		Trainer:            cifarTrainer,
		DataSubdir:         dataset,
		TrainEpochs:        epochs,
		CheckpointInterval: cpInterval,
	}}
	for _, ctype := range []string{corruptionSym, corruptionAsym} {
		for _, severity := range []float64{0.2, 0.4, 0.6} {
			configs = append(configs, ExperimentConfig{
				Name:               fmt.Sprintf("%s/%s%d", dataset, ctype, int(severity*100)),
				Dataset:            dataset,
				Trainer:            cifarTrainer,
				DataSubdir:         dataset,
				NoisyLabels:        true,
				CorruptionType:     ctype,
				Severity:           severity,
				TrainEpochs:        epochs,
				CheckpointInterval: cpInterval,
			})
		}
	}
	return configs
}

func cifarNSuite(epochs, cpInterval int) []ExperimentConfig {
	configs := []ExperimentConfig{{
		// Aggregate annotations are the clean reference point of CIFAR-N.
		Name:               "cifarn/aggre",
		Dataset:            "cifar10_label_corrupted",
		Trainer:            cifarTrainer,
		DataSubdir:         "cifarN",
		NoisyLabels:        true,
		CorruptionType:     "aggre",
		TrainEpochs:        epochs,
		CheckpointInterval: cpInterval,
	}}
	for _, ctype := range cifarNTypes[1:] {
		configs = append(configs, ExperimentConfig{
			Name:               "cifarn/" + ctype,
			Dataset:            "cifar10_label_corrupted",
			Trainer:            cifarTrainer,
			DataSubdir:         "cifarN",
			NoisyLabels:        true,
			CorruptionType:     ctype,
			TrainEpochs:        epochs,
			CheckpointInterval: cpInterval,
		})
	}
	configs = append(configs, ExperimentConfig{
		Name:               "cifarn/c100n",
		Dataset:            "cifar100",
		Trainer:            cifarTrainer,
		DataSubdir:         "cifarN",
		NoisyLabels:        true,
		CorruptionType:     "c100noise",
		TrainEpochs:        epochs,
		CheckpointInterval: cpInterval,
	})
	return configs
}

// resolveSuites expands a suite selector ("cifar10", "all", ...) into
// the ordered list of experiment configs and checks name uniqueness.
func resolveSuites(selector string, epochs, cpInterval int) ([]ExperimentConfig, error) {
	var families []string
	if selector == "all" {
		families = suiteNames
	} else {
		families = strings.Split(selector, ",")
	}
	var configs []ExperimentConfig
	for _, family := range families {
		suite, err := builtinSuite(strings.TrimSpace(family), epochs, cpInterval)
		if err != nil {
			return nil, err
		}
		configs = append(configs, suite...)
	}
	if err := checkConfigs(configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func checkConfigs(configs []ExperimentConfig) error {
	if len(configs) == 0 {
		return fmt.Errorf("sweep contains no experiments")
	}
	seen := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		if err := cfg.validate(); err != nil {
			return err
		}
		if seen[cfg.Name] {
			return fmt.Errorf("duplicate experiment name %q", cfg.Name)
		}
		seen[cfg.Name] = true
	}
	return nil
}
