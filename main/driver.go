package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Driver walks an ordered list of experiment configs, strictly one at
// a time: skip if marked done, otherwise invoke the trainer and mark
// on success. A failing trainer never stops the sweep; a trainer that
// cannot be launched at all does, since nothing after it could succeed
// either.
type Driver struct {
	SrcDir   string
	DataDir  string
	OutDir   string
	Markers  MarkerStore
	Registry *Registry // optional; nil disables run recording
	DryRun   bool

	Skipped   int
	Succeeded int
	Failed    int
}

func (d *Driver) Run(configs []ExperimentConfig) error {
	for _, cfg := range configs {
		done, err := d.Markers.Exists(cfg.Name)
		if err != nil {
			return fmt.Errorf("check marker for %s: %w", cfg.Name, err)
		}
		if done {
			fmt.Printf("%s: cached, skipping\n", cfg.Name)
			d.Skipped++
			continue
		}
		if err := d.runOne(cfg); err != nil {
			return err
		}
	}
	fmt.Printf("Sweep finished: %d succeeded, %d failed, %d cached\n",
		d.Succeeded, d.Failed, d.Skipped)
	return nil
}

func (d *Driver) runOne(cfg ExperimentConfig) error {
	trainer := filepath.Join(d.SrcDir, filepath.FromSlash(cfg.Trainer))
	runOut := filepath.Join(d.OutDir, filepath.FromSlash(cfg.Name))
	if err := os.MkdirAll(runOut, 0o755); err != nil {
		return fmt.Errorf("ensure output directory %s: %w", runOut, err)
	}
	args := trainerArgs(cfg, dataDirFor(cfg, d.DataDir), runOut)

	fmt.Printf("============= %s ==============\n", strings.ToUpper(cfg.Name))
	if d.DryRun {
		fmt.Printf("would run: %s %s\n", trainer, strings.Join(args, " "))
		return nil
	}
	fmt.Printf("running: %s %s\n", trainer, strings.Join(args, " "))

	runID := d.recordStart(cfg, args, runOut)

	cmd := exec.Command(trainer, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if err == nil {
		d.recordFinish(runID, runStatusSucceeded, 0)
		if err := d.Markers.Mark(cfg.Name); err != nil {
			return fmt.Errorf("mark %s complete: %w", cfg.Name, err)
		}
		d.Succeeded++
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Non-zero exit or death by signal: no marker, sweep goes on.
		// The next invocation of the driver retries this config.
		d.recordFinish(runID, runStatusFailed, exitErr.ExitCode())
		fmt.Fprintf(os.Stderr, "Warning: %s failed (%v); continuing\n", cfg.Name, err)
		d.Failed++
		return nil
	}

	d.recordFinish(runID, runStatusFailed, -1)
	return fmt.Errorf("launch trainer %s: %w", trainer, err)
}

// Registry writes are best effort: losing the audit trail must not
// cost a multi-hour training run.
func (d *Driver) recordStart(cfg ExperimentConfig, args []string, outDir string) int64 {
	if d.Registry == nil {
		return 0
	}
	id, err := d.Registry.Begin(cfg, args, outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: unable to record run for %s: %v\n", cfg.Name, err)
		return 0
	}
	return id
}

func (d *Driver) recordFinish(id int64, status string, exitCode int) {
	if d.Registry == nil || id == 0 {
		return
	}
	if err := d.Registry.Finish(id, status, exitCode); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: unable to record run result: %v\n", err)
	}
}
