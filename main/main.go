package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	switch os.Args[1] {
	case "run":
		if err := cmdRun(os.Args[2:]); err != nil {
			log.Fatalf("sweep run: %v", err)
		}
	case "status":
		if err := cmdStatus(os.Args[2:]); err != nil {
			log.Fatalf("sweep status: %v", err)
		}
	case "list":
		if err := cmdList(os.Args[2:]); err != nil {
			log.Fatalf("sweep list: %v", err)
		}
	case "show":
		if err := cmdShow(os.Args[2:]); err != nil {
			log.Fatalf("sweep show: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage:
  sweep run    [flags] <src-dir>
  sweep status [flags]
  sweep list
  sweep show   <id>

Commands:
  run     Run the configured experiments, skipping ones already marked done.
  status  Show which experiments are done and which are still pending.
  list    List recorded trainer runs (stored locally).
  show    Show details of one recorded run by ID.

Examples:
  sweep run --suite cifar10 --checkpoint-interval 10 ~/noisy-labels/src

  sweep run --config-file nightly.yaml ~/noisy-labels/src

  sweep run --profile lab --suite cifar10,cifar100 ~/noisy-labels/src

  sweep status --suite all

  sweep list

  sweep show 3

Notes:
  - <src-dir> is the directory holding the trainer tree (cifar/sgn.py and
    friends); it is only used to locate the trainer programs.
  - A marker file under the cache directory means an experiment finished
    with exit status 0; delete a marker by hand to force a re-run.
  - A failing experiment is logged and the sweep moves on. Re-running the
    same sweep retries exactly the experiments without a marker.
  - --config-file accepts JSON or YAML; an "experiments" list there
    replaces the built-in suites entirely.
  - Define defaults and profiles in ~/.sweep/config.(json|yaml), then pass
    --profile NAME to avoid retyping directories.`)
}

// sweep run [flags] <src-dir>
func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var (
		s           settings
		configPath  string
		profileName string
		dryRun      bool
	)
	addSweepFlags(fs, &s, &configPath, &profileName)
	fs.BoolVar(&dryRun, "dry-run", false, "Print trainer command lines without running anything")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sweep run [flags] <src-dir>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one src-dir argument is required")
	}
	srcDir := fs.Arg(0)

	configs, err := prepareSweep(&s, configPath, profileName)
	if err != nil {
		return err
	}

	// Nothing can succeed without these; failing to create them ends
	// the run before any trainer is considered.
	for _, dir := range []string{s.dataDir, s.outDir, s.cacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}

	driver := &Driver{
		SrcDir:  srcDir,
		DataDir: s.dataDir,
		OutDir:  s.outDir,
		Markers: newFileMarkers(s.cacheDir),
		DryRun:  dryRun,
	}
	if !dryRun {
		reg, err := openRegistry(filepath.Join(s.cacheDir, "sweep.db"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: run registry unavailable: %v\n", err)
		} else {
			driver.Registry = reg
			defer reg.Close()
		}
	}

	fmt.Printf("Sweeping %d experiments (data=%s out=%s cache=%s)\n",
		len(configs), s.dataDir, s.outDir, s.cacheDir)
	return driver.Run(configs)
}

// sweep status [flags]
func cmdStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	var (
		s           settings
		configPath  string
		profileName string
	)
	addSweepFlags(fs, &s, &configPath, &profileName)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sweep status [flags]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	configs, err := prepareSweep(&s, configPath, profileName)
	if err != nil {
		return err
	}

	markers := newFileMarkers(s.cacheDir)
	done := 0
	fmt.Printf("%-28s %-10s %s\n", "NAME", "STATE", "COMPLETED")
	for _, cfg := range configs {
		at, ok, err := markers.MarkedAt(cfg.Name)
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("%-28s %-10s %s\n", cfg.Name, "done", humanize.Time(at))
			done++
		} else {
			fmt.Printf("%-28s %-10s %s\n", cfg.Name, "pending", "-")
		}
	}
	fmt.Printf("\n%d/%d experiments done\n", done, len(configs))
	return nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	cacheDir := fs.String("cache-dir", "cache", "Directory holding markers and the run registry")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sweep list [flags]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, err := openRegistry(filepath.Join(*cacheDir, "sweep.db"))
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer reg.Close()

	records, err := reg.List()
	if err != nil {
		return err
	}
	fmt.Printf("%-5s %-28s %-26s %-10s %-6s %s\n", "ID", "NAME", "DATASET", "STATUS", "EXIT", "STARTED")
	for _, rec := range records {
		fmt.Printf("%-5d %-28s %-26s %-10s %-6d %s\n",
			rec.ID, rec.Name, rec.Dataset, rec.Status, rec.ExitCode, humanize.Time(rec.StartedAt))
	}
	return nil
}

func cmdShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	cacheDir := fs.String("cache-dir", "cache", "Directory holding markers and the run registry")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sweep show [flags] <id>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("id is required")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", fs.Arg(0))
	}

	reg, err := openRegistry(filepath.Join(*cacheDir, "sweep.db"))
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer reg.Close()

	rec, err := reg.Show(id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("no run with id %d", id)
		}
		return err
	}

	fmt.Printf("Run %d\n", rec.ID)
	fmt.Println("-------------")
	fmt.Printf("Name:        %s\n", rec.Name)
	fmt.Printf("Dataset:     %s\n", rec.Dataset)
	if rec.NoisyLabels {
		noise := rec.CorruptionType
		if rec.Severity > 0 {
			noise = fmt.Sprintf("%s %g", noise, rec.Severity)
		}
		fmt.Printf("Noise:       %s\n", noise)
	} else {
		fmt.Printf("Noise:       none\n")
	}
	fmt.Printf("Status:      %s\n", rec.Status)
	fmt.Printf("Exit code:   %d\n", rec.ExitCode)
	fmt.Printf("Output dir:  %s\n", rec.OutDir)
	fmt.Printf("Args:        %s\n", rec.Args)
	if !rec.StartedAt.IsZero() {
		fmt.Printf("Started:     %s (%s)\n", rec.StartedAt.Format("2006-01-02 15:04:05"), humanize.Time(rec.StartedAt))
	}
	if !rec.FinishedAt.IsZero() {
		fmt.Printf("Finished:    %s (%s)\n", rec.FinishedAt.Format("2006-01-02 15:04:05"), humanize.Time(rec.FinishedAt))
	}
	return nil
}

// addSweepFlags registers the flags shared by run and status.
func addSweepFlags(fs *flag.FlagSet, s *settings, configPath, profileName *string) {
	fs.StringVar(&s.dataDir, "data-dir", "", "Dataset directory read by the trainer (default \"data\")")
	fs.StringVar(&s.outDir, "out-dir", "", "Directory for per-experiment trainer output (default \"out\")")
	fs.StringVar(&s.cacheDir, "cache-dir", "", "Directory for completion markers and the run registry (default \"cache\")")
	fs.StringVar(&s.suite, "suite", "", fmt.Sprintf("Comma-separated built-in suites to run: %s, or all (default \"all\")", strings.Join(suiteNames, ", ")))
	fs.IntVar(&s.trainEpochs, "train-epochs", 0, "Epochs passed to the trainer; 0 keeps the trainer's default")
	fs.IntVar(&s.checkpointInterval, "checkpoint-interval", 0, "Epochs between trainer checkpoints (default 10)")
	fs.StringVar(configPath, "config-file", "", "Path to a YAML/JSON file describing this sweep (optional)")
	fs.StringVar(profileName, "profile", "", "Profile name defined in ~/.sweep/config.(json|yaml) to use as defaults")
}

// prepareSweep resolves settings through the precedence chain and
// expands the experiment list.
func prepareSweep(s *settings, configPath, profileName string) ([]ExperimentConfig, error) {
	var rf *RunFile
	if configPath != "" {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("config-file: %w", err)
		}
		rf, err = loadRunFile(absPath)
		if err != nil {
			return nil, err
		}
	}
	if err := resolveSettings(s, profileName, rf); err != nil {
		return nil, err
	}
	return experimentsFor(s, rf)
}
