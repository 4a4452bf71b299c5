package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/go-humansort/classifier"
	"github.com/nvr-ai/go-humansort/config"
	"github.com/nvr-ai/go-humansort/inference/detectors"
	"github.com/nvr-ai/go-humansort/logging"
	"github.com/nvr-ai/go-humansort/models"
	"github.com/nvr-ai/go-humansort/profiler"
	"github.com/nvr-ai/go-humansort/sorter"
	"github.com/nvr-ai/go-humansort/store"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		configPath  string
		inputDir    string
		humanDir    string
		nonHumanDir string
		workers     int
		dryRun      bool
		journalPath string
		logLevel    string
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flag.StringVar(&inputDir, "input", "", "Directory of images to sort")
	flag.StringVar(&humanDir, "human", "", "Destination for images containing a human")
	flag.StringVar(&nonHumanDir, "non-human", "", "Destination for all other images")
	flag.IntVar(&workers, "workers", 0, "Number of images processed in parallel")
	flag.BoolVar(&dryRun, "dry-run", false, "Classify and journal without moving files")
	flag.StringVar(&journalPath, "journal", "", "SQLite file recording every verdict")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	// Flags given on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Sorter.InputDir = inputDir
		case "human":
			cfg.Sorter.HumanDir = humanDir
		case "non-human":
			cfg.Sorter.NonHumanDir = nonHumanDir
		case "workers":
			cfg.Sorter.Workers = workers
		case "dry-run":
			cfg.Sorter.DryRun = dryRun
		case "journal":
			cfg.Journal.Path = journalPath
		case "log-level":
			cfg.Log.Level = logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("sort failed")
		stop()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	name, err := models.DefaultClassManager().GetName(cfg.Models.Family, cfg.Thresholds.PersonClass)
	if err != nil {
		return err
	}
	fields := logrus.Fields{
		"family":       cfg.Models.Family,
		"person_class": cfg.Thresholds.PersonClass,
		"label":        name,
	}
	if name != models.PersonLabel {
		log.WithFields(fields).Warn("person class does not map to the person label")
	} else {
		log.WithFields(fields).Debug("resolved person class")
	}

	c, err := classifier.New(cfg.Thresholds, log)
	if err != nil {
		return err
	}

	set, err := detectors.Open(cfg.Models)
	if err != nil {
		return err
	}
	defer set.Close()

	var journal sorter.Recorder
	if cfg.Journal.Path != "" {
		j, err := store.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer j.Close()
		journal = j
	}

	timings := profiler.New(0)
	s, err := sorter.New(sorter.Options{
		Models:     set,
		Classifier: c,
		Config:     cfg.Sorter,
		Journal:    journal,
		Timings:    timings,
		Log:        log,
	})
	if err != nil {
		return err
	}

	summary, err := s.Run(ctx)
	timings.Report(log)

	fmt.Printf("sorted %d images: %d human, %d non-human, %d failed\n",
		summary.Total, summary.Human, summary.NonHuman, summary.Failed)
	return err
}
