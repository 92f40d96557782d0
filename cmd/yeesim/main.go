// Command yeesim runs a Yee-cell FDTD simulation described by a YAML file.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/notargets/FDTDKernel/config"
	"github.com/notargets/FDTDKernel/yee"
)

func main() {
	configPath := flag.String("config", "", "YAML run configuration, the reference TEM chain when empty")
	steps := flag.Int("steps", 0, "override the configured number of steps")
	workers := flag.Int("workers", 0, "override the configured worker count")
	backend := flag.String("backend", "", "override the backend, host or occa")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	rc, err := loadConfig(*configPath, *steps, *workers, *backend)
	if err != nil {
		slog.Error("configuration rejected", "error", err)
		os.Exit(1)
	}
	slog.Debug("configuration\n" + rc.String())

	summary, err := dispatch(rc)
	if err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("simulation complete", "mode", rc.Mode, "steps", summary.Steps,
		"energy", fmt.Sprintf("%.6e", summary.Energy))
	for _, p := range summary.Probes {
		slog.Info("probe", "name", p.Name, "peak", fmt.Sprintf("%.6e", p.Peak),
			"dominant_cycles_per_step", fmt.Sprintf("%.4f", p.Dominant),
			"dominant_hz", fmt.Sprintf("%.6e", p.DominantHz))
	}
}

func loadConfig(path string, steps, workers int, backend string) (*config.RunConfig, error) {
	var rc *config.RunConfig
	if path == "" {
		def := config.Defaults()
		rc = &def
	} else {
		var err error
		if rc, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if steps > 0 {
		rc.Steps = steps
	}
	if workers > 0 {
		rc.Workers = workers
	}
	if backend != "" {
		rc.Backend = backend
	}
	return rc, rc.Validate()
}

// dispatch selects the field storage type for the configured mode
func dispatch(rc *config.RunConfig) (*Summary, error) {
	mode, err := yee.ModeByName(rc.Mode)
	if err != nil {
		return nil, err
	}
	switch mode.(type) {
	case yee.TEM:
		return simulate[yee.FieldsTEM](rc)
	case yee.TE:
		return simulate[yee.FieldsTE](rc)
	case yee.TM:
		return simulate[yee.FieldsTM](rc)
	case yee.ThreeD:
		return simulate[yee.Fields3D](rc)
	}
	return nil, fmt.Errorf("mode %s has no field storage", mode.Name())
}
