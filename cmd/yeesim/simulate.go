package main

import (
	"fmt"
	"log/slog"

	"github.com/notargets/FDTDKernel/config"
	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/probe"
	"github.com/notargets/FDTDKernel/runner"
	"github.com/notargets/FDTDKernel/utils"
	"github.com/notargets/FDTDKernel/yee"
)

// ProbeSummary reports one probe after a run
type ProbeSummary struct {
	Name       string
	Peak       float64
	Dominant   float64 // Cycles per step
	DominantHz float64
}

// Summary reports a completed run
type Summary struct {
	Steps  int
	Energy float64
	Probes []ProbeSummary
}

// assemble builds the grid and stepper described by a validated configuration
func assemble[F any, P yee.FieldsPtr[F]](rc *config.RunConfig) (*grid.Stepper[F, P], error) {
	opts, err := rc.GridOptions()
	if err != nil {
		return nil, err
	}
	g, err := grid.New[F, P](rc.Shape, opts)
	if err != nil {
		return nil, fmt.Errorf("assembling grid: %w", err)
	}
	for k, m := range rc.Materials {
		pol, mag, err := m.Allocators()
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", k, err)
		}
		if err = g.SetMaterial(m.Lo, m.Hi, pol, mag); err != nil {
			return nil, fmt.Errorf("material %d: %w", k, err)
		}
	}
	slog.Debug("grid assembled\n" + g.String())

	s, err := grid.NewStepper(g, rc.Workers)
	if err != nil {
		return nil, err
	}
	for k, src := range rc.Sources {
		comp, err := yee.ComponentByName(src.Component)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", k, err)
		}
		wf, err := src.Build()
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", k, err)
		}
		inj := grid.Injection{Cell: g.Index(src.At...), Component: comp, Hard: src.Hard, Source: wf}
		if err = s.AddSource(inj); err != nil {
			return nil, err
		}
		slog.Debug("source added", "source", inj.String())
	}
	return s, nil
}

func newRecorder[F any, P yee.FieldsPtr[F]](rc *config.RunConfig, g *grid.Grid[F, P]) (*probe.Recorder, error) {
	if len(rc.Probes) == 0 {
		return nil, nil
	}
	probes := make([]probe.Probe, len(rc.Probes))
	for j, p := range rc.Probes {
		comp, err := yee.ComponentByName(p.Component)
		if err != nil {
			return nil, fmt.Errorf("probe %q: %w", p.Name, err)
		}
		probes[j] = probe.Probe{Name: p.Name, Cell: g.Index(p.At...), Component: comp}
	}
	return probe.NewRecorder(g, probes...)
}

// simulate runs the configuration on the selected backend and summarizes it
func simulate[F any, P yee.FieldsPtr[F]](rc *config.RunConfig) (*Summary, error) {
	s, err := assemble[F, P](rc)
	if err != nil {
		return nil, err
	}
	rec, err := newRecorder(rc, s.Grid)
	if err != nil {
		return nil, err
	}
	var observe func(int) error
	if rec != nil {
		observe = rec.Observe
	}

	switch rc.Backend {
	case "occa":
		device, err := utils.CreateDevice(rc.Device)
		if err != nil {
			return nil, err
		}
		defer device.Free()
		kr, err := runner.NewRunner(device, s, rc.Workers)
		if err != nil {
			return nil, err
		}
		defer kr.Free()
		slog.Debug("device runner ready\n" + kr.String())
		if err = kr.Run(rc.Steps, observe); err != nil {
			return nil, err
		}
	default:
		if err = s.Run(rc.Steps, observe); err != nil {
			return nil, err
		}
	}

	summary := &Summary{Steps: rc.Steps, Energy: s.Grid.Energy()}
	if !s.Grid.Finite() {
		return summary, fmt.Errorf("fields diverged within %d steps", rc.Steps)
	}
	if rec == nil {
		return summary, nil
	}
	dt := s.Grid.Params.Dt()
	for _, p := range rec.Probes {
		ps := ProbeSummary{Name: p.Name}
		if ps.Peak, err = rec.Peak(p.Name); err != nil {
			return nil, err
		}
		series, err := rec.Series(p.Name)
		if err != nil {
			return nil, err
		}
		if sp, err := probe.NewSpectrum(series, true); err == nil {
			ps.Dominant = sp.Dominant()
			ps.DominantHz = ps.Dominant / dt
		}
		summary.Probes = append(summary.Probes, ps)
	}
	return summary, nil
}
