package runner

import (
	"fmt"
	"log/slog"
	"time"
)

// RunKernel launches a built kernel with its arrays in definition order
func (kr *Runner[F, P]) RunKernel(name string) error {
	def, exists := kr.definitions[name]
	if !exists {
		return fmt.Errorf("kernel %s not defined", name)
	}
	kernel, exists := kr.Kernels[name]
	if !exists {
		return fmt.Errorf("kernel %s not compiled", name)
	}
	args := make([]interface{}, 0, len(def.Parameters))
	for _, p := range def.Parameters {
		mem, ok := kr.PooledMemory[p.Name]
		if !ok {
			return fmt.Errorf("kernel %s: memory for %s not found", name, p.Name)
		}
		args = append(args, mem)
	}
	if err := kernel.RunWithArgs(args...); err != nil {
		return fmt.Errorf("kernel %s execution failed: %w", name, err)
	}
	return nil
}

// Step advances the device state by one time step. Kernels launch in phase
// order on one queue, so each phase sees the previous one complete.
func (kr *Runner[F, P]) Step() error {
	if len(kr.sources) > 0 {
		vals := kr.hostReal["srcVal"]
		for k, inj := range kr.sources {
			vals[k] = inj.Source.Value(kr.step)
		}
		if err := kr.copyToDevice("srcVal"); err != nil {
			return err
		}
	}
	for _, name := range kr.kernelOrder {
		if err := kr.RunKernel(name); err != nil {
			return fmt.Errorf("step %d: %w", kr.step, err)
		}
	}
	kr.step++
	return nil
}

// StepCount is the number of completed time steps, including host steps
// taken before the runner was created
func (kr *Runner[F, P]) StepCount() int { return kr.step }

// Run takes steps device steps and copies the result back to the grid. When
// observe is set, fields are copied back after every step before it is called.
func (kr *Runner[F, P]) Run(steps int, observe func(step int) error) error {
	start := time.Now()
	for n := 0; n < steps; n++ {
		if err := kr.Step(); err != nil {
			return err
		}
		if observe == nil {
			continue
		}
		if err := kr.CopyBack(); err != nil {
			return err
		}
		if err := observe(kr.step); err != nil {
			return fmt.Errorf("observer stopped run at step %d: %w", kr.step, err)
		}
	}
	if err := kr.CopyBack(); err != nil {
		return err
	}
	slog.Info("device run complete", "device", kr.Device.Mode(), "steps", steps,
		"partitions", kr.Layout.NumPartitions, "elapsed", time.Since(start))
	return nil
}
