package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// maxAttempts bounds re-prompting after a validation failure.
const maxAttempts = 3

// Runner walks the inventory and stores each value.
type Runner struct {
	SSM       *SSMManager
	Inventory []Step
	Lookup    func(string) (string, bool)
	Stdin     *bufio.Scanner
	Stderr    io.Writer
	Overwrite bool
	// Connector verifies DATABASE_URL; nil skips the live check.
	Connector DatabaseConnector
}

type outcome string

const (
	outcomeWritten outcome = "written"
	outcomeExists  outcome = "exists"
	outcomeSkipped outcome = "skipped"
)

// Run processes every step and prints a summary.
func (r *Runner) Run(ctx context.Context) error {
	results := make([]outcome, len(r.Inventory))
	for i, step := range r.Inventory {
		fmt.Fprintf(r.Stderr, "\n[%d/%d] %s\n", i+1, len(r.Inventory), step.Label)
		res, err := r.processStep(ctx, step)
		if err != nil {
			return fmt.Errorf("step %s failed: %w", step.EnvVar, err)
		}
		results[i] = res
	}

	fmt.Fprintln(r.Stderr, "\nSummary:")
	for i, step := range r.Inventory {
		fmt.Fprintf(r.Stderr, "  %-20s %s\n", step.EnvVar, results[i])
	}
	return nil
}

func (r *Runner) processStep(ctx context.Context, step Step) (outcome, error) {
	path := r.SSM.Path(step.Key)
	if !r.Overwrite {
		exists, err := r.SSM.ParameterExists(ctx, path)
		if err != nil {
			return "", err
		}
		if exists {
			fmt.Fprintf(r.Stderr, "  %s already set, skipping\n", path)
			return outcomeExists, nil
		}
	}

	value, err := r.resolveValue(ctx, step)
	if err != nil {
		return "", err
	}
	if value == "" {
		return outcomeSkipped, nil
	}
	if err := r.SSM.Put(ctx, path, value, step.Secure, r.Overwrite); err != nil {
		return "", err
	}
	return outcomeWritten, nil
}

// resolveValue takes the value from the environment or prompts for it. An
// empty result means an optional step was skipped.
func (r *Runner) resolveValue(ctx context.Context, step Step) (string, error) {
	if r.Lookup != nil {
		if v, ok := r.Lookup(step.EnvVar); ok && strings.TrimSpace(v) != "" {
			v = strings.TrimSpace(v)
			if err := r.validate(ctx, step, v); err != nil {
				return "", fmt.Errorf("%s from environment: %w", step.EnvVar, err)
			}
			return v, nil
		}
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fmt.Fprintf(r.Stderr, "  %s: ", step.EnvVar)
		if !r.Stdin.Scan() {
			if err := r.Stdin.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		v := strings.TrimSpace(r.Stdin.Text())

		if v == "" {
			if step.Generate != nil {
				return step.Generate()
			}
			if step.Optional {
				return "", nil
			}
			fmt.Fprintln(r.Stderr, "  a value is required")
			continue
		}
		if err := r.validate(ctx, step, v); err != nil {
			fmt.Fprintf(r.Stderr, "  invalid: %v\n", err)
			continue
		}
		return v, nil
	}
	return "", fmt.Errorf("maximum attempts (%d) exceeded", maxAttempts)
}

func (r *Runner) validate(ctx context.Context, step Step, v string) error {
	if step.Validate == nil {
		return nil
	}
	return step.Validate(ctx, v, r.Connector)
}
