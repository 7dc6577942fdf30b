// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

// Package launcher dispatches the evaluation of weight files and the training of new models to the
// learner of the selected family.
//
// It is the layer between the menus (or the command line) and the learners: it guards against
// weight files without metadata, names the files of trained models, and seeds the backend explicitly
// at the start of every flow.
package launcher

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fewshot/launcher/pkg/families"
	"github.com/fewshot/launcher/pkg/learners"
	"github.com/fewshot/launcher/pkg/weights"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// ErrUntestable is returned by Dispatcher.Evaluate for weight entries without ways or shots.
	ErrUntestable = errors.New("weights have no ways/shots information")

	// ErrInvalidRequest is returned by Dispatcher.Train for non-positive ways or shots.
	ErrInvalidRequest = errors.New("invalid training request")
)

// Options of the Dispatcher.
type Options struct {
	WeightsDir, SaveDir string
	Seed                int
	Extension           string
}

// Dispatcher runs the test and train flows.
type Dispatcher struct {
	opts   Options
	runner learners.Runner
	out    io.Writer

	// Now returns the current local time, used to timestamp trained models.
	Now func() time.Time
}

// New creates a Dispatcher that executes learners with runner and writes user messages to out.
func New(opts Options, runner learners.Runner, out io.Writer) *Dispatcher {
	if opts.Extension == "" {
		opts.Extension = weights.DefaultExtension
	}
	return &Dispatcher{opts: opts, runner: runner, out: out, Now: time.Now}
}

// Options returns the options the Dispatcher was created with.
func (d *Dispatcher) Options() Options { return d.opts }

func (d *Dispatcher) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(d.out, format, args...)
}

// Catalog builds a fresh catalog of the weights available for the family.
func (d *Dispatcher) Catalog(family families.Family) (*weights.Catalog, error) {
	return weights.Build(family).ShippedDir(d.opts.WeightsDir).SaveDir(d.opts.SaveDir).Done()
}

// Evaluate the weights in entry with the family's learner.
//
// If entry has no ways or shots, it explains the file name convention and returns ErrUntestable
// without constructing any learner. Errors from the learner itself are returned as is.
func (d *Dispatcher) Evaluate(ctx context.Context, family families.Family, entry weights.Entry) error {
	d.printf("--- Testing model: %s ---\n", entry.Filename)
	d.printf("Source folder: %s\n", entry.Dir)
	d.printf("Parameters: ways=%d, shots=%d\n", entry.Ways, entry.Shots)
	d.printf("%s\n", strings.Repeat("-", 30))

	if !entry.Testable() {
		d.printf("\n[ERROR] Could not recover ways and shots from the file name, the model can't be tested.\n")
		d.printf("Make sure the file name of your trained model contains 'waysX' and 'shotsY' (e.g.: %s_ways10_shots5_...)\n",
			family.Name)
		return errors.Wrapf(ErrUntestable, "%q", entry.Filename)
	}
	if !family.Testable {
		return errors.Errorf("family %s can't be evaluated", family)
	}
	if entry.Extra != nil && entry.Extra.Assumed {
		d.printf("[WARN] inner_test_steps=%d is assumed: it is not encoded in the file name.\n", entry.Extra.InnerTestSteps)
	}

	d.printf("\n[INFO] Initializing %s (ways=%d)...\n", family, entry.Ways)
	seed := learners.Seed{Backend: family.Backend, Value: d.opts.Seed}
	learner, err := learners.New(d.runner, family, seed, entry.Ways, entry.Shots)
	if err != nil {
		return err
	}
	klog.V(1).Infof("launcher: evaluating %q with %s (seed %d)", entry.Path(), family, seed.Value)
	start := time.Now()
	if err = learner.Evaluate(ctx, entry.Path(), entry.Shots, entry.Extra); err != nil {
		return err
	}
	d.printf("[INFO] Evaluation finished in %s.\n", FormatDuration(time.Since(start)))
	return nil
}

// Train a new model of the family, for the given ways and shots. It returns the path where the
// learner saves the weights.
func (d *Dispatcher) Train(ctx context.Context, family families.Family, ways, shots int) (string, error) {
	if ways <= 0 || shots <= 0 {
		return "", errors.Wrapf(ErrInvalidRequest, "ways and shots must be positive, got ways=%d, shots=%d", ways, shots)
	}
	saveName := weights.NewSaveName(family, ways, shots, d.Now(), d.opts.Extension)
	savePath := filepath.Join(d.opts.SaveDir, saveName)

	d.printf("\n[INFO] Initializing %s (ways=%d, shots=%d)...\n", family, ways, shots)
	d.printf("[INFO] The model will be saved to: %s (when training ends)\n", savePath)

	seed := learners.Seed{Backend: family.Backend, Value: d.opts.Seed}
	if family.FixedClassCount > 0 {
		d.printf("[WARN] %s always trains with %d classes.\n", family, family.FixedClassCount)
	}
	learner, err := learners.New(d.runner, family, seed, ways, shots)
	if err != nil {
		return "", err
	}
	klog.V(1).Infof("launcher: training %s into %q (seed %s/%d)", family, savePath, seed.Backend, seed.Value)
	start := time.Now()
	if err = learner.Train(ctx, savePath, shots); err != nil {
		return "", err
	}
	d.printf("[INFO] Training finished in %s.\n", FormatDuration(time.Since(start)))
	return savePath, nil
}
