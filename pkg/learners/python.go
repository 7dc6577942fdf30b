// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

package learners

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fewshot/launcher/pkg/support/fsutil"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// SpinnerPeriod is the time between spinner updates, when the learner output goes to a log file.
var SpinnerPeriod = 200 * time.Millisecond

// PythonRunner runs each invocation as a separate Python process, in the project directory where the
// learner modules live.
type PythonRunner struct {
	// Interpreter to execute, e.g.: "python" or "python3".
	Interpreter string

	// ProjectDir is the working directory of the learner, and is added to its Python path.
	ProjectDir string

	// LogDir, if set, receives the learner output (one file per invocation), and a spinner is displayed
	// in Stderr instead. If empty, the learner output is streamed to Stdout/Stderr.
	LogDir string

	Stdout, Stderr io.Writer
}

// NewPythonRunner returns a runner streaming the learners output to the process' stdout and stderr.
func NewPythonRunner(interpreter, projectDir string) *PythonRunner {
	return &PythonRunner{
		Interpreter: interpreter,
		ProjectDir:  projectDir,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

// String implements fmt.Stringer.
func (r *PythonRunner) String() string {
	return fmt.Sprintf("learners.PythonRunner(%q, %q)", r.Interpreter, r.ProjectDir)
}

// LogPath returns the file receiving the output of the invocation, if r.LogDir is set.
func (r *PythonRunner) LogPath(inv Invocation) string {
	if r.LogDir == "" {
		return ""
	}
	return filepath.Join(r.LogDir, fmt.Sprintf("%s.%s.log", filepath.Base(inv.Path), inv.Method))
}

// Run implements Runner. It blocks until the learner process exits.
//
// The learner runs in the project directory, so inv.Path, relative to the launcher's working
// directory, is made absolute before it is handed over.
func (r *PythonRunner) Run(ctx context.Context, inv Invocation) error {
	projectDir, err := filepath.Abs(r.ProjectDir)
	if err != nil {
		return errors.Wrapf(err, "%s: resolving project directory", r)
	}
	if !utf8.ValidString(inv.Path) {
		return errors.Errorf("%s: weights path %q is not valid UTF-8 and can't be passed to the learner", r, inv.Path)
	}
	if inv.Path, err = filepath.Abs(inv.Path); err != nil {
		return errors.Wrapf(err, "%s: resolving weights path", r)
	}
	cmd := exec.CommandContext(ctx, r.Interpreter, "-c", inv.Script(projectDir))
	cmd.Dir = projectDir
	klog.V(2).Infof("learners: running %s in %q:\n%s", r.Interpreter, projectDir, inv.Script(projectDir))

	logPath := r.LogPath(inv)
	if logPath == "" {
		cmd.Stdout, cmd.Stderr = r.Stdout, r.Stderr
		if err = cmd.Run(); err != nil {
			return errors.Wrapf(err, "%s: failed to run %s", r, inv)
		}
		return nil
	}

	if err = fsutil.EnsureDir(r.LogDir); err != nil {
		return err
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return errors.Wrapf(err, "%s: creating learner log", r)
	}
	defer func() { _ = logFile.Close() }()
	cmd.Stdout, cmd.Stderr = logFile, logFile
	if err = cmd.Start(); err != nil {
		return errors.Wrapf(err, "%s: failed to start %s", r, inv)
	}
	stopSpinner := r.startSpinner(fmt.Sprintf("%s.%s (output in %s)", inv.Class, inv.Method, logPath))
	err = cmd.Wait()
	stopSpinner()
	if err != nil {
		return errors.Wrapf(err, "%s: %s failed, see %s", r, inv, logPath)
	}
	return nil
}

// startSpinner displays a spinner until the returned function is called.
func (r *PythonRunner) startSpinner(description string) (stop func()) {
	w := r.Stderr
	if w == nil {
		w = io.Discard
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
	)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(SpinnerPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
		_ = bar.Finish()
		_, _ = fmt.Fprintln(w)
	}
}
