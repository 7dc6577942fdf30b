// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

package learners

import (
	"context"
	"fmt"
	"io"
)

// Recorder is a Runner that records invocations instead of executing them.
// Used for dry runs and tests.
type Recorder struct {
	Invocations []Invocation

	// Err is returned by every Run, if set.
	Err error

	// Out, if set, receives one line per invocation.
	Out io.Writer
}

// Run implements Runner.
func (r *Recorder) Run(_ context.Context, inv Invocation) error {
	r.Invocations = append(r.Invocations, inv)
	if r.Out != nil {
		_, _ = fmt.Fprintf(r.Out, "[dry-run] %s(%d); %s\n", inv.Seed.Backend.SeedRoutine(), inv.Seed.Value, inv)
	}
	return r.Err
}
