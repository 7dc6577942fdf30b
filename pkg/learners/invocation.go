// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

package learners

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fewshot/launcher/pkg/families"
)

// SeedModule is the Python module holding the seeding routines of each backend.
const SeedModule = "my_utils.init_utils"

// Seed for the numeric backend of a learner.
type Seed struct {
	Backend families.Backend
	Value   int
}

// Kwarg is a keyword argument of a Python call. Values are either int or string.
type Kwarg struct {
	Name  string
	Value any
}

// Invocation fully describes one call into an external learner: seed the backend, construct the
// learner object, call one of its methods with the weight path.
type Invocation struct {
	Seed Seed

	// Module and Class of the learner.
	Module, Class string
	CtorKwargs    []Kwarg

	// Method called on the learner with Path as its only positional argument.
	Method string
	Path   string
	Kwargs []Kwarg
}

// String implements fmt.Stringer, with the Python-like calls.
func (inv Invocation) String() string {
	return fmt.Sprintf("%s(%s).%s(%s)", inv.Class, formatKwargs(inv.CtorKwargs),
		inv.Method, formatArgs(inv.Path, inv.Kwargs))
}

// Script renders the Python program executing the invocation. projectDir is added to the Python path,
// so the learner modules can be imported.
func (inv Invocation) Script(projectDir string) string {
	var sb strings.Builder
	w := func(format string, args ...any) {
		_, _ = fmt.Fprintf(&sb, format, args...)
		sb.WriteByte('\n')
	}
	w("import sys")
	w("sys.path.insert(0, %s)", pyLiteral(projectDir))
	routine := inv.Seed.Backend.SeedRoutine()
	w("from %s import %s", SeedModule, routine)
	w("%s(%d)", routine, inv.Seed.Value)
	w("from %s import %s", inv.Module, inv.Class)
	w("net = %s(%s)", inv.Class, formatKwargs(inv.CtorKwargs))
	w("net.%s(%s)", inv.Method, formatArgs(inv.Path, inv.Kwargs))
	return sb.String()
}

func formatArgs(path string, kwargs []Kwarg) string {
	parts := []string{pyLiteral(path)}
	if len(kwargs) > 0 {
		parts = append(parts, formatKwargs(kwargs))
	}
	return strings.Join(parts, ", ")
}

func formatKwargs(kwargs []Kwarg) string {
	parts := make([]string, 0, len(kwargs))
	for _, kw := range kwargs {
		parts = append(parts, kw.Name+"="+pyLiteral(kw.Value))
	}
	return strings.Join(parts, ", ")
}

// pyLiteral formats ints and strings as Python literals. Go's quoted string escapes are a
// subset of Python's, for valid UTF-8 strings only: invalid bytes would be read back by Python as
// code points, so PythonRunner rejects such paths.
func pyLiteral(v any) string {
	switch v := v.(type) {
	case int:
		return strconv.Itoa(v)
	case string:
		return strconv.Quote(v)
	default:
		return strconv.Quote(fmt.Sprint(v))
	}
}
