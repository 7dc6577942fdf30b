// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

// Package families lists the few-shot model families the launcher knows about, along with the
// weights shipped for each of them.
//
// The list is closed: menus enumerate exactly these families, and the learner bindings
// (see package learners) cover exactly these names.
package families

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
)

// Backend is the numeric backend a family's learner runs on. Each backend has its own seeding routine.
type Backend int

const (
	Torch Backend = iota
	TensorFlow
)

// String implements fmt.Stringer.
func (b Backend) String() string {
	switch b {
	case Torch:
		return "torch"
	case TensorFlow:
		return "tensorflow"
	default:
		return "unknown"
	}
}

// SeedRoutine is the name of the function (in the learners' utility module) that seeds the backend.
func (b Backend) SeedRoutine() string {
	switch b {
	case TensorFlow:
		return "seed_tensorflow"
	default:
		return "seed_torch"
	}
}

// DefaultInnerTestSteps is assumed for families with an inner-loop step parameter when it cannot
// be recovered, which is always the case for discovered files: the save file name doesn't encode it.
const DefaultInnerTestSteps = 30

// ExtraParams holds the family specific evaluation parameters.
type ExtraParams struct {
	// InnerTestSteps is the number of inner-loop adaptation steps at evaluation time.
	InnerTestSteps int

	// Assumed is set when InnerTestSteps was not recovered but filled with DefaultInnerTestSteps.
	Assumed bool
}

// ShippedWeight describes one of the pretrained weight files distributed with the project.
type ShippedWeight struct {
	Filename    string
	Ways, Shots int

	// InnerTestSteps is only set (> 0) for families that take it.
	InnerTestSteps int
}

// Family of few-shot models.
type Family struct {
	// Name is used in menus, in save file names and for discovery of trained files.
	Name string

	Backend Backend

	// Testable families are offered in the test menu.
	Testable bool

	// FixedClassCount, if > 0, overrides the number of ways requested by the user for training.
	FixedClassCount int

	// HasInnerTestSteps marks families whose evaluation takes an inner-loop step count.
	HasInnerTestSteps bool

	// Shipped weights, in the order they are presented.
	Shipped []ShippedWeight
}

// DefaultExtra returns the extra parameters assumed for a discovered weight file of the family, or nil.
func (f Family) DefaultExtra() *ExtraParams {
	if !f.HasInnerTestSteps {
		return nil
	}
	return &ExtraParams{InnerTestSteps: DefaultInnerTestSteps, Assumed: true}
}

// String implements fmt.Stringer.
func (f Family) String() string { return f.Name }

// Family names.
const (
	ProtoNet      = "ProtoNet"
	CNNFineTune   = "CNN-FT"
	CNNMMD        = "CNN-MMD"
	MAML          = "MAML"
	RelationNet   = "RelationNet"
	Reptile       = "Reptile"
	CNNTensorflow = "CNN (TensorFlow)"
)

var all = []Family{
	{
		Name: ProtoNet, Backend: Torch, Testable: true,
		Shipped: []ShippedWeight{
			{Filename: "ProtoNet_C30_ep50", Ways: 10, Shots: 5},
			{Filename: "ProtoNet_T2_ep62", Ways: 4, Shots: 5},
		},
	},
	{
		Name: CNNFineTune, Backend: Torch, Testable: true,
		Shipped: []ShippedWeight{
			{Filename: "cnn_ft_C30_ep50", Ways: 10, Shots: 5},
			{Filename: "cnn_ft_C30_ep72", Ways: 10, Shots: 5},
		},
	},
	{
		Name: CNNMMD, Backend: Torch, Testable: true,
		Shipped: []ShippedWeight{
			{Filename: "cnn_mmd_C30_ep50", Ways: 10, Shots: 5},
		},
	},
	{
		Name: MAML, Backend: Torch, Testable: true,
		Shipped: []ShippedWeight{
			{Filename: "MAML_C30_ep457", Ways: 10, Shots: 5},
			{Filename: "MAML_T2_ep414", Ways: 4, Shots: 5},
		},
	},
	{
		Name: RelationNet, Backend: Torch, Testable: true,
		Shipped: []ShippedWeight{
			{Filename: "RelationNet_C30_ep200", Ways: 10, Shots: 5},
			{Filename: "RelationNet_C30_ep252", Ways: 10, Shots: 5},
			{Filename: "RelationNet_T2_ep284", Ways: 4, Shots: 5},
			{Filename: "RelationNet_T2_ep394", Ways: 4, Shots: 5},
		},
	},
	{
		Name: Reptile, Backend: Torch, Testable: true, HasInnerTestSteps: true,
		Shipped: []ShippedWeight{
			{Filename: "Reptile_C30_ep730", Ways: 10, Shots: 5, InnerTestSteps: 30},
			{Filename: "Reptile_T2_ep702", Ways: 4, Shots: 1, InnerTestSteps: 30},
		},
	},
	{
		Name: CNNTensorflow, Backend: TensorFlow, FixedClassCount: 10,
	},
}

// ErrUnknownFamily is returned when looking up a name that is not one of the known families.
var ErrUnknownFamily = errors.New("unknown model family")

// All returns all families, in menu order.
func All() []Family {
	return append([]Family(nil), all...)
}

// Testable returns the families offered for evaluation, in menu order.
func Testable() []Family {
	var testable []Family
	for _, f := range all {
		if f.Testable {
			testable = append(testable, f)
		}
	}
	return testable
}

// ByName returns the family with exactly the given name.
func ByName(name string) (Family, error) {
	for _, f := range all {
		if f.Name == name {
			return f, nil
		}
	}
	return Family{}, errors.Wrapf(ErrUnknownFamily, "%q", name)
}

// MustByName is like ByName, but panics if the family doesn't exist.
func MustByName(name string) Family {
	f, err := ByName(name)
	if err != nil {
		exceptions.Panicf("families.MustByName(%q): %v", name, err)
	}
	return f
}

// Names of the given families.
func Names(list []Family) []string {
	names := make([]string, len(list))
	for ii, f := range list {
		names[ii] = f.Name
	}
	return names
}

// PrefixConflicts returns pairs of family names where the first is a case-insensitive prefix of the
// second. Discovery of trained weight files matches by prefix, so such pairs would be ambiguous.
func PrefixConflicts(list []Family) [][2]string {
	fold := cases.Fold()
	var conflicts [][2]string
	for ii, a := range list {
		for jj, b := range list {
			if ii == jj {
				continue
			}
			if strings.HasPrefix(fold.String(b.Name), fold.String(a.Name)) {
				conflicts = append(conflicts, [2]string{a.Name, b.Name})
			}
		}
	}
	return conflicts
}
