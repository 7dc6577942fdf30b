// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

// Package learners adapts the external per-family learner implementations to one interface.
//
// The learners themselves (training loops, losses, architectures) live outside this module, as
// Python classes. Each family has a binding that knows its constructor shape and the names of its
// train and evaluate methods; calls are turned into an Invocation and executed by a Runner.
package learners

import (
	"context"

	"github.com/fewshot/launcher/pkg/families"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Learner for one model family, constructed for a given number of classes.
type Learner interface {
	// Train a new model and save its weights to path.
	Train(ctx context.Context, path string, shots int) error

	// Evaluate the weights stored in path. extra is only used by families that take extra parameters.
	Evaluate(ctx context.Context, path string, shots int, extra *families.ExtraParams) error
}

// Runner executes invocations of external learners.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// binding describes how a family's learner class is constructed and called.
type binding struct {
	module, class string

	// classCountKwarg is the constructor keyword taking the number of classes.
	classCountKwarg string

	// shotsInCtor is set for learners taking the number of shots at construction instead of at call time.
	shotsInCtor bool

	trainMethod, evalMethod string

	// trainTakesShots is false for learners that don't take shots at all (e.g.: plain classifiers).
	trainTakesShots bool

	// innerStepsKwarg, if set, is the evaluation keyword for families.ExtraParams.InnerTestSteps.
	innerStepsKwarg string
}

var bindings = map[string]binding{
	families.ProtoNet: {
		module: "Models.ProtoNet.proto_train", class: "ProtoNet_learner", classCountKwarg: "ways",
		trainMethod: "train", evalMethod: "test", trainTakesShots: true,
	},
	families.CNNFineTune: {
		module: "Models.CNN_torch.cnn_ft_train", class: "CNN_FT_learner", classCountKwarg: "ways",
		trainMethod: "train_cnn", evalMethod: "test_cnn_ft", trainTakesShots: true,
	},
	families.CNNMMD: {
		module: "Models.CNN_torch.cnn_mmd_train", class: "CNN_MMD_learner", classCountKwarg: "ways",
		shotsInCtor: true, trainMethod: "train_cnn", evalMethod: "test_cnn",
	},
	families.MAML: {
		module: "Models.MAML.maml_train", class: "MAML_learner", classCountKwarg: "ways",
		trainMethod: "train", evalMethod: "test", trainTakesShots: true,
	},
	families.RelationNet: {
		module: "Models.RelationNet.relation_train", class: "RelationNet_learner", classCountKwarg: "ways",
		trainMethod: "train", evalMethod: "test", trainTakesShots: true,
	},
	families.Reptile: {
		module: "Models.MAML.reptile_train", class: "Reptile_learner", classCountKwarg: "ways",
		trainMethod: "train", evalMethod: "test", trainTakesShots: true, innerStepsKwarg: "inner_test_steps",
	},
	families.CNNTensorflow: {
		module: "Models.CNN.cnn_train", class: "CNN_learner", classCountKwarg: "num_classes",
		trainMethod: "train",
	},
}

// ErrNotSupported is returned when calling an operation the family's learner doesn't have.
var ErrNotSupported = errors.New("operation not supported by learner")

// New constructs the learner of the family for classCount classes. shots is only used by families
// taking the number of shots at construction time. Families with a fixed class count ignore classCount.
//
// All calls to the returned learner are executed by runner, after seeding the backend with seed.
func New(runner Runner, family families.Family, seed Seed, classCount, shots int) (Learner, error) {
	b, found := bindings[family.Name]
	if !found {
		return nil, errors.Wrapf(families.ErrUnknownFamily, "no learner for %q", family.Name)
	}
	if family.FixedClassCount > 0 {
		classCount = family.FixedClassCount
	}
	if seed.Backend != family.Backend {
		klog.Warningf("learners: %s runs on %s, but seed was given for %s", family, family.Backend, seed.Backend)
	}
	l := &pyLearner{
		runner:  runner,
		family:  family,
		binding: b,
		seed:    seed,
		ctorKwargs: []Kwarg{
			{Name: b.classCountKwarg, Value: classCount},
		},
	}
	if b.shotsInCtor {
		l.ctorKwargs = append(l.ctorKwargs, Kwarg{Name: "shots", Value: shots})
	}
	return l, nil
}

// pyLearner implements Learner for any binding.
type pyLearner struct {
	runner     Runner
	family     families.Family
	binding    binding
	seed       Seed
	ctorKwargs []Kwarg
}

func (l *pyLearner) invocation(method, path string, kwargs []Kwarg) Invocation {
	return Invocation{
		Seed:       l.seed,
		Module:     l.binding.module,
		Class:      l.binding.class,
		CtorKwargs: l.ctorKwargs,
		Method:     method,
		Path:       path,
		Kwargs:     kwargs,
	}
}

// Train implements Learner.
func (l *pyLearner) Train(ctx context.Context, path string, shots int) error {
	var kwargs []Kwarg
	if l.binding.trainTakesShots {
		kwargs = append(kwargs, Kwarg{Name: "shots", Value: shots})
	}
	inv := l.invocation(l.binding.trainMethod, path, kwargs)
	klog.V(1).Infof("learners: %s", inv)
	if err := l.runner.Run(ctx, inv); err != nil {
		return errors.WithMessagef(err, "training %s", l.family)
	}
	return nil
}

// Evaluate implements Learner.
func (l *pyLearner) Evaluate(ctx context.Context, path string, shots int, extra *families.ExtraParams) error {
	if l.binding.evalMethod == "" {
		return errors.Wrapf(ErrNotSupported, "%s has no evaluation", l.family)
	}
	var kwargs []Kwarg
	if !l.binding.shotsInCtor {
		kwargs = append(kwargs, Kwarg{Name: "shots", Value: shots})
	}
	if l.binding.innerStepsKwarg != "" {
		steps := families.DefaultInnerTestSteps
		if extra != nil && extra.InnerTestSteps > 0 {
			steps = extra.InnerTestSteps
		}
		kwargs = append(kwargs, Kwarg{Name: l.binding.innerStepsKwarg, Value: steps})
	}
	inv := l.invocation(l.binding.evalMethod, path, kwargs)
	klog.V(1).Infof("learners: %s", inv)
	if err := l.runner.Run(ctx, inv); err != nil {
		return errors.WithMessagef(err, "evaluating %s", l.family)
	}
	return nil
}
