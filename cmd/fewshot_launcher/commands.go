// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fewshot/launcher/internal/config"
	"github.com/fewshot/launcher/pkg/families"
	"github.com/fewshot/launcher/pkg/launcher"
	"github.com/fewshot/launcher/pkg/learners"
	"github.com/fewshot/launcher/pkg/support/fsutil"
	"github.com/fewshot/launcher/ui/console"
	"github.com/janpfeifer/must"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

// app holds what the commands share, built by setup before any command runs.
type app struct {
	configPath string
	flags      config.Config

	stdin      io.Reader
	stdout     io.Writer
	dispatcher *launcher.Dispatcher
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithIO(os.Stdin, os.Stdout)
}

func newRootCmdWithIO(stdin io.Reader, stdout io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout}
	root := &cobra.Command{
		Use:   "fewshot_launcher",
		Short: "Test or train few-shot image classification models",
		Long: "Without a subcommand, fewshot_launcher opens the interactive menus.\n" +
			"Trained models are saved as {family}_ways{N}_shots{M}_{YYYYMMDD-HHMMSS}.pth in the save directory,\n" +
			"where they are found again for testing.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, isTerminal := a.stdout, false
			if f, ok := out.(*os.File); ok {
				isTerminal = isatty.IsTerminal(f.Fd())
			}
			c := console.New(a.stdin, out).WithClearScreen(isTerminal)
			return console.NewMenus(c, a.dispatcher).Run(cmd.Context())
		},
	}

	defaults := config.Default()
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "TOML configuration file. Flags given explicitly override its values.")
	pf.StringVar(&a.flags.WeightsDir, "weights_dir", defaults.WeightsDir, "Directory with the shipped pretrained weights.")
	pf.StringVar(&a.flags.SaveDir, "save_dir", defaults.SaveDir, "Directory where trained models are saved, and scanned for testing. Created if missing.")
	pf.StringVar(&a.flags.ProjectDir, "project_dir", defaults.ProjectDir, "Directory with the Python learner modules (Models/, my_utils/).")
	pf.StringVar(&a.flags.Python, "python", defaults.Python, "Python interpreter used to run the learners.")
	pf.IntVar(&a.flags.Seed, "seed", defaults.Seed, "Random seed of the learners' backend.")
	pf.StringVar(&a.flags.Extension, "extension", defaults.Extension, "File extension of trained models.")
	pf.BoolVar(&a.flags.LearnerLogs, "learner_logs", defaults.LearnerLogs, "Write the learners output to log files under <save_dir>/logs and display a spinner instead.")
	pf.BoolVar(&a.flags.DryRun, "dry_run", defaults.DryRun, "Print the learner invocations instead of running them.")
	pf.AddGoFlagSet(flag.CommandLine) // klog flags.

	root.AddCommand(newListCmd(a), newTestCmd(a), newTrainCmd(a))
	return root
}

// setup loads the configuration, creates the save directory and the dispatcher.
func (a *app) setup(flags *pflag.FlagSet) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "weights_dir":
			cfg.WeightsDir = a.flags.WeightsDir
		case "save_dir":
			cfg.SaveDir = a.flags.SaveDir
		case "project_dir":
			cfg.ProjectDir = a.flags.ProjectDir
		case "python":
			cfg.Python = a.flags.Python
		case "seed":
			cfg.Seed = a.flags.Seed
		case "extension":
			cfg.Extension = a.flags.Extension
		case "learner_logs":
			cfg.LearnerLogs = a.flags.LearnerLogs
		case "dry_run":
			cfg.DryRun = a.flags.DryRun
		}
	})
	if err := cfg.Normalize(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := fsutil.EnsureDir(cfg.SaveDir); err != nil {
		return err
	}
	for _, pair := range families.PrefixConflicts(families.All()) {
		klog.Warningf("family %q is a prefix of %q: trained weights of the latter are listed for both", pair[0], pair[1])
	}
	if exists, err := fsutil.FileExists(cfg.WeightsDir); err == nil && !exists {
		klog.Warningf("pretrained weights directory %q not found", cfg.WeightsDir)
	}

	var runner learners.Runner
	if cfg.DryRun {
		runner = &learners.Recorder{Out: a.stdout}
	} else {
		pyRunner := learners.NewPythonRunner(cfg.Python, cfg.ProjectDir)
		pyRunner.Stdout = a.stdout
		pyRunner.LogDir = cfg.LogDir()
		runner = pyRunner
	}
	a.dispatcher = launcher.New(launcher.Options{
		WeightsDir: cfg.WeightsDir,
		SaveDir:    cfg.SaveDir,
		Seed:       cfg.Seed,
		Extension:  cfg.Extension,
	}, runner, a.stdout)
	klog.V(1).Infof("configuration: %+v", cfg)
	return nil
}

func familyArg(name string) (families.Family, error) {
	f, err := families.ByName(name)
	if err != nil {
		return f, errors.WithMessagef(err, "valid families are %s", strings.Join(families.Names(families.All()), ", "))
	}
	return f, nil
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [family...]",
		Short: "List the weights available for testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			list := families.Testable()
			if len(args) > 0 {
				list = nil
				for _, name := range args {
					f, err := familyArg(name)
					if err != nil {
						return err
					}
					list = append(list, f)
				}
			}
			c := console.New(a.stdin, a.stdout)
			for _, f := range list {
				catalog, err := a.dispatcher.Catalog(f)
				if err != nil {
					return err
				}
				c.PrintCatalog(catalog)
			}
			return nil
		},
	}
}

func newTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test <family> <key>",
		Short: "Test the weights with the given key, as listed by the list command",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := familyArg(args[0])
			if err != nil {
				return err
			}
			key, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Errorf("invalid key %q, it must be a number", args[1])
			}
			catalog, err := a.dispatcher.Catalog(f)
			if err != nil {
				return err
			}
			entry, found := catalog.Get(key)
			if !found {
				return errors.Errorf("no weights with key %d for %s, valid keys are 1 to %d", key, f, catalog.Len())
			}
			return a.dispatcher.Evaluate(cmd.Context(), f, entry)
		},
	}
}

func newTrainCmd(a *app) *cobra.Command {
	var ways, shots int
	cmd := &cobra.Command{
		Use:   "train <family>",
		Short: "Train a new model, saved in the save directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := familyArg(args[0])
			if err != nil {
				return err
			}
			_, err = a.dispatcher.Train(cmd.Context(), f, ways, shots)
			return err
		},
	}
	cmd.Flags().IntVar(&ways, "ways", 0, "Number of classes (required).")
	cmd.Flags().IntVar(&shots, "shots", 0, "Number of samples per class (required).")
	must.M(cmd.MarkFlagRequired("ways"))
	must.M(cmd.MarkFlagRequired("shots"))
	return cmd
}
