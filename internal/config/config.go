// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

// Package config holds the launcher configuration: defaults, optionally overridden by a TOML file,
// and then by command-line flags.
package config

import (
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fewshot/launcher/pkg/support/fsutil"
	"github.com/fewshot/launcher/pkg/weights"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// DefaultWeightsDir holds the shipped pretrained weights, relative to the working directory.
	DefaultWeightsDir = "Models weights"

	// DefaultSaveDir receives the weights of newly trained models.
	DefaultSaveDir = "Models_trained_by_me"

	// DefaultSeed used for every backend, to make training and evaluation reproducible.
	DefaultSeed = 2021
)

// Config of the launcher.
type Config struct {
	WeightsDir string `toml:"weights_dir"`
	SaveDir    string `toml:"save_dir"`

	// ProjectDir is where the learner modules live. Learners run with it as working directory.
	ProjectDir string `toml:"project_dir"`

	// Python interpreter used to run the learners.
	Python string `toml:"python"`

	Seed int `toml:"seed"`

	// Extension of the trained weight files.
	Extension string `toml:"extension"`

	// LearnerLogs sends learners output to log files under SaveDir/logs, instead of the terminal.
	LearnerLogs bool `toml:"learner_logs"`

	// DryRun prints the learner invocations instead of running them.
	DryRun bool `toml:"dry_run"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		WeightsDir: DefaultWeightsDir,
		SaveDir:    DefaultSaveDir,
		ProjectDir: ".",
		Python:     "python",
		Seed:       DefaultSeed,
		Extension:  weights.DefaultExtension,
	}
}

// Load the TOML file at path over the defaults. Unknown keys are logged and ignored.
func Load(path string) (Config, error) {
	cfg := Default()
	path, err := fsutil.ReplaceTildeInDir(path)
	if err != nil {
		return cfg, err
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read configuration from %q", path)
	}
	for _, key := range md.Undecoded() {
		klog.Warningf("config: unknown key %q in %q ignored", key.String(), path)
	}
	return cfg, nil
}

// Normalize expands "~" in directories and makes sure the extension starts with ".".
func (c *Config) Normalize() error {
	for _, dir := range []*string{&c.WeightsDir, &c.SaveDir, &c.ProjectDir} {
		expanded, err := fsutil.ReplaceTildeInDir(*dir)
		if err != nil {
			return err
		}
		*dir = expanded
	}
	if c.Extension != "" && !strings.HasPrefix(c.Extension, ".") {
		c.Extension = "." + c.Extension
	}
	return nil
}

// Validate returns an error if a required value is missing.
func (c *Config) Validate() error {
	switch {
	case c.WeightsDir == "":
		return errors.New("config: weights_dir is empty")
	case c.SaveDir == "":
		return errors.New("config: save_dir is empty")
	case c.ProjectDir == "":
		return errors.New("config: project_dir is empty")
	case c.Python == "" && !c.DryRun:
		return errors.New("config: python interpreter is empty")
	}
	return nil
}

// LogDir for learner output, or "" if learner logs are disabled.
func (c *Config) LogDir() string {
	if !c.LearnerLogs {
		return ""
	}
	return filepath.Join(c.SaveDir, "logs")
}
