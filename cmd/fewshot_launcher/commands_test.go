// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fewshot/launcher/pkg/launcher"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmdWithIO(strings.NewReader(input), &out)
	root.SetArgs(args)
	root.SetOut(&out)
	err := root.Execute()
	return out.String(), err
}

func TestTrainDryRun(t *testing.T) {
	saveDir := filepath.Join(t.TempDir(), "trained")
	out, err := runCmd(t, "", "--dry_run", "--save_dir", saveDir, "train", "ProtoNet", "--ways", "10", "--shots", "5")
	require.NoError(t, err)
	assert.Regexp(t, `\[dry-run\] seed_torch\(2021\); ProtoNet_learner\(ways=10\)\.train\(".*ProtoNet_ways10_shots5_\d{8}-\d{6}\.pth", shots=5\)`, out)

	// Save directory is created at startup, but nothing is written by a dry run.
	entries, err := os.ReadDir(saveDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = runCmd(t, "", "--dry_run", "--save_dir", saveDir, "train", "ProtoNet", "--ways", "10")
	require.Error(t, err, "--shots is required")

	_, err = runCmd(t, "", "--dry_run", "--save_dir", saveDir, "train", "ResNet", "--ways", "10", "--shots", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid families are ProtoNet")
}

func TestListAndTest(t *testing.T) {
	saveDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(saveDir, "MAML_final.pth"), []byte("w"), 0o600))
	out, err := runCmd(t, "", "--dry_run", "--save_dir", saveDir, "list", "MAML")
	require.NoError(t, err)
	assert.Contains(t, out, "MAML_C30_ep457")
	assert.Contains(t, out, "MAML_final.pth")

	out, err = runCmd(t, "", "--dry_run", "--save_dir", saveDir, "--seed", "7", "test", "MAML", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `seed_torch(7); MAML_learner(ways=4).test(`)
	assert.Contains(t, out, `MAML_T2_ep414", shots=5)`)

	_, err = runCmd(t, "", "--dry_run", "--save_dir", saveDir, "test", "MAML", "3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, launcher.ErrUntestable))

	_, err = runCmd(t, "", "--dry_run", "--save_dir", saveDir, "test", "MAML", "4")
	require.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "launcher.toml")
	content := "save_dir = " + `"` + filepath.ToSlash(filepath.Join(dir, "runs")) + `"` + "\nseed = 11\ndry_run = true\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	out, err := runCmd(t, "", "--config", configPath, "train", "CNN (TensorFlow)", "--ways", "4", "--shots", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "[WARN] CNN (TensorFlow) always trains with 10 classes.")
	assert.Contains(t, out, "seed_tensorflow(11); CNN_learner(num_classes=10).train(")

	// Explicit flags win over the file.
	out, err = runCmd(t, "", "--config", configPath, "--seed", "3", "train", "MAML", "--ways", "4", "--shots", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "seed_torch(3)")
}

func TestInteractive(t *testing.T) {
	out, err := runCmd(t, "2\n6\n5\n1\n\n8\n3\n", "--dry_run", "--save_dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "Reptile_learner(ways=5).train(")
	assert.Contains(t, out, "Bye.")
}

func TestSaveDirIsAFile(t *testing.T) {
	saveDir := filepath.Join(t.TempDir(), "trained")
	require.NoError(t, os.WriteFile(saveDir, []byte("not a directory"), 0o600))
	var err error
	require.NotPanics(t, func() {
		_, err = runCmd(t, "", "--dry_run", "--save_dir", saveDir, "list", "MAML")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "normal file")
}
