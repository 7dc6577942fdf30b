// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

package console

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fewshot/launcher/pkg/families"
	"github.com/fewshot/launcher/pkg/launcher"
	"github.com/fewshot/launcher/pkg/learners"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickOption(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("x\n9\n2\n"), &out)
	choice, err := c.PickOption(optionKeys(3))
	require.NoError(t, err)
	assert.Equal(t, 2, choice)
	assert.Equal(t, 3, strings.Count(out.String(), ">>> Enter your choice"))
	assert.Equal(t, 1, strings.Count(out.String(), "Invalid input, please enter a number."))
	assert.Equal(t, 1, strings.Count(out.String(), "Invalid choice"))

	// Surrounding spaces and a missing final newline are fine.
	c = New(strings.NewReader("  3 "), &out)
	choice, err = c.PickOption(optionKeys(3))
	require.NoError(t, err)
	assert.Equal(t, 3, choice)

	// End of input.
	c = New(strings.NewReader("5\n"), &out)
	_, err = c.PickOption(optionKeys(3))
	assert.Equal(t, io.EOF, err)
}

func TestReadInt(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("12\nten\n"), &out)
	v, err := c.ReadInt("ways: ")
	require.NoError(t, err)
	assert.Equal(t, 12, v)
	_, err = c.ReadInt("shots: ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotANumber))
	assert.Equal(t, "ways: shots: ", out.String())
}

type menusFixture struct {
	saveDir string
	rec     *learners.Recorder
	out     bytes.Buffer
}

func newFixture(t *testing.T) *menusFixture {
	return &menusFixture{saveDir: t.TempDir(), rec: &learners.Recorder{}}
}

func (f *menusFixture) run(input string) error {
	d := launcher.New(launcher.Options{WeightsDir: "Models weights", SaveDir: f.saveDir, Seed: 2021}, f.rec, &f.out)
	d.Now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local) }
	c := New(strings.NewReader(input), &f.out)
	return NewMenus(c, d).Run(context.Background())
}

func TestMenusExit(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run("3\n"))
	assert.Contains(t, f.out.String(), "Bye.")
	assert.Contains(t, f.out.String(), "1. Test pretrained models")
	assert.Empty(t, f.rec.Invocations)

	// Input ending is a clean exit too.
	f = newFixture(t)
	require.NoError(t, f.run(""))
}

func TestMenusTest(t *testing.T) {
	f := newFixture(t)
	// Main: test -> ProtoNet -> weights #1 -> Enter -> back -> back -> exit.
	require.NoError(t, f.run("1\n1\n1\n\n3\n7\n3\n"))
	require.Len(t, f.rec.Invocations, 1)
	inv := f.rec.Invocations[0]
	assert.Equal(t, "ProtoNet_learner", inv.Class)
	assert.Equal(t, "test", inv.Method)
	assert.Equal(t, filepath.Join("Models weights", "ProtoNet_C30_ep50"), inv.Path)

	out := f.out.String()
	assert.Contains(t, out, "ProtoNet_T2_ep62")
	assert.Contains(t, out, "[shipped]")
	assert.Contains(t, out, "3. Back")
	assert.Contains(t, out, "7. Back to main menu")
	assert.NotContains(t, out, "CNN (TensorFlow)", "the TensorFlow CNN is not testable")
}

func TestMenusTestDiscovered(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"Reptile_custom.pth", "reptile_ways4_shots1_20240101-000000.pth"} {
		require.NoError(t, os.WriteFile(filepath.Join(f.saveDir, name), []byte("w"), 0o600))
	}
	// Reptile -> #3 (untestable) -> Enter -> #4 -> Enter -> back (5) -> back -> exit.
	require.NoError(t, f.run("1\n6\n3\n\n4\n\n5\n7\n3\n"))
	require.Len(t, f.rec.Invocations, 1, "the untestable entry must not reach the learner")
	inv := f.rec.Invocations[0]
	assert.Equal(t, filepath.Join(f.saveDir, "reptile_ways4_shots1_20240101-000000.pth"), inv.Path)
	assert.Equal(t, []learners.Kwarg{{Name: "shots", Value: 1}, {Name: "inner_test_steps", Value: 30}}, inv.Kwargs)

	out := f.out.String()
	assert.Contains(t, out, "'waysX' and 'shotsY'")
	assert.Contains(t, out, "30 (assumed)")
	assert.Contains(t, out, "[trained]")
}

func TestMenusTrain(t *testing.T) {
	f := newFixture(t)
	// Main: train -> ProtoNet -> ways 10, shots 5 -> Enter -> back -> exit.
	require.NoError(t, f.run("2\n1\n10\n5\n\n8\n3\n"))
	require.Len(t, f.rec.Invocations, 1)
	inv := f.rec.Invocations[0]
	assert.Equal(t, "train", inv.Method)
	assert.Equal(t, filepath.Join(f.saveDir, "ProtoNet_ways10_shots5_20240506-070809.pth"), inv.Path)
	assert.Contains(t, f.out.String(), "7. CNN (TensorFlow)")
}

func TestMenusTrainInvalidNumbers(t *testing.T) {
	f := newFixture(t)
	// Non-number ways aborts to the train menu; then non-positive shots too.
	require.NoError(t, f.run("2\n4\nabc\n\n4\n3\n0\n\n8\n3\n"))
	assert.Empty(t, f.rec.Invocations)
	assert.Equal(t, 1, strings.Count(f.out.String(), "Invalid input, please enter a number."))
	assert.Contains(t, f.out.String(), "must be positive")
}

func TestMenusLearnerFailure(t *testing.T) {
	f := newFixture(t)
	f.rec.Err = errors.New("checkpoint is corrupted")
	err := f.run("1\n4\n1\n\n3\n7\n3\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint is corrupted")
	assert.Len(t, f.rec.Invocations, 1)
}

func TestRenderCatalog(t *testing.T) {
	f := newFixture(t)
	d := launcher.New(launcher.Options{WeightsDir: "Models weights", SaveDir: f.saveDir}, f.rec, &f.out)
	catalog, err := d.Catalog(families.MustByName(families.RelationNet))
	require.NoError(t, err)
	c := New(strings.NewReader(""), &f.out)
	rendered := c.renderCatalog(catalog)
	for _, name := range []string{"RelationNet_C30_ep200", "RelationNet_T2_ep394", "Weights", "Source"} {
		assert.Contains(t, rendered, name)
	}
	assert.NotContains(t, rendered, "Inner steps")
}
