// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/fewshot/launcher/pkg/families"
	"github.com/fewshot/launcher/pkg/launcher"
	"github.com/fewshot/launcher/pkg/support/sets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Menus is the interactive menu tree: main menu, test and train family menus, and the weights menu.
// Menus hold no state across visits: the weights menu is rebuilt from the file system each time.
type Menus struct {
	console    *Console
	dispatcher *launcher.Dispatcher
}

// NewMenus creates the menus, running the selected flows with dispatcher.
func NewMenus(console *Console, dispatcher *launcher.Dispatcher) *Menus {
	return &Menus{console: console, dispatcher: dispatcher}
}

// optionKeys returns the set {1, ..., n}.
func optionKeys(n int) sets.Set[int] {
	keys := sets.Make[int](n)
	for key := 1; key <= n; key++ {
		keys.Insert(key)
	}
	return keys
}

func absPath(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

// Run the main menu until the user exits or the input ends.
// Errors from the learners are not handled here and are returned.
func (m *Menus) Run(ctx context.Context) error {
	c := m.console
	opts := m.dispatcher.Options()
	for {
		c.Clear()
		c.Title("Model launcher")
		if wd, err := os.Getwd(); err == nil {
			c.Printf("Project root:         %s\n", wd)
		}
		c.Printf("Pretrained weights:   %s\n", absPath(opts.WeightsDir))
		c.Printf("Trained models:       %s\n", absPath(opts.SaveDir))
		c.Println()
		c.Println("1. Test pretrained models")
		c.Println("2. Train a new model")
		c.Println("3. Exit")

		choice, err := c.PickOption(optionKeys(3))
		if err == nil {
			switch choice {
			case 1:
				err = m.testMenu(ctx)
			case 2:
				err = m.trainMenu(ctx)
			case 3:
				c.Println("Bye.")
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				klog.V(1).Info("console: input ended, exiting")
				return nil
			}
			return err
		}
	}
}

// familyMenu lists the families plus a "back" option, and returns the one selected, or false for "back".
func (m *Menus) familyMenu(title string, list []families.Family) (families.Family, bool, error) {
	c := m.console
	c.Clear()
	c.Title("%s", title)
	for ii, f := range list {
		c.Printf("%d. %s\n", ii+1, f.Name)
	}
	back := len(list) + 1
	c.Printf("%d. Back to main menu\n", back)
	choice, err := c.PickOption(optionKeys(back))
	if err != nil || choice == back {
		return families.Family{}, false, err
	}
	return list[choice-1], true, nil
}

func (m *Menus) testMenu(ctx context.Context) error {
	for {
		family, ok, err := m.familyMenu("Test a model: select the model type", families.Testable())
		if err != nil || !ok {
			return err
		}
		if err = m.weightsMenu(ctx, family); err != nil {
			return err
		}
	}
}

// weightsMenu lists the weights of the family, and evaluates the selected ones until the user goes back.
func (m *Menus) weightsMenu(ctx context.Context, family families.Family) error {
	c := m.console
	opts := m.dispatcher.Options()
	for {
		catalog, err := m.dispatcher.Catalog(family)
		if err != nil {
			return err
		}
		c.Clear()
		c.Title("%s: select the weights", family)
		c.Printf("Scanned folders: %q and %q\n", opts.WeightsDir, opts.SaveDir)
		c.Println(c.renderCatalog(catalog))
		back := catalog.Len() + 1
		c.Printf("%d. Back\n", back)

		choice, err := c.PickOption(optionKeys(back))
		if err != nil {
			return err
		}
		if choice == back {
			return nil
		}
		entry, _ := catalog.Get(choice)
		c.Clear()
		err = m.dispatcher.Evaluate(ctx, family, entry)
		if err != nil && !errors.Is(err, launcher.ErrUntestable) {
			return err
		}
		if err = c.Pause(); err != nil {
			return err
		}
	}
}

func (m *Menus) trainMenu(ctx context.Context) error {
	for {
		family, ok, err := m.familyMenu("Train a new model", families.All())
		if err != nil || !ok {
			return err
		}
		if err = m.trainFlow(ctx, family); err != nil {
			return err
		}
	}
}

// trainFlow reads ways and shots and trains. Invalid numbers abort back to the menu, without retrying.
func (m *Menus) trainFlow(ctx context.Context, family families.Family) error {
	c := m.console
	c.Clear()
	c.Printf("--- Train a new model: %s ---\n", family)
	ways, err := c.ReadInt("Enter the number of classes (ways, e.g. 10 or 4): ")
	var shots int
	if err == nil {
		shots, err = c.ReadInt("Enter the number of samples per class (shots, e.g. 5 or 1): ")
	}
	switch {
	case errors.Is(err, ErrNotANumber):
		c.Println("Invalid input, please enter a number.")
		return c.Pause()
	case err != nil:
		return err
	}

	_, err = m.dispatcher.Train(ctx, family, ways, shots)
	if errors.Is(err, launcher.ErrInvalidRequest) {
		c.Println("Invalid input, ways and shots must be positive numbers.")
		return c.Pause()
	}
	if err != nil {
		return err
	}
	return c.Pause()
}
