// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

// Package weights builds the catalog of weight files available for a model family: the weights
// shipped with the project plus whatever the user trained and saved.
//
// Trained weights are discovered by scanning the save directory for files whose name starts with
// the family name; ways and shots are recovered from the name (see NewSaveName and ParseName).
//
// Example:
//
//	catalog, err := weights.Build(families.MustByName("ProtoNet")).
//		ShippedDir("Models weights").SaveDir("Models_trained_by_me").Done()
//	if err != nil { … }
//	for _, key := range catalog.Keys() {
//		entry, _ := catalog.Get(key)
//		fmt.Printf("%d. %s\n", key, entry)
//	}
package weights

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fewshot/launcher/pkg/families"
	"github.com/fewshot/launcher/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Source tells where a weight file comes from.
type Source int

const (
	// Shipped weights are distributed with the project.
	Shipped Source = iota

	// Trained weights were discovered in the save directory.
	Trained
)

// String implements fmt.Stringer.
func (s Source) String() string {
	if s == Shipped {
		return "shipped"
	}
	return "trained"
}

// Entry describes one weight file.
type Entry struct {
	Filename string

	// Ways and Shots the weights were trained for. Zero means they could not be recovered from
	// the file name, and the entry can't be evaluated.
	Ways, Shots int

	// Extra family specific parameters, nil if the family doesn't take any.
	Extra *families.ExtraParams

	// Dir holding the file, and where it comes from.
	Dir    string
	Source Source

	// Size in bytes, or -1 if unknown. Only informative.
	Size int64
}

// Path to the weight file.
func (e Entry) Path() string {
	return filepath.Join(e.Dir, e.Filename)
}

// Testable returns whether ways and shots are known.
func (e Entry) Testable() bool {
	return e.Ways > 0 && e.Shots > 0
}

// String implements fmt.Stringer.
func (e Entry) String() string {
	return fmt.Sprintf("%s (ways=%d, shots=%d) [%s]", e.Filename, e.Ways, e.Shots, e.Source)
}

// Catalog is an ordered list of weight entries, addressed by contiguous keys starting at 1.
// Shipped entries come first, in table order, followed by trained entries sorted by file name.
//
// A Catalog is never modified once built: rebuild it to pick up new files.
type Catalog struct {
	family  families.Family
	entries []Entry
}

// Family the catalog was built for.
func (c *Catalog) Family() families.Family { return c.family }

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Keys returns the selection keys, 1 to Len().
func (c *Catalog) Keys() []int {
	keys := make([]int, len(c.entries))
	for ii := range keys {
		keys[ii] = ii + 1
	}
	return keys
}

// Get returns the entry for the given key.
func (c *Catalog) Get(key int) (Entry, bool) {
	if key < 1 || key > len(c.entries) {
		return Entry{}, false
	}
	return c.entries[key-1], true
}

// Entries returns a copy of the entries in key order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Config for building a Catalog. Create it with Build, set the directories and call Done.
type Config struct {
	family     families.Family
	shippedDir string
	saveDir    string
	err        error
}

// Build starts the configuration of the catalog for the given family.
func Build(family families.Family) *Config {
	return &Config{family: family}
}

func (c *Config) setError(err error) {
	if c.err == nil {
		c.err = err
	}
}

// ShippedDir sets the directory holding the shipped weights. Files there are not checked for existence.
func (c *Config) ShippedDir(dir string) *Config {
	dir, err := fsutil.ReplaceTildeInDir(dir)
	if err != nil {
		c.setError(err)
		return c
	}
	c.shippedDir = dir
	return c
}

// SaveDir sets the directory scanned for trained weights. If it is empty or doesn't exist,
// no trained weights are listed.
func (c *Config) SaveDir(dir string) *Config {
	dir, err := fsutil.ReplaceTildeInDir(dir)
	if err != nil {
		c.setError(err)
		return c
	}
	c.saveDir = dir
	return c
}

// Done builds the Catalog. It only fails on unexpected file system errors: a missing save
// directory or file names without ways/shots are not errors.
func (c *Config) Done() (*Catalog, error) {
	if c.err != nil {
		return nil, c.err
	}
	catalog := &Catalog{family: c.family}
	for _, w := range c.family.Shipped {
		entry := Entry{
			Filename: w.Filename,
			Ways:     w.Ways,
			Shots:    w.Shots,
			Dir:      c.shippedDir,
			Source:   Shipped,
		}
		if c.family.HasInnerTestSteps {
			entry.Extra = &families.ExtraParams{InnerTestSteps: w.InnerTestSteps}
		}
		entry.Size = fsutil.FileSize(entry.Path())
		catalog.entries = append(catalog.entries, entry)
	}

	names, err := c.listTrained()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		ways, shots := ParseName(name)
		entry := Entry{
			Filename: name,
			Ways:     ways,
			Shots:    shots,
			Extra:    c.family.DefaultExtra(),
			Dir:      c.saveDir,
			Source:   Trained,
		}
		entry.Size = fsutil.FileSize(entry.Path())
		if !entry.Testable() {
			klog.V(1).Infof("weights: %q has no ways/shots in its name", name)
		}
		catalog.entries = append(catalog.entries, entry)
	}
	klog.V(1).Infof("weights: catalog for %s has %d shipped and %d trained entries",
		c.family, len(c.family.Shipped), len(names))
	return catalog, nil
}

// listTrained returns the sorted names of the files in the save directory matching the family.
func (c *Config) listTrained() ([]string, error) {
	if c.saveDir == "" {
		return nil, nil
	}
	dirEntries, err := os.ReadDir(c.saveDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "listing trained weights in %q", c.saveDir)
	}
	var names []string
	for _, dirEntry := range dirEntries {
		// Directories are listed too: some backends save models as a directory.
		if MatchesFamily(c.family, dirEntry.Name()) {
			names = append(names, dirEntry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
