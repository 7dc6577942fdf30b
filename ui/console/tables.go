// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

package console

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/fewshot/launcher/pkg/weights"
)

// styles bound to the console's renderer.
type styles struct {
	title, headerRow, oddRow, evenRow, redRow lipgloss.Style
}

func (c *Console) styles() styles {
	r := c.renderer
	return styles{
		title:     r.NewStyle().Bold(true).Padding(1, 4, 0, 4),
		headerRow: r.NewStyle().Reverse(true).Padding(0, 2, 0, 2).Align(lipgloss.Center),
		oddRow:    r.NewStyle().Faint(false).PaddingLeft(1).PaddingRight(1),
		evenRow:   r.NewStyle().Faint(true).PaddingLeft(1).PaddingRight(1),
		redRow: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
			Bold(true).
			PaddingLeft(1).PaddingRight(1),
	}
}

// Title prints a highlighted title.
func (c *Console) Title(format string, args ...any) {
	c.Println(c.styles().title.Render(fmt.Sprintf(format, args...)))
}

// tableWithReds is a table where selected rows are highlighted in red.
type tableWithReds struct {
	table *lgtable.Table
	count int
	reds  map[int]bool
}

func (t *tableWithReds) Row(isRed bool, row ...string) {
	if isRed {
		t.reds[t.count] = true
	}
	t.table.Row(row...)
	t.count++
}

func (c *Console) newTableWithReds(alignments ...lipgloss.Position) *tableWithReds {
	s := c.styles()
	t := &tableWithReds{reds: make(map[int]bool)}
	t.table = lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(c.renderer.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (style lipgloss.Style) {
			if row == lgtable.HeaderRow {
				return s.headerRow
			}
			switch {
			case t.reds[row]:
				style = s.redRow
			case row%2 == 0:
				style = s.oddRow
			default:
				style = s.evenRow
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			return style.Align(alignment)
		})
	return t
}

// PrintCatalog prints the family and its catalog as a table.
func (c *Console) PrintCatalog(catalog *weights.Catalog) {
	c.Title("%s", catalog.Family())
	c.Println(c.renderCatalog(catalog))
}

// renderCatalog renders the catalog entries, one row per selection key.
// Entries that can't be evaluated are highlighted.
func (c *Console) renderCatalog(catalog *weights.Catalog) string {
	withExtra := catalog.Family().HasInnerTestSteps
	header := []string{"#", "Weights", "Ways", "Shots"}
	if withExtra {
		header = append(header, "Inner steps")
	}
	header = append(header, "Size", "Source")
	t := c.newTableWithReds(lipgloss.Right, lipgloss.Left, lipgloss.Right, lipgloss.Right, lipgloss.Left)
	t.table.Headers(header...)
	for _, key := range catalog.Keys() {
		entry, _ := catalog.Get(key)
		row := []string{strconv.Itoa(key), entry.Filename, strconv.Itoa(entry.Ways), strconv.Itoa(entry.Shots)}
		if withExtra {
			extra := "-"
			if entry.Extra != nil {
				extra = strconv.Itoa(entry.Extra.InnerTestSteps)
				if entry.Extra.Assumed {
					extra += " (assumed)"
				}
			}
			row = append(row, extra)
		}
		size := "-"
		if entry.Size >= 0 {
			size = humanize.Bytes(uint64(entry.Size))
		}
		row = append(row, size, "["+entry.Source.String()+"]")
		t.Row(!entry.Testable(), row...)
	}
	return t.table.Render()
}
