package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/xtrobe/internal/progress"
)

var (
	_ list.Item = moduleItem{}
)

// moduleItem wraps [progress.ModuleProgress] to implement [list.Item].
type moduleItem struct {
	row progress.ModuleProgress
}

func (i moduleItem) FilterValue() string { return i.row.Title }
func (i moduleItem) Title() string {
	if i.row.Done {
		return "★ " + i.row.Title
	}
	return i.row.Title
}
func (i moduleItem) Description() string {
	if i.row.Total == 0 {
		return "no submodules yet"
	}
	return fmt.Sprintf("%d%% • %d/%d submodules", i.row.Percent, i.row.Completed, i.row.Total)
}

func moduleItems(o *progress.Overview) []list.Item {
	items := make([]list.Item, len(o.Modules))
	for i, row := range o.Modules {
		items[i] = moduleItem{row: row}
	}
	return items
}
