package prompt

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/state"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	ageStyle    = dimStyle
)

// ProfilesTable renders the installed profiles for `udot show`, one
// row per profile: name, parent, link count, and when it was last
// updated.
func ProfilesTable(profiles []*model.ProfileState) string {
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		parent := "-"
		if p.Parent != nil {
			parent = *p.Parent
		}
		rows = append(rows, []string{
			p.Name,
			parent,
			fmt.Sprintf("%d", len(p.Links)),
			p.Updated.Format(time.RFC3339),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("PROFILE", "PARENT", "LINKS", "UPDATED").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

// LinksTable renders one profile's managed links for `udot find`/`udot
// show <profile>`: path, target, and whether it's tracked as secure or
// hard.
func LinksTable(links []model.LinkDescriptor) string {
	rows := make([][]string, 0, len(links))
	for _, l := range links {
		target := "-"
		switch {
		case l.Hard:
			target = "(hard link)"
		case l.Target != nil:
			target = *l.Target
		}
		flags := ""
		if l.Secure {
			flags += "secure "
		}
		if l.Hard {
			flags += "hard"
		}
		rows = append(rows, []string{l.Path, target, l.Owner, flags})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("PATH", "TARGET", "OWNER", "FLAGS").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

// HistoryTable renders the snapshot history for `udot history`: oldest
// first, each snapshot's timestamp and how long ago it was taken.
func HistoryTable(snapshots []state.Snapshot, now time.Time) string {
	rows := make([][]string, 0, len(snapshots))
	for _, s := range snapshots {
		taken := time.Unix(s.Timestamp, 0)
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.Timestamp),
			taken.Format(time.RFC3339),
			ageStyle.Render(now.Sub(taken).Round(time.Second).String() + " ago"),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("SNAPSHOT", "TAKEN", "AGE").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}
