package ui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/loopauth/internal/models"
)

// AttemptTable renders attempts as a bordered table, newest row first as given.
func AttemptTable(attempts []*models.Attempt) string {
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, []string{
			strconv.Itoa(a.Sequence()),
			a.CreatedAt().Local().Format(time.DateTime),
			string(a.Mode()),
			port(a.Port()),
			string(a.Outcome()),
			duration(a),
			a.ErrorMessage(),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.help).
		Headers("#", "STARTED", "MODE", "PORT", "OUTCOME", "TOOK", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.ok.Padding(0, 1)
			}
			if col == 4 && row >= 0 && row < len(attempts) {
				return outcomeStyle(attempts[row].Outcome()).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

func outcomeStyle(o models.Outcome) lipgloss.Style {
	switch o {
	case models.OutcomeSucceeded:
		return styles.ok
	case models.OutcomePending:
		return styles.help
	case models.OutcomeTimedOut, models.OutcomeAbandoned:
		return styles.warn
	default:
		return styles.err
	}
}

func port(p int) string {
	if p == 0 {
		return "-"
	}
	return strconv.Itoa(p)
}

func duration(a *models.Attempt) string {
	if a.FinishedAt() == nil {
		return "-"
	}
	return a.Duration().Round(time.Millisecond).String()
}
