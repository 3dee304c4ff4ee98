package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/loopauth/internal/models"
	"github.com/desertthunder/loopauth/internal/shared"
	"github.com/desertthunder/loopauth/internal/ui"
	"github.com/urfave/cli/v3"
)

// AttemptView is the JSON form of a recorded attempt.
type AttemptView struct {
	ID         string     `json:"id"`
	Sequence   int        `json:"sequence"`
	Mode       string     `json:"mode"`
	Port       int        `json:"port,omitempty"`
	Outcome    string     `json:"outcome"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func newAttemptView(a *models.Attempt) AttemptView {
	return AttemptView{
		ID:         a.ID(),
		Sequence:   a.Sequence(),
		Mode:       string(a.Mode()),
		Port:       a.Port(),
		Outcome:    string(a.Outcome()),
		Error:      a.ErrorMessage(),
		StartedAt:  a.CreatedAt(),
		FinishedAt: a.FinishedAt(),
	}
}

// History lists recorded sign-in attempts, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{"limit": cmd.Int("limit")}
	if outcome := cmd.String("outcome"); outcome != "" {
		parsed, err := models.ParseOutcome(outcome)
		if err != nil {
			return err
		}
		criteria["outcome"] = parsed
	}

	repo, done, err := r.openAttempts()
	if err != nil {
		return err
	}
	defer done()

	attempts, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]AttemptView, 0, len(attempts))
		for _, a := range attempts {
			views = append(views, newAttemptView(a))
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(attempts) == 0 {
		return r.writePlain("No sign-in attempts recorded.\n")
	}
	return r.writePlain("%s\n", ui.AttemptTable(attempts))
}

// HistoryForget deletes one recorded attempt.
func (r *Runner) HistoryForget(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: attempt id", shared.ErrMissingArgument)
	}

	repo, done, err := r.openAttempts()
	if err != nil {
		return err
	}
	defer done()

	if err := repo.Delete(id); err != nil {
		return err
	}
	return r.writePlain("✓ Forgot attempt %s\n", id)
}
