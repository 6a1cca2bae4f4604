package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/elee1766/genstudio/src/storage"
)

// StateCmd inspects the local studio state database
type StateCmd struct {
	List       StateListCmd       `cmd:"" default:"1" help:"List workspaces with saved state"`
	Clear      StateClearCmd      `cmd:"" help:"Forget the saved prompt, selection and results of a workspace"`
	Migrations StateMigrationsCmd `cmd:"" help:"Show database migration status"`
}

// StateListCmd lists saved states
type StateListCmd struct{}

func (c *StateListCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	states, err := s.States.List(ctx)
	if err != nil {
		return err
	}
	if states == nil {
		states = []storage.StudioState{}
	}
	return s.out.emit(states, func() string {
		if len(states) == 0 {
			return "no saved state\n"
		}
		var b strings.Builder
		for _, st := range states {
			fmt.Fprintf(&b, "%-20s %d selected, %d slots, updated %s\n",
				st.Workspace, len(st.Selection), len(st.Slots), st.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return b.String()
	})
}

// StateClearCmd clears saved state
type StateClearCmd struct{}

func (c *StateClearCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	name, err := s.ResolveWorkspace(ctx, cli.WS)
	if err != nil {
		return err
	}
	if err := s.States.Clear(ctx, name); err != nil {
		return err
	}
	return s.out.emit(map[string]string{"cleared": name}, func() string {
		return fmt.Sprintf("cleared saved state of %s\n", name)
	})
}

// StateMigrationsCmd shows migration status. Pending migrations are applied
// whenever the database is opened.
type StateMigrationsCmd struct{}

func (c *StateMigrationsCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	migrations, err := s.Store.Migrations(ctx)
	if err != nil {
		return err
	}
	return s.out.emit(migrations, func() string {
		var b strings.Builder
		fmt.Fprintf(&b, "database: %s\n", s.Store.Path())
		for _, m := range migrations {
			status := "pending"
			if m.AppliedAt != nil {
				status = "applied " + m.AppliedAt.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(&b, "  %s  %s\n", m.Name, status)
		}
		return b.String()
	})
}
