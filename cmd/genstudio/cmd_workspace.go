package main

import (
	"context"
	"fmt"
)

// WorkspaceCmd manages workspaces
type WorkspaceCmd struct {
	List   WorkspaceListCmd   `cmd:"" default:"1" help:"List workspaces"`
	Create WorkspaceCreateCmd `cmd:"" help:"Create a workspace"`
	Delete WorkspaceDeleteCmd `cmd:"" aliases:"rm" help:"Delete a workspace and all of its images"`
	Use    WorkspaceUseCmd    `cmd:"" aliases:"switch" help:"Make a workspace current"`
}

// WorkspaceListCmd lists workspaces
type WorkspaceListCmd struct{}

func (c *WorkspaceListCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	workspaces, err := s.Workspaces.List(ctx)
	if err != nil {
		return err
	}
	return s.out.emit(workspaces, func() string {
		return s.out.renderer.RenderWorkspaces(workspaces)
	})
}

// WorkspaceCreateCmd creates a workspace
type WorkspaceCreateCmd struct {
	Name string `arg:"" help:"Workspace name"`
	Use  bool   `help:"Make the new workspace current"`
}

func (c *WorkspaceCreateCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	ws, err := s.Workspaces.Create(ctx, c.Name)
	if err != nil {
		return err
	}
	if c.Use {
		if ws, err = s.Workspaces.SetCurrent(ctx, ws.Name); err != nil {
			return err
		}
	}
	return s.out.emit(ws, func() string {
		return fmt.Sprintf("created workspace %s\n", ws.Name)
	})
}

// WorkspaceDeleteCmd deletes a workspace
type WorkspaceDeleteCmd struct {
	Name string `arg:"" help:"Workspace name"`
}

func (c *WorkspaceDeleteCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Workspaces.Delete(ctx, c.Name); err != nil {
		return err
	}
	if err := s.States.Clear(ctx, c.Name); err != nil {
		s.Logger.Warn("failed to clear saved state", "workspace", c.Name, "error", err)
	}
	return s.out.emit(map[string]string{"deleted": c.Name}, func() string {
		return fmt.Sprintf("deleted workspace %s\n", c.Name)
	})
}

// WorkspaceUseCmd switches the current workspace, resetting its view state
type WorkspaceUseCmd struct {
	Name string `arg:"" help:"Workspace name"`
}

func (c *WorkspaceUseCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.studio(ctx, nil)
	if err != nil {
		return err
	}
	err = st.SwitchWorkspace(ctx, c.Name)
	s.save(ctx, st)
	if err != nil {
		return err
	}

	state := st.Snapshot()
	return s.out.emit(state, func() string {
		return s.out.renderer.RenderGallery(state)
	})
}
