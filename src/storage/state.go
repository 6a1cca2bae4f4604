package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/elee1766/genstudio/src/studio"
)

const studioStateColumns = `workspace, prompt, json(selection) as selection, json(slots) as slots, json(restored) as restored, batch_id, elapsed, error, updated_at`

// GetStudioState retrieves the saved state of a workspace
func GetStudioState(ctx context.Context, db sqlscan.Querier, workspace string) (*StudioState, error) {
	query := `SELECT ` + studioStateColumns + ` FROM studio_state WHERE workspace = ?`
	var s StudioState
	err := sqlscan.Get(ctx, db, &s, query, workspace)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return &s, nil
}

// ListStudioStates retrieves every saved state, most recently updated first
func ListStudioStates(ctx context.Context, db sqlscan.Querier) ([]StudioState, error) {
	query := `SELECT ` + studioStateColumns + ` FROM studio_state ORDER BY updated_at DESC, workspace`
	var states []StudioState
	if err := sqlscan.Select(ctx, db, &states, query); err != nil {
		return nil, err
	}
	return states, nil
}

// UpsertStudioState inserts or replaces the saved state of a workspace
func UpsertStudioState(ctx context.Context, db Execer, state *StudioState) error {
	if state.Workspace == "" {
		return fmt.Errorf("workspace is required")
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now()
	}

	query := `INSERT INTO studio_state (workspace, prompt, selection, slots, restored, batch_id, elapsed, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (workspace) DO UPDATE SET
			prompt = excluded.prompt,
			selection = excluded.selection,
			slots = excluded.slots,
			restored = excluded.restored,
			batch_id = excluded.batch_id,
			elapsed = excluded.elapsed,
			error = excluded.error,
			updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query,
		state.Workspace,
		state.Prompt,
		state.Selection,
		state.Slots,
		state.Restored,
		state.BatchID,
		state.Elapsed,
		state.Error,
		state.UpdatedAt,
	)
	return err
}

// DeleteStudioState removes the saved state of a workspace
func DeleteStudioState(ctx context.Context, db Execer, workspace string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM studio_state WHERE workspace = ?`, workspace)
	return err
}

// StateStore persists studio view state per workspace. The image list is
// never stored; it is always reloaded from the server.
type StateStore struct {
	db  *DB
	now func() time.Time
}

// NewStateStore creates a state store on an open database.
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db, now: time.Now}
}

// Load returns the saved state of workspace, or an empty state for it.
// Slots left unsettled by an interrupted run are marked failed.
func (s *StateStore) Load(ctx context.Context, workspace string) (studio.State, error) {
	row, err := GetStudioState(ctx, s.db.DB(), workspace)
	if err != nil {
		return studio.State{}, fmt.Errorf("failed to load studio state: %w", err)
	}
	if row == nil {
		return studio.State{Workspace: workspace}, nil
	}

	state := studio.State{
		Workspace: row.Workspace,
		Prompt:    row.Prompt,
		Selection: []string(row.Selection),
		Slots:     []studio.Slot(row.Slots),
		Restored:  row.Restored,
		BatchID:   row.BatchID,
		Elapsed:   row.Elapsed,
		Error:     row.Error,
	}
	if len(state.Selection) == 0 {
		state.Selection = nil
	}
	if len(state.Slots) == 0 {
		state.Slots = nil
	}
	if len(state.Restored) == 0 {
		state.Restored = nil
	}
	for i, slot := range state.Slots {
		if !slot.Status.Settled() {
			state.Slots[i].Status = studio.StatusError
			state.Slots[i].Error = "interrupted"
		}
	}
	return state, nil
}

// Save stores state under its workspace.
func (s *StateStore) Save(ctx context.Context, state studio.State) error {
	row := &StudioState{
		Workspace: state.Workspace,
		Prompt:    state.Prompt,
		Selection: state.Selection,
		Slots:     state.Slots,
		Restored:  state.Restored,
		BatchID:   state.BatchID,
		Elapsed:   state.Elapsed,
		Error:     state.Error,
		UpdatedAt: s.now(),
	}
	if err := UpsertStudioState(ctx, s.db.DB(), row); err != nil {
		return fmt.Errorf("failed to save studio state: %w", err)
	}
	return nil
}

// Clear removes the saved state of workspace.
func (s *StateStore) Clear(ctx context.Context, workspace string) error {
	if err := DeleteStudioState(ctx, s.db.DB(), workspace); err != nil {
		return fmt.Errorf("failed to clear studio state: %w", err)
	}
	return nil
}

// List returns every saved state row, most recent first.
func (s *StateStore) List(ctx context.Context) ([]StudioState, error) {
	states, err := ListStudioStates(ctx, s.db.DB())
	if err != nil {
		return nil, fmt.Errorf("failed to list studio state: %w", err)
	}
	return states, nil
}
