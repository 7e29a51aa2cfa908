package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/taskflow-io/taskflow/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLiteRepository implements domain.Repository on SQLite for the local
// single-user mode.
type SQLiteRepository struct {
	conn database.Connection
}

// NewSQLiteRepository creates a SQLite lifecycle repository.
func NewSQLiteRepository(conn database.Connection) *SQLiteRepository {
	return &SQLiteRepository{conn: conn}
}

func (r *SQLiteRepository) LoadSubtree(ctx context.Context, projectID uuid.UUID) (*domain.Subtree, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	project, err := r.loadProject(ctx, exec, projectID)
	if err != nil {
		return nil, err
	}

	phases, err := r.loadPhases(ctx, exec, projectID)
	if err != nil {
		return nil, fmt.Errorf("load phases of project %s: %w", projectID, err)
	}

	tasks, err := r.loadTasks(ctx, exec, projectID)
	if err != nil {
		return nil, fmt.Errorf("load tasks of project %s: %w", projectID, err)
	}

	return &domain.Subtree{Project: project, Phases: phases, Tasks: tasks}, nil
}

func (r *SQLiteRepository) loadProject(ctx context.Context, exec database.Executor, projectID uuid.UUID) (*domain.Project, error) {
	query := `
		SELECT id, name, status, start_date, completion_date, actual_completion,
		       created_at, updated_at
		FROM projects
		WHERE id = ?
	`
	var (
		id                uuid.UUID
		name, status      string
		start, completion time.Time
		actual            *time.Time
		createdAt         time.Time
		updatedAt         time.Time
	)
	err := exec.QueryRow(ctx, query, projectID.String()).Scan(
		&id, &name, &status, &start, &completion, &actual, &createdAt, &updatedAt,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}

	schedule := domain.RehydrateSchedule(start, completion, actual)
	return domain.RehydrateProject(id, name, domain.WorkStatus(status), schedule, createdAt, updatedAt), nil
}

func (r *SQLiteRepository) loadPhases(ctx context.Context, exec database.Executor, projectID uuid.UUID) ([]*domain.Phase, error) {
	query := `
		SELECT id, project_id, name, status, start_date, completion_date,
		       actual_completion, created_at, updated_at
		FROM phases
		WHERE project_id = ?
		ORDER BY start_date, id
	`
	rows, err := exec.Query(ctx, query, projectID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phases []*domain.Phase
	for rows.Next() {
		var (
			id, parentID      uuid.UUID
			name, status      string
			start, completion time.Time
			actual            *time.Time
			createdAt         time.Time
			updatedAt         time.Time
		)
		if err := rows.Scan(&id, &parentID, &name, &status, &start, &completion, &actual, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		schedule := domain.RehydrateSchedule(start, completion, actual)
		phases = append(phases, domain.RehydratePhase(id, parentID, name, domain.WorkStatus(status), schedule, createdAt, updatedAt))
	}
	return phases, rows.Err()
}

func (r *SQLiteRepository) loadTasks(ctx context.Context, exec database.Executor, projectID uuid.UUID) ([]*domain.Task, error) {
	query := `
		SELECT t.id, t.phase_id, t.name, t.status, t.start_date, t.completion_date,
		       t.actual_completion, t.created_at, t.updated_at
		FROM tasks t
		JOIN phases p ON p.id = t.phase_id
		WHERE p.project_id = ?
		ORDER BY t.start_date, t.id
	`
	rows, err := exec.Query(ctx, query, projectID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		var (
			id, phaseID       uuid.UUID
			name, status      string
			start, completion time.Time
			actual            *time.Time
			createdAt         time.Time
			updatedAt         time.Time
		)
		if err := rows.Scan(&id, &phaseID, &name, &status, &start, &completion, &actual, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		schedule := domain.RehydrateSchedule(start, completion, actual)
		tasks = append(tasks, domain.RehydrateTask(id, phaseID, name, domain.WorkStatus(status), schedule, createdAt, updatedAt))
	}
	return tasks, rows.Err()
}

func (r *SQLiteRepository) ListProjectIDs(ctx context.Context) ([]uuid.UUID, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	rows, err := exec.Query(ctx, `SELECT id FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) ProjectIDOfPhase(ctx context.Context, phaseID uuid.UUID) (uuid.UUID, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	var projectID uuid.UUID
	err := exec.QueryRow(ctx, `SELECT project_id FROM phases WHERE id = ?`, phaseID.String()).Scan(&projectID)
	if err != nil {
		if database.IsNoRows(err) {
			return uuid.Nil, domain.ErrPhaseNotFound
		}
		return uuid.Nil, fmt.Errorf("resolve project of phase %s: %w", phaseID, err)
	}
	return projectID, nil
}

func (r *SQLiteRepository) CommitStatusChanges(ctx context.Context, projectID uuid.UUID, changes []domain.StatusChange) error {
	if len(changes) == 0 {
		return nil
	}
	if database.TxFromContext(ctx) != nil {
		return r.applyStatusChanges(ctx, changes)
	}

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ctx = database.WithTx(ctx, tx, false)
	if err := r.applyStatusChanges(ctx, changes); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *SQLiteRepository) applyStatusChanges(ctx context.Context, changes []domain.StatusChange) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	now := time.Now().UTC()

	for _, change := range changes {
		table, err := tableForKind(change.Kind)
		if err != nil {
			return err
		}
		query := fmt.Sprintf(
			`UPDATE %s SET status = ?, actual_completion = ?, updated_at = ? WHERE id = ?`,
			table,
		)
		if _, err := exec.Exec(ctx, query, string(change.To), change.ActualCompletion, now, change.ItemID.String()); err != nil {
			return fmt.Errorf("update %s %s: %w", change.Kind, change.ItemID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) UnassignWorkers(ctx context.Context, scope domain.UnassignScope) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	now := time.Now().UTC()

	switch {
	case scope.ProjectID != nil:
		query := `
			UPDATE worker_assignments
			SET state = ?, updated_at = ?
			WHERE project_id = ? AND state = ?
		`
		_, err := exec.Exec(ctx, query,
			string(domain.AssignmentReleased), now, scope.ProjectID.String(), string(domain.AssignmentActive))
		if err != nil {
			return fmt.Errorf("unassign workers of project %s: %w", *scope.ProjectID, err)
		}
		return nil

	case len(scope.TaskIDs) > 0:
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(scope.TaskIDs)), ",")
		query := fmt.Sprintf(`
			UPDATE worker_assignments
			SET state = ?, updated_at = ?
			WHERE task_id IN (%s) AND state = ?
		`, placeholders)

		args := make([]any, 0, len(scope.TaskIDs)+3)
		args = append(args, string(domain.AssignmentReleased), now)
		for _, taskID := range scope.TaskIDs {
			args = append(args, taskID.String())
		}
		args = append(args, string(domain.AssignmentActive))

		if _, err := exec.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("unassign workers of tasks: %w", err)
		}
		return nil

	default:
		return nil
	}
}

func (r *SQLiteRepository) SummarizeStatuses(ctx context.Context, projectID uuid.UUID) (*domain.StatusSummary, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	project, err := r.loadProject(ctx, exec, projectID)
	if err != nil {
		return nil, err
	}

	summary := &domain.StatusSummary{
		ProjectID:     projectID,
		ProjectStatus: project.Status(),
		PhaseCounts:   make(map[domain.WorkStatus]int),
		TaskCounts:    make(map[domain.WorkStatus]int),
	}

	phaseQuery := `SELECT status, COUNT(*) FROM phases WHERE project_id = ? GROUP BY status`
	if err := countStatuses(ctx, exec, phaseQuery, projectID, summary.PhaseCounts); err != nil {
		return nil, fmt.Errorf("summarize phases of project %s: %w", projectID, err)
	}

	taskQuery := `
		SELECT t.status, COUNT(*)
		FROM tasks t
		JOIN phases p ON p.id = t.phase_id
		WHERE p.project_id = ?
		GROUP BY t.status
	`
	if err := countStatuses(ctx, exec, taskQuery, projectID, summary.TaskCounts); err != nil {
		return nil, fmt.Errorf("summarize tasks of project %s: %w", projectID, err)
	}

	return summary, nil
}

func (r *SQLiteRepository) SaveProject(ctx context.Context, project *domain.Project) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	query := `
		INSERT INTO projects (id, name, status, start_date, completion_date, actual_completion, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			start_date = excluded.start_date,
			completion_date = excluded.completion_date,
			actual_completion = excluded.actual_completion,
			updated_at = excluded.updated_at
	`
	_, err := exec.Exec(ctx, query,
		project.ID().String(), project.Name(), string(project.Status()),
		project.Schedule().Start(), project.Schedule().Completion(), project.Schedule().ActualCompletion(),
		project.CreatedAt(), project.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save project %s: %w", project.ID(), err)
	}
	return nil
}

func (r *SQLiteRepository) SavePhase(ctx context.Context, phase *domain.Phase) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	query := `
		INSERT INTO phases (id, project_id, name, status, start_date, completion_date, actual_completion, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			start_date = excluded.start_date,
			completion_date = excluded.completion_date,
			actual_completion = excluded.actual_completion,
			updated_at = excluded.updated_at
	`
	_, err := exec.Exec(ctx, query,
		phase.ID().String(), phase.ProjectID().String(), phase.Name(), string(phase.Status()),
		phase.Schedule().Start(), phase.Schedule().Completion(), phase.Schedule().ActualCompletion(),
		phase.CreatedAt(), phase.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save phase %s: %w", phase.ID(), err)
	}
	return nil
}

func (r *SQLiteRepository) SaveTask(ctx context.Context, task *domain.Task) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	query := `
		INSERT INTO tasks (id, phase_id, name, status, start_date, completion_date, actual_completion, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			start_date = excluded.start_date,
			completion_date = excluded.completion_date,
			actual_completion = excluded.actual_completion,
			updated_at = excluded.updated_at
	`
	_, err := exec.Exec(ctx, query,
		task.ID().String(), task.PhaseID().String(), task.Name(), string(task.Status()),
		task.Schedule().Start(), task.Schedule().Completion(), task.Schedule().ActualCompletion(),
		task.CreatedAt(), task.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID(), err)
	}
	return nil
}

func (r *SQLiteRepository) SaveAssignment(ctx context.Context, assignment *domain.WorkerAssignment) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	var taskID *string
	if assignment.TaskID() != nil {
		s := assignment.TaskID().String()
		taskID = &s
	}

	query := `
		INSERT INTO worker_assignments (id, worker_id, project_id, task_id, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at
	`
	_, err := exec.Exec(ctx, query,
		assignment.ID().String(), assignment.WorkerID().String(), assignment.ProjectID().String(), taskID,
		string(assignment.State()), assignment.CreatedAt(), assignment.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save assignment %s: %w", assignment.ID(), err)
	}
	return nil
}
