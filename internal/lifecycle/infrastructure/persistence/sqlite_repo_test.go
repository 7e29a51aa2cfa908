package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/taskflow-io/taskflow/internal/shared/infrastructure/database"
	_ "github.com/taskflow-io/taskflow/internal/shared/infrastructure/database/sqlite"
	"github.com/taskflow-io/taskflow/internal/shared/infrastructure/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func setupSQLite(t *testing.T) (database.Connection, *SQLiteRepository) {
	t.Helper()

	ctx := context.Background()
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, migrations.Run(ctx, conn))
	return conn, NewSQLiteRepository(conn)
}

func seedHierarchy(t *testing.T, repo *SQLiteRepository) (*domain.Project, *domain.Phase, []*domain.Task) {
	t.Helper()
	ctx := context.Background()
	day := 24 * time.Hour

	schedule, err := domain.NewSchedule(repoNow.Add(-day), repoNow.Add(10*day))
	require.NoError(t, err)
	project, err := domain.NewProject("rollout", schedule)
	require.NoError(t, err)
	require.NoError(t, repo.SaveProject(ctx, project))

	phaseSchedule, err := domain.NewSchedule(repoNow.Add(-day), repoNow.Add(5*day))
	require.NoError(t, err)
	phase, err := domain.NewPhase(project.ID(), "prepare", phaseSchedule)
	require.NoError(t, err)
	require.NoError(t, repo.SavePhase(ctx, phase))

	var tasks []*domain.Task
	for _, name := range []string{"pack", "ship"} {
		taskSchedule, err := domain.NewSchedule(repoNow.Add(-day), repoNow.Add(2*day))
		require.NoError(t, err)
		task, err := domain.NewTask(phase.ID(), name, taskSchedule)
		require.NoError(t, err)
		require.NoError(t, repo.SaveTask(ctx, task))
		tasks = append(tasks, task)
	}

	return project, phase, tasks
}

func TestSQLiteRepository_LoadSubtree(t *testing.T) {
	_, repo := setupSQLite(t)
	ctx := context.Background()

	project, phase, tasks := seedHierarchy(t, repo)

	subtree, err := repo.LoadSubtree(ctx, project.ID())
	require.NoError(t, err)

	assert.Equal(t, project.ID(), subtree.Project.ID())
	assert.Equal(t, "rollout", subtree.Project.Name())
	assert.Equal(t, domain.StatusPending, subtree.Project.Status())

	require.Len(t, subtree.Phases, 1)
	assert.Equal(t, phase.ID(), subtree.Phases[0].ID())
	assert.Equal(t, project.ID(), subtree.Phases[0].ProjectID())

	require.Len(t, subtree.Tasks, 2)
	wantIDs := []uuid.UUID{tasks[0].ID(), tasks[1].ID()}
	var gotIDs []uuid.UUID
	for _, task := range subtree.Tasks {
		gotIDs = append(gotIDs, task.ID())
		assert.Equal(t, phase.ID(), task.PhaseID())
		assert.False(t, task.Schedule().HasActualCompletion())
	}
	assert.ElementsMatch(t, wantIDs, gotIDs)
}

func TestSQLiteRepository_LoadSubtree_Missing(t *testing.T) {
	_, repo := setupSQLite(t)

	_, err := repo.LoadSubtree(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestSQLiteRepository_ListProjectIDs(t *testing.T) {
	_, repo := setupSQLite(t)
	ctx := context.Background()

	ids, err := repo.ListProjectIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	project, _, _ := seedHierarchy(t, repo)

	ids, err = repo.ListProjectIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{project.ID()}, ids)
}

func TestSQLiteRepository_ProjectIDOfPhase(t *testing.T) {
	_, repo := setupSQLite(t)
	ctx := context.Background()

	project, phase, _ := seedHierarchy(t, repo)

	got, err := repo.ProjectIDOfPhase(ctx, phase.ID())
	require.NoError(t, err)
	assert.Equal(t, project.ID(), got)

	_, err = repo.ProjectIDOfPhase(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrPhaseNotFound)
}

func TestSQLiteRepository_CommitStatusChanges(t *testing.T) {
	_, repo := setupSQLite(t)
	ctx := context.Background()

	project, phase, tasks := seedHierarchy(t, repo)
	actual := repoNow.Add(-time.Hour)

	changes := []domain.StatusChange{
		{
			ItemID:           tasks[0].ID(),
			Kind:             domain.KindTask,
			From:             domain.StatusPending,
			To:               domain.StatusCompleted,
			ActualCompletion: &actual,
		},
		{
			ItemID: phase.ID(),
			Kind:   domain.KindPhase,
			From:   domain.StatusPending,
			To:     domain.StatusOnGoing,
		},
	}
	require.NoError(t, repo.CommitStatusChanges(ctx, project.ID(), changes))

	subtree, err := repo.LoadSubtree(ctx, project.ID())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOnGoing, subtree.Phases[0].Status())

	var reloaded *domain.Task
	for _, task := range subtree.Tasks {
		if task.ID() == tasks[0].ID() {
			reloaded = task
		}
	}
	require.NotNil(t, reloaded)
	assert.Equal(t, domain.StatusCompleted, reloaded.Status())
	require.True(t, reloaded.Schedule().HasActualCompletion())
	assert.WithinDuration(t, actual, *reloaded.Schedule().ActualCompletion(), time.Second)

	// A cancellation change clears the stored completion instant.
	require.NoError(t, repo.CommitStatusChanges(ctx, project.ID(), []domain.StatusChange{
		{
			ItemID: tasks[0].ID(),
			Kind:   domain.KindTask,
			From:   domain.StatusCompleted,
			To:     domain.StatusCancelled,
		},
	}))

	subtree, err = repo.LoadSubtree(ctx, project.ID())
	require.NoError(t, err)
	for _, task := range subtree.Tasks {
		if task.ID() == tasks[0].ID() {
			assert.Equal(t, domain.StatusCancelled, task.Status())
			assert.False(t, task.Schedule().HasActualCompletion())
		}
	}
}

func TestSQLiteRepository_UnassignWorkers(t *testing.T) {
	conn, repo := setupSQLite(t)
	ctx := context.Background()

	project, _, tasks := seedHierarchy(t, repo)

	lead := domain.NewProjectAssignment(uuid.New(), project.ID())
	require.NoError(t, repo.SaveAssignment(ctx, lead))
	for _, task := range tasks {
		require.NoError(t, repo.SaveAssignment(ctx, domain.NewTaskAssignment(uuid.New(), project.ID(), task.ID())))
	}

	activeCount := func() int {
		var n int
		err := conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM worker_assignments WHERE project_id = ? AND state = ?`,
			project.ID().String(), string(domain.AssignmentActive),
		).Scan(&n)
		require.NoError(t, err)
		return n
	}
	require.Equal(t, 3, activeCount())

	// Task scope releases only the named task's assignment.
	require.NoError(t, repo.UnassignWorkers(ctx, domain.UnassignScope{
		TaskIDs: []uuid.UUID{tasks[0].ID()},
	}))
	assert.Equal(t, 2, activeCount())

	// Project scope releases everything that is left.
	projectID := project.ID()
	require.NoError(t, repo.UnassignWorkers(ctx, domain.UnassignScope{ProjectID: &projectID}))
	assert.Equal(t, 0, activeCount())

	// Empty scope is a no-op.
	require.NoError(t, repo.UnassignWorkers(ctx, domain.UnassignScope{}))
}

func TestSQLiteRepository_SummarizeStatuses(t *testing.T) {
	_, repo := setupSQLite(t)
	ctx := context.Background()

	project, phase, tasks := seedHierarchy(t, repo)

	require.NoError(t, repo.CommitStatusChanges(ctx, project.ID(), []domain.StatusChange{
		{ItemID: project.ID(), Kind: domain.KindProject, From: domain.StatusPending, To: domain.StatusOnGoing},
		{ItemID: phase.ID(), Kind: domain.KindPhase, From: domain.StatusPending, To: domain.StatusOnGoing},
		{ItemID: tasks[0].ID(), Kind: domain.KindTask, From: domain.StatusPending, To: domain.StatusDelayed},
	}))

	summary, err := repo.SummarizeStatuses(ctx, project.ID())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOnGoing, summary.ProjectStatus)
	assert.Equal(t, map[domain.WorkStatus]int{domain.StatusOnGoing: 1}, summary.PhaseCounts)
	assert.Equal(t, map[domain.WorkStatus]int{
		domain.StatusDelayed: 1,
		domain.StatusPending: 1,
	}, summary.TaskCounts)
}

func TestSQLiteRepository_SaveIsUpsert(t *testing.T) {
	_, repo := setupSQLite(t)
	ctx := context.Background()

	project, _, _ := seedHierarchy(t, repo)

	require.NoError(t, project.MarkOnGoing())
	require.NoError(t, repo.SaveProject(ctx, project))

	subtree, err := repo.LoadSubtree(ctx, project.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnGoing, subtree.Project.Status())

	ids, err := repo.ListProjectIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}
