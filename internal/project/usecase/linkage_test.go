package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pmchat-backend/internal/project/domain"
	"pmchat-backend/internal/project/repository"
	taskdomain "pmchat-backend/internal/task/domain"
	"pmchat-backend/pkg/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store      docstore.Store
	projects   repository.ProjectRepository
	aggregator *ProgressAggregator
	linker     *LinkageUpdater
}

func newFixture(t *testing.T, store docstore.Store) *fixture {
	t.Helper()
	if store == nil {
		store = docstore.NewMemoryStore()
	}
	projects := repository.NewProjectRepository(store)
	aggregator := NewProgressAggregator(projects)
	return &fixture{
		store:      store,
		projects:   projects,
		aggregator: aggregator,
		linker:     NewLinkageUpdater(projects, aggregator),
	}
}

func (f *fixture) seedProject(t *testing.T, id string, stageIDs ...string) {
	t.Helper()
	p := &domain.Project{
		ID:        id,
		Name:      "Project " + id,
		UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, sid := range stageIDs {
		p.Stages = append(p.Stages, domain.Stage{ID: sid, Name: "Stage " + sid})
	}
	require.NoError(t, f.projects.Create(context.Background(), p))
}

// seedTask stores a task document placed at r
func (f *fixture) seedTask(t *testing.T, r taskdomain.StageRef, status taskdomain.TaskStatus) {
	t.Helper()
	require.NoError(t, f.store.Set(context.Background(), taskdomain.Collection, r.TaskID, taskdomain.Task{
		ID:        r.TaskID,
		Title:     "task " + r.TaskID,
		Status:    status,
		ProjectID: r.ProjectID,
		StageID:   r.StageID,
	}))
}

func (f *fixture) placeTask(t *testing.T, id, projectID, stageID string) {
	t.Helper()
	require.NoError(t, f.store.Update(context.Background(), taskdomain.Collection, id, map[string]interface{}{
		"projectId": projectID,
		"stageId":   stageID,
	}))
}

func (f *fixture) project(t *testing.T, id string) *domain.Project {
	t.Helper()
	p, err := f.projects.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func ref(project, stage, task string) taskdomain.StageRef {
	return taskdomain.StageRef{ProjectID: project, StageID: stage, TaskID: task}
}

func TestUpdateProjectStageLinksTask(t *testing.T) {
	f := newFixture(t, nil)
	f.seedProject(t, "P1", "S1", "S2")
	f.seedTask(t, ref("P1", "S1", "T1"), taskdomain.TaskStatusTodo)

	result := f.linker.UpdateProjectStage(context.Background(), ref("P1", "S1", "T1"))
	assert.Equal(t, taskdomain.LinkageLinked, result.Outcome)
	assert.NoError(t, result.Err)

	p := f.project(t, "P1")
	assert.Equal(t, []string{"T1"}, p.TaskIDs)
	assert.Equal(t, []string{"T1"}, p.Stages[0].TaskIDs)
	assert.Empty(t, p.Stages[1].TaskIDs)
}

func TestUpdateProjectStageIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	f.seedProject(t, "P1", "S1")
	f.seedTask(t, ref("P1", "S1", "T1"), taskdomain.TaskStatusTodo)
	ctx := context.Background()

	first := f.linker.UpdateProjectStage(ctx, ref("P1", "S1", "T1"))
	second := f.linker.UpdateProjectStage(ctx, ref("P1", "S1", "T1"))
	assert.Equal(t, taskdomain.LinkageLinked, first.Outcome)
	assert.Equal(t, taskdomain.LinkageAlreadyLinked, second.Outcome)

	p := f.project(t, "P1")
	assert.Equal(t, []string{"T1"}, p.TaskIDs)
	assert.Equal(t, []string{"T1"}, p.Stages[0].TaskIDs)
}

func TestUpdateProjectStageUnassigned(t *testing.T) {
	f := newFixture(t, nil)

	for _, r := range []taskdomain.StageRef{
		ref("", "S1", "T1"),
		ref("P1", "", "T1"),
		ref("P1", "S1", ""),
	} {
		result := f.linker.UpdateProjectStage(context.Background(), r)
		assert.Equal(t, taskdomain.LinkageUnassigned, result.Outcome)
	}
}

func TestUpdateProjectStageMissingProject(t *testing.T) {
	f := newFixture(t, nil)

	result := f.linker.UpdateProjectStage(context.Background(), ref("ghost", "S1", "T1"))
	assert.Equal(t, taskdomain.LinkageProjectNotFound, result.Outcome)
	assert.NoError(t, result.Err)
	assert.False(t, result.Retryable())
}

func TestUpdateProjectStageUnknownStageWritesNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.seedProject(t, "P1", "S1")
	f.seedTask(t, ref("P1", "S9", "T1"), taskdomain.TaskStatusTodo)
	before := f.project(t, "P1")

	result := f.linker.UpdateProjectStage(context.Background(), ref("P1", "S9", "T1"))
	assert.Equal(t, taskdomain.LinkageStageNotFound, result.Outcome)
	assert.NoError(t, result.Err)

	after := f.project(t, "P1")
	assert.Empty(t, after.TaskIDs)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt), "project must not be rewritten")
}

func TestUpdateProjectStageMovesBetweenStages(t *testing.T) {
	f := newFixture(t, nil)
	f.seedProject(t, "P1", "S1", "S2")
	f.seedTask(t, ref("P1", "S1", "T1"), taskdomain.TaskStatusTodo)
	ctx := context.Background()

	require.Equal(t, taskdomain.LinkageLinked, f.linker.UpdateProjectStage(ctx, ref("P1", "S1", "T1")).Outcome)
	f.placeTask(t, "T1", "P1", "S2")
	require.Equal(t, taskdomain.LinkageLinked, f.linker.UpdateProjectStage(ctx, ref("P1", "S2", "T1")).Outcome)

	p := f.project(t, "P1")
	assert.Equal(t, []string{"T1"}, p.TaskIDs)
	assert.Empty(t, p.Stages[0].TaskIDs)
	assert.Equal(t, []string{"T1"}, p.Stages[1].TaskIDs)
}

func TestUpdateProjectStageFollowsStoredTask(t *testing.T) {
	f := newFixture(t, nil)
	f.seedProject(t, "P1", "S1", "S2")
	f.seedTask(t, ref("P1", "S2", "T1"), taskdomain.TaskStatusTodo)
	ctx := context.Background()

	// A caller holding an older copy of the task still names S1
	result := f.linker.UpdateProjectStage(ctx, ref("P1", "S1", "T1"))
	assert.Equal(t, taskdomain.LinkageLinked, result.Outcome)
	assert.Equal(t, "S2", result.Ref.StageID)

	p := f.project(t, "P1")
	assert.Empty(t, p.Stages[0].TaskIDs)
	assert.Equal(t, []string{"T1"}, p.Stages[1].TaskIDs)

	// The task has since left the project
	f.placeTask(t, "T1", "P2", "X1")
	result = f.linker.UpdateProjectStage(ctx, ref("P1", "S2", "T1"))
	assert.Equal(t, taskdomain.LinkageUnlinked, result.Outcome)
	assert.Empty(t, f.project(t, "P1").TaskIDs)
}

func TestUpdateProjectStageDeletedTask(t *testing.T) {
	f := newFixture(t, nil)
	f.seedProject(t, "P1", "S1")
	f.seedTask(t, ref("P1", "S1", "T1"), taskdomain.TaskStatusTodo)
	ctx := context.Background()
	f.linker.UpdateProjectStage(ctx, ref("P1", "S1", "T1"))

	require.NoError(t, f.store.Delete(ctx, taskdomain.Collection, "T1"))
	result := f.linker.UpdateProjectStage(ctx, ref("P1", "S1", "T1"))
	assert.Equal(t, taskdomain.LinkageTaskNotFound, result.Outcome)
	assert.False(t, result.Retryable())

	p := f.project(t, "P1")
	assert.Empty(t, p.TaskIDs)
	assert.Empty(t, p.Stages[0].TaskIDs)
}

func TestUpdateProjectStageConcurrentTasksAllKept(t *testing.T) {
	f := newFixture(t, nil)
	f.seedProject(t, "P1", "S1", "S2")
	ctx := context.Background()

	const tasks = 25
	refs := make([]taskdomain.StageRef, tasks)
	for i := range refs {
		stage := "S1"
		if i%2 == 1 {
			stage = "S2"
		}
		refs[i] = ref("P1", stage, fmt.Sprintf("T%02d", i))
		f.seedTask(t, refs[i], taskdomain.TaskStatusTodo)
	}

	var wg sync.WaitGroup
	results := make(chan taskdomain.LinkageResult, tasks)
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- f.linker.UpdateProjectStage(ctx, refs[i])
		}(i)
	}
	wg.Wait()
	close(results)

	for r := range results {
		assert.Equal(t, taskdomain.LinkageLinked, r.Outcome, r.String())
	}

	p := f.project(t, "P1")
	assert.Len(t, p.TaskIDs, tasks)
	assert.Len(t, p.Stages[0].TaskIDs, 13)
	assert.Len(t, p.Stages[1].TaskIDs, 12)
}

func TestUnlinkTaskRemovesEveryReference(t *testing.T) {
	f := newFixture(t, nil)
	f.seedProject(t, "P1", "S1")
	ctx := context.Background()
	f.seedTask(t, ref("P1", "S1", "T1"), taskdomain.TaskStatusDone)
	f.seedTask(t, ref("P1", "S1", "T2"), taskdomain.TaskStatusTodo)
	f.linker.UpdateProjectStage(ctx, ref("P1", "S1", "T1"))
	f.linker.UpdateProjectStage(ctx, ref("P1", "S1", "T2"))

	f.placeTask(t, "T1", "", "")
	result := f.linker.UnlinkTask(ctx, "P1", "T1")
	assert.Equal(t, taskdomain.LinkageUnlinked, result.Outcome)

	p := f.project(t, "P1")
	assert.Equal(t, []string{"T2"}, p.TaskIDs)
	assert.Equal(t, []string{"T2"}, p.Stages[0].TaskIDs)
	assert.Equal(t, 0, p.Progress)
}

func TestUnlinkTaskKeepsTaskPlacedBack(t *testing.T) {
	f := newFixture(t, nil)
	f.seedProject(t, "P1", "S1")
	f.seedTask(t, ref("P1", "S1", "T1"), taskdomain.TaskStatusTodo)
	ctx := context.Background()
	f.linker.UpdateProjectStage(ctx, ref("P1", "S1", "T1"))

	result := f.linker.UnlinkTask(ctx, "P1", "T1")
	assert.Equal(t, taskdomain.LinkageAlreadyLinked, result.Outcome)
	assert.Equal(t, []string{"T1"}, f.project(t, "P1").Stages[0].TaskIDs)
}

// flakyStore fails the first n transactions
type flakyStore struct {
	docstore.Store
	failures atomic.Int32
}

func (s *flakyStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	if s.failures.Add(-1) >= 0 {
		return errors.New("store unavailable")
	}
	return s.Store.RunTransaction(ctx, fn)
}

func TestUpdateProjectStageStoreFailureIsRetryable(t *testing.T) {
	store := &flakyStore{Store: docstore.NewMemoryStore()}
	f := newFixture(t, store)
	f.seedProject(t, "P1", "S1")
	f.seedTask(t, ref("P1", "S1", "T1"), taskdomain.TaskStatusTodo)
	store.failures.Store(1)

	result := f.linker.UpdateProjectStage(context.Background(), ref("P1", "S1", "T1"))
	assert.Equal(t, taskdomain.LinkageFailed, result.Outcome)
	assert.Error(t, result.Err)
	assert.True(t, result.Retryable())
}

func TestLinkageRetryWorkerEventuallyLinks(t *testing.T) {
	store := &flakyStore{Store: docstore.NewMemoryStore()}
	f := newFixture(t, store)
	f.seedProject(t, "P1", "S1")
	f.seedTask(t, ref("P1", "S1", "T1"), taskdomain.TaskStatusTodo)
	store.failures.Store(2)

	worker := NewLinkageRetryWorker(f.linker, 1)
	worker.backoff = time.Millisecond
	worker.Start()

	require.True(t, worker.QueueLink(ref("P1", "S1", "T1")))

	assert.Eventually(t, func() bool {
		p, err := f.projects.FindByID(context.Background(), "P1")
		return err == nil && p != nil && len(p.TaskIDs) == 1
	}, 2*time.Second, 5*time.Millisecond)

	worker.Stop()
	assert.False(t, worker.QueueLink(ref("P1", "S1", "T2")))
}
