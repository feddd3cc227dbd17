package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow/coreflow/internal/digraph"
	"github.com/coreflow/coreflow/internal/model"
)

// fakeRecorder is an in-memory Recorder for exercising the scheduler
// without a real store. All methods are safe for concurrent use since
// runParallel dispatches task attempts from goroutines.
type fakeRecorder struct {
	mu sync.Mutex

	nextID int64
	starts []string // task names in the order StartTask was called
	final  map[int64]model.ExecutionResult
	retry  map[int64][]int // retryCount history per task record
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		final: make(map[int64]model.ExecutionResult),
		retry: make(map[int64][]int),
	}
}

func (f *fakeRecorder) StartTask(_ context.Context, _, taskName string, _ int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.starts = append(f.starts, taskName)
	return f.nextID, nil
}

func (f *fakeRecorder) UpdateTaskStatus(_ context.Context, id int64, result model.ExecutionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.final[id] = result
	return nil
}

func (f *fakeRecorder) SetTaskRetry(_ context.Context, id int64, retryCount int, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retry[id] = append(f.retry[id], retryCount)
	return nil
}

func (f *fakeRecorder) startCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.starts {
		if s == name {
			n++
		}
	}
	return n
}

func shellTask(name, command string, dependsOn ...string) model.TaskConfig {
	return model.TaskConfig{
		Name:      name,
		Type:      model.TaskTypeShell,
		DependsOn: dependsOn,
		Shell:     &model.ShellConfig{Command: command},
		Timeout:   5,
	}
}

func buildGraph(t *testing.T, tasks []model.TaskConfig) *digraph.Graph {
	t.Helper()
	g, err := digraph.Build(tasks)
	require.NoError(t, err)
	return g
}

func TestRunSequentialHaltsOnFirstFailure(t *testing.T) {
	tasks := []model.TaskConfig{
		shellTask("a", "/bin/true"),
		shellTask("b", "/bin/false", "a"),
		shellTask("c", "/bin/true", "b"),
	}
	g := buildGraph(t, tasks)
	rec := newFakeRecorder()
	s := New(nil, rec)

	ok, err := s.Run(context.Background(), "exec-1", g, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, rec.startCount("a"))
	assert.Equal(t, 1, rec.startCount("b"))
	assert.Equal(t, 0, rec.startCount("c"), "sequential run must halt before an unreached dependent")
}

func TestRunParallelHaltsAfterLevelWithUnresolvedFailure(t *testing.T) {
	// Level 0: "bad" (fails) and "independent" (no dependency relation to
	// "bad"). Level 1: "later", only reachable once level 0 has finished.
	tasks := []model.TaskConfig{
		shellTask("bad", "/bin/false"),
		shellTask("independent", "/bin/true"),
		shellTask("later", "/bin/true", "independent"),
	}

	g := buildGraph(t, tasks)
	rec := newFakeRecorder()
	s := New(nil, rec)

	ok, err := s.Run(context.Background(), "exec-2", g, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, rec.startCount("bad"))
	assert.Equal(t, 1, rec.startCount("independent"))
	assert.Equal(t, 0, rec.startCount("later"), "a later level must not start once the prior level ends with an unresolved failure")
}

func TestRunParallelContinueOnFailureDoesNotHaltLevel(t *testing.T) {
	tasks := []model.TaskConfig{
		shellTask("bad", "/bin/false"),
		shellTask("next", "/bin/true", "bad"),
	}
	tasks[0].ContinueOnFailure = true

	g := buildGraph(t, tasks)
	rec := newFakeRecorder()
	s := New(nil, rec)

	ok, err := s.Run(context.Background(), "exec-3", g, 4)
	require.NoError(t, err)
	assert.False(t, ok, "overall result still reflects the failed task")
	assert.Equal(t, 1, rec.startCount("next"), "continue_on_failure must let dependents proceed")
}

func TestRunWithRetrySetsRetryStateBeforeEachBackoff(t *testing.T) {
	task := shellTask("flaky", "/bin/false")
	task.Retry = 2

	g := buildGraph(t, []model.TaskConfig{task})
	rec := newFakeRecorder()
	s := New(nil, rec)

	start := time.Now()
	ok, err := s.Run(context.Background(), "exec-4", g, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 3, rec.startCount("flaky"), "one initial attempt plus two retries")

	rec.mu.Lock()
	var retryCounts []int
	for id := int64(1); id <= rec.nextID; id++ {
		retryCounts = append(retryCounts, rec.retry[id]...)
	}
	rec.mu.Unlock()
	assert.Equal(t, []int{0, 1}, retryCounts, "retry count must be recorded before each backoff sleep, zero-indexed")

	// Two retries at base delay 1s should take at least ~2s, confirming the
	// scheduler actually slept instead of spinning.
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Second)
}

func TestRunWithRetrySucceedsWithoutExhausting(t *testing.T) {
	task := shellTask("succeeds", "/bin/true")
	task.Retry = 3

	g := buildGraph(t, []model.TaskConfig{task})
	rec := newFakeRecorder()
	s := New(nil, rec)

	ok, err := s.Run(context.Background(), "exec-5", g, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, rec.startCount("succeeds"), "a successful first attempt must not retry")
}

func TestRunOnceTimesOutMapsToTimeoutStatus(t *testing.T) {
	task := shellTask("slow", "/bin/sleep")
	task.Shell.Args = []string{"5"}
	task.Timeout = 1

	g := buildGraph(t, []model.TaskConfig{task})
	rec := newFakeRecorder()
	s := New(nil, rec)

	ok, err := s.Run(context.Background(), "exec-6", g, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.final, 1)
	for _, result := range rec.final {
		assert.Equal(t, model.StatusTimeout, result.Status)
	}
}
