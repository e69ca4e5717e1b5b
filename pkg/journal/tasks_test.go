package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskListAddAssignsSequentialIDs(t *testing.T) {
	list := NewTaskList("")
	t1, err := list.Add("收集 10 个圆石", "背包里有 10 个 cobblestone")
	require.NoError(t, err)
	t2, err := list.Add("合成熔炉", "背包里有 furnace")
	require.NoError(t, err)

	assert.Equal(t, "1", t1.ID)
	assert.Equal(t, "2", t2.ID)
}

func TestTaskListGetByIDExtractsDigitRun(t *testing.T) {
	list := NewTaskList("")
	_, err := list.Add("a", "")
	require.NoError(t, err)
	_, err = list.Add("b", "")
	require.NoError(t, err)

	task, ok := list.GetByID("任务 2!")
	require.True(t, ok)
	assert.Equal(t, "b", task.Details)

	_, ok = list.GetByID("no digits here")
	assert.False(t, ok)
}

func TestTaskListIDsStableAfterDelete(t *testing.T) {
	list := NewTaskList("")
	for _, d := range []string{"a", "b", "c"} {
		_, err := list.Add(d, "")
		require.NoError(t, err)
	}
	require.NoError(t, list.DeleteByID("2"))

	// Existing ids keep their values; the next add reuses len+1.
	task, ok := list.GetByID("3")
	require.True(t, ok)
	assert.Equal(t, "c", task.Details)

	added, err := list.Add("d", "")
	require.NoError(t, err)
	assert.Equal(t, "3", added.ID)
}

func TestTaskListMutationsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo_list.json")
	list := NewTaskList(path)
	_, err := list.Add("收集木头", "有 10 个 oak_log")
	require.NoError(t, err)
	require.NoError(t, list.UpdateProgress("1", "已收集 4 个"))
	require.NoError(t, list.MarkDone("1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"done_criteria"`)

	reloaded := NewTaskList(path)
	task, ok := reloaded.GetByID("1")
	require.True(t, ok)
	assert.Equal(t, "已收集 4 个", task.Progress)
	assert.True(t, task.Done)
}

func TestTaskListMutationOfMissingIDFails(t *testing.T) {
	list := NewTaskList("")
	assert.Error(t, list.UpdateProgress("7", "x"))
	assert.Error(t, list.MarkDone("7"))
	assert.Error(t, list.DeleteByID("7"))
}

func TestCheckIfAllDone(t *testing.T) {
	list := NewTaskList("")
	assert.True(t, list.CheckIfAllDone())

	_, err := list.Add("a", "")
	require.NoError(t, err)
	assert.False(t, list.CheckIfAllDone())

	require.NoError(t, list.MarkDone("1"))
	assert.True(t, list.CheckIfAllDone())

	list.SetNeedEdit(true)
	assert.False(t, list.CheckIfAllDone())
	list.SetNeedEdit(false)
	assert.True(t, list.CheckIfAllDone())
}

func TestTaskListCounts(t *testing.T) {
	list := NewTaskList("")
	for _, d := range []string{"a", "b", "c"} {
		_, err := list.Add(d, "")
		require.NoError(t, err)
	}
	require.NoError(t, list.MarkDone("1"))

	total, completed, pending := list.Counts()
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, completed)
	assert.Equal(t, 2, pending)
}
