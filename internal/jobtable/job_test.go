package jobtable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable_AddAssignsIncreasingIDs(t *testing.T) {
	tbl := NewTable()
	j1 := tbl.Add(100, "sleep 1")
	j2 := tbl.Add(200, "sleep 2")
	require.Equal(t, 1, j1.ID)
	require.Equal(t, 2, j2.ID)
	require.Equal(t, Running, j1.State)
}

func TestTable_SetStateAndPurge(t *testing.T) {
	tbl := NewTable()
	j := tbl.Add(100, "sleep 1")
	tbl.SetState(j.ID, Done, 0)

	reports := tbl.PendingReports()
	require.Len(t, reports, 1)
	require.Equal(t, Done, reports[0].State)

	require.Empty(t, tbl.PendingReports())

	tbl.PurgeReported()
	_, ok := tbl.Get(j.ID)
	require.False(t, ok)
}

func TestTable_Disown(t *testing.T) {
	tbl := NewTable()
	j := tbl.Add(100, "sleep 1")
	tbl.Disown(j.ID)
	_, ok := tbl.Get(j.ID)
	require.False(t, ok)
}

func TestTable_RunningExcludesDone(t *testing.T) {
	tbl := NewTable()
	j1 := tbl.Add(100, "a")
	j2 := tbl.Add(200, "b")
	tbl.SetState(j2.ID, Done, 0)

	running := tbl.Running()
	require.Len(t, running, 1)
	require.Equal(t, j1.ID, running[0].ID)
}

func TestTable_ListOrderedByID(t *testing.T) {
	tbl := NewTable()
	tbl.Add(1, "a")
	tbl.Add(2, "b")
	tbl.Add(3, "c")
	list := tbl.List()
	require.Len(t, list, 3)
	require.Equal(t, 1, list[0].ID)
	require.Equal(t, 3, list[2].ID)
}
