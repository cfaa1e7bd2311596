package progress_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"timetable-engine/internal/progress"
)

func TestBus_WeightedPhasesCapAt99UntilComplete(t *testing.T) {
	store := progress.NewSnapshotStore()
	bus := progress.NewBus("job-1", store)

	bus.SetPhase("initialization", 10)
	bus.UpdatePhaseProgress(10, "done init")
	bus.SetPhase("clustering", 10)
	bus.UpdatePhaseProgress(10, "done clustering")

	snap := bus.Snapshot()
	require.Less(t, snap.ProgressPercent, 100.0)
	require.Equal(t, "clustering", snap.Phase)

	bus.Complete(true, "finished")
	final, ok := store.Get("job-1")
	require.True(t, ok)
	require.Equal(t, 100.0, final.ProgressPercent)
}

func TestBus_UnknownPhaseIsIgnored(t *testing.T) {
	bus := progress.NewBus("job-2")
	bus.SetPhase("not-a-real-phase", 10)
	snap := bus.Snapshot()
	require.Equal(t, "initialization", snap.Phase)
}
