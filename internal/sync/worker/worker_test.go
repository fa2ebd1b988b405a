package worker

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	reconcilemodels "origo/internal/reconcile/models"
	fieldvaluestore "origo/internal/reconcile/store/fieldvalue"
	"origo/internal/sync/dedupe"
	"origo/internal/sync/links"
	"origo/internal/sync/models"
	"origo/internal/sync/notifier"
	syncservice "origo/internal/sync/service"
	intakestore "origo/internal/sync/store/intake"
	id "origo/pkg/domain"
)

const originTag = "origo"

// loop wires the single-process production topology: one origin tag shared
// by the coordinator, the broadcaster, and the channel worker consuming the
// in-memory bus.
type loop struct {
	coord       *syncservice.Coordinator
	broadcaster *syncservice.Broadcaster
	bus         *notifier.Memory
	intake      *intakestore.InMemory
	master      *fieldvaluestore.InMemory
}

func newLoop(t *testing.T, ctx context.Context) *loop {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	l := &loop{
		bus:    notifier.NewMemory(),
		intake: intakestore.NewInMemory(),
		master: fieldvaluestore.NewInMemory(),
	}
	l.coord = syncservice.NewCoordinator(links.Default(), dedupe.NewMemory(), originTag, logger, nil)
	l.coord.RegisterWriter(models.TableIntake, l.intake)
	l.coord.RegisterWriter(models.TableMaster, syncservice.NewMasterWriter(l.master))
	l.broadcaster = syncservice.NewBroadcaster(l.coord, l.bus, originTag, logger, nil)

	w := NewChannel(l.bus.Subscribe(16), l.coord, logger)
	go func() { _ = w.Run(ctx) }()
	return l
}

// TestLocalChangeReachesIntakeMirror runs the full in-process loop: a field
// write is broadcast and lands in the intake mirror even though the channel
// worker drops the bus echo as own-origin.
func TestLocalChangeReachesIntakeMirror(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := newLoop(t, ctx)

	entityID := id.EntityID(uuid.New())
	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	l.broadcaster.FieldChanged(ctx, &reconcilemodels.FieldValue{
		EntityID:  entityID,
		FieldName: "birth_place",
		Value:     "Warszawa",
		Source:    id.SourceManual,
		Revision:  1,
		UpdatedAt: ts,
		UpdatedBy: "worker@example.com",
	})

	require.Eventually(t, func() bool {
		v, err := l.intake.Find(ctx, entityID, "birth_place")
		return err == nil && v.Value == "Warszawa"
	}, 2*time.Second, 10*time.Millisecond)

	v, err := l.intake.Find(ctx, entityID, "birth_place")
	require.NoError(t, err)
	require.Equal(t, originTag, v.Origin)
	require.Equal(t, ts, v.UpdatedAt)

	// The echoed bus copy must not re-apply or loop back into the master.
	_, err = l.master.FindCurrent(ctx, entityID, "birth_place")
	require.Error(t, err)
}

// TestRemoteChangeReachesMaster feeds the bus a change from another system;
// the worker propagates it into the master field value store.
func TestRemoteChangeReachesMaster(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := newLoop(t, ctx)

	entityID := id.EntityID(uuid.New())
	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, l.bus.Publish(ctx, models.Change{
		ChangeID:  uuid.NewString(),
		EntityID:  entityID,
		Table:     models.TableIntake,
		Field:     "birth_place",
		Value:     "Warszawa",
		Timestamp: ts,
		Origin:    "legacy-intake",
	}))

	require.Eventually(t, func() bool {
		v, err := l.master.FindCurrent(ctx, entityID, "birth_place")
		return err == nil && v.Value == "Warszawa"
	}, 2*time.Second, 10*time.Millisecond)

	v, err := l.master.FindCurrent(ctx, entityID, "birth_place")
	require.NoError(t, err)
	require.Equal(t, id.SourceSystem, v.Source)
	require.Equal(t, "sync:legacy-intake", v.UpdatedBy)
}
