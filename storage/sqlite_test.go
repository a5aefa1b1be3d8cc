package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"boat_radar/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "radar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }

func fishingBoat() models.Listing {
	return models.Listing{
		ID:                 "1001",
		Title:              "סירת דייג 6.5 מטר",
		Price:              "₪60,000",
		StrikethroughPrice: strPtr("₪65,000"),
		Location:           models.Location{City: "תל אביב", Region: "TA"},
		URL:                models.ItemURL("1001"),
		DeliveryTypes:      []string{"IN_PERSON"},
		IsSold:             boolPtr(false),
		IsPending:          boolPtr(false),
		CategoryID:         strPtr("1557869527812749"),
		Subtitle:           strPtr("115 HP"),
	}
}

func TestSQLiteStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	l := fishingBoat().
		WithDescription("מקום עגינה במרינה הרצליה").
		WithClassification(models.Classification{HasParking: true, Rating: 9, Reason: "berth"})
	require.NoError(t, store.UpsertListing(ctx, l, "סירה"))

	got, err := store.GetListing(ctx, "1001")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, l, got.Listing)
	require.Equal(t, "סירה", got.SearchQuery)
	require.NotNil(t, got.PriceNumeric)
	require.Equal(t, 60000, *got.PriceNumeric)
	require.False(t, got.CreatedAt.IsZero())

	missing, err := store.GetListing(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestSQLiteStore_UpsertCoalescesAbsentValues(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := fishingBoat().
		WithDescription("original description").
		WithClassification(models.Classification{HasParking: true, Rating: 8, Reason: "berth"})
	require.NoError(t, store.UpsertListing(ctx, first, "סירה"))

	before, err := store.GetListing(ctx, "1001")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	// Re-seen without description or classification, now marked sold.
	second := fishingBoat()
	second.IsSold = boolPtr(true)
	second.IsPending = nil
	second.Title = "changed title"
	require.NoError(t, store.UpsertListing(ctx, second, "other"))

	got, err := store.GetListing(ctx, "1001")
	require.NoError(t, err)
	require.Equal(t, "original description", *got.Description)
	require.Equal(t, &models.Classification{HasParking: true, Rating: 8, Reason: "berth"}, got.Classification)
	require.True(t, *got.IsSold)
	require.False(t, *got.IsPending)
	require.Equal(t, "סירת דייג 6.5 מטר", got.Title, "immutable fields keep the first insert")
	require.Equal(t, "סירה", got.SearchQuery)
	require.True(t, got.UpdatedAt.After(before.UpdatedAt))
}

func TestSQLiteStore_ExistingIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.UpsertListing(ctx, fishingBoat(), "q"))
	other := fishingBoat()
	other.ID = "2002"
	require.NoError(t, store.UpsertListing(ctx, other, "q"))

	existing, err := store.ExistingIDs(ctx, []string{"1001", "3003", "2002"})
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"1001": {}, "2002": {}}, existing)

	empty, err := store.ExistingIDs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestSQLiteStore_ExistingIDs_LargeBatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.UpsertListing(ctx, fishingBoat(), "q"))

	// Well past SQLITE_MAX_VARIABLE_NUMBER, so one placeholder per id
	// would be rejected.
	ids := make([]string, 0, 40001)
	for i := 0; i < 40000; i++ {
		ids = append(ids, time.Duration(i).String())
	}
	ids = append(ids, "1001")

	existing, err := store.ExistingIDs(ctx, ids)
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"1001": {}}, existing)
}

func TestSQLiteStore_ListingsByPriceRange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	prices := map[string]string{"a": "₪9,999", "b": "₪10,000", "c": "₪60,000", "d": "₪100,000", "e": "Free"}
	for id, price := range prices {
		l := fishingBoat()
		l.ID, l.Price, l.URL = id, price, ""
		require.NoError(t, store.UpsertListing(ctx, l, "q"))
	}

	inRange, err := store.ListingsByPriceRange(ctx, 10000, 100000)
	require.NoError(t, err)
	var ids []string
	for _, l := range inRange {
		ids = append(ids, l.ID)
	}
	require.ElementsMatch(t, []string{"b", "c", "d"}, ids)

	all, err := store.ListListings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for _, l := range all {
		require.Equal(t, models.ItemURL(l.ID), l.URL)
	}
}

func TestSQLiteStore_RunsAndLogs(t *testing.T) {
	store := newTestStore(t)

	run := &models.ScrapeRun{RunUUID: "abc", StartedAt: time.Now(), Status: models.RunStatusRunning}
	id, err := store.CreateRun(run)
	require.NoError(t, err)
	run.ID = id

	require.NoError(t, store.Log(&id, models.LogLevelInfo, "found 3", "סירה"))
	require.NoError(t, store.Log(&id, models.LogLevelError, "timeout", "סירת דייג"))

	now := time.Now()
	run.FinishedAt = &now
	run.Status = models.RunStatusCompleted
	run.ListingsFound, run.ListingsNew, run.Notified = 6, 3, 1
	require.NoError(t, store.UpdateRun(run))

	runs, err := store.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, models.RunStatusCompleted, runs[0].Status)
	require.Equal(t, 3, runs[0].ListingsNew)
	require.NotNil(t, runs[0].FinishedAt)

	logs, err := store.LogsForRun(id)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "סירת דייג", logs[1].Query)

	recent, err := store.RecentLogs(10, "")
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "timeout", recent[0].Message)

	errorsOnly, err := store.RecentLogs(10, models.LogLevelError)
	require.NoError(t, err)
	require.Len(t, errorsOnly, 1)
	require.Equal(t, models.LogLevelError, errorsOnly[0].Level)
}

func TestSQLiteStore_Commands(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.EnqueueCommand(models.CmdPause, nil))
	require.NoError(t, store.EnqueueCommand(models.CmdRunNow, map[string]string{"source": "cli"}))

	cmds, err := store.GetPendingCommands()
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	require.Equal(t, models.CmdPause, cmds[0].Command)
	require.JSONEq(t, `{"source":"cli"}`, string(cmds[1].Params))

	require.NoError(t, store.MarkCommandProcessed(cmds[0].ID))
	cmds, err = store.GetPendingCommands()
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.Equal(t, models.CmdRunNow, cmds[0].Command)
}
