package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/terrasense/agriops/internal/ngsi"
	"github.com/terrasense/agriops/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	store := NewSQLiteStore(db)
	if err := store.CreateTable(context.Background()); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return store
}

func seedSQLite(t *testing.T, store *SQLiteStore) {
	t.Helper()
	// Parents before children so the upsert resolves the ref column.
	err := store.UpsertEntities(context.Background(), []types.Entity{
		{ID: "F1", Type: "AgriFarm", Category: types.CategoryParcels, Name: "Hoeve Zuid"},
		{ID: "P1", Type: "AgriParcel", Category: types.CategoryParcels, Name: "North Field", ParentID: "F1"},
		{ID: "S1", Type: "AgriSensor", Category: types.CategorySensors, Name: "Soil-1", ParentID: "P1"},
	})
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}
}

func TestSQLiteStore_UpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	seedSQLite(t, store)

	got, err := store.GetEntity(context.Background(), "S1")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if got.ParentID != "P1" {
		t.Errorf("ParentID = %s, want P1", got.ParentID)
	}
	if got.ParentID != "P1" || got.Name != "Soil-1" {
		t.Errorf("got = %+v", got)
	}
}

func TestSQLiteStore_ResyncReparentClearsStaleColumn(t *testing.T) {
	store := newTestStore(t)
	seedSQLite(t, store)
	ctx := context.Background()

	// The broker moved S1 from the parcel to the farm; the next sync
	// upserts the new snapshot. The old parcel reference must not win
	// the read-time priority.
	err := store.UpsertEntities(ctx, []types.Entity{
		{ID: "S1", Type: "AgriSensor", Category: types.CategorySensors, Name: "Soil-1", ParentID: "F1"},
	})
	if err != nil {
		t.Fatalf("UpsertEntities: %v", err)
	}

	got, err := store.GetEntity(ctx, "S1")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if got.ParentID != "F1" {
		t.Errorf("ParentID = %s, want F1 (stale parcel column resurrected the old parent)", got.ParentID)
	}

	children, err := store.ListEntities(ctx, types.ListFilter{ParentID: "P1"})
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if len(children) != 0 {
		t.Errorf("P1 still lists %d children after the reparent", len(children))
	}
}

func TestSQLiteStore_ResyncDetachClearsAllColumns(t *testing.T) {
	store := newTestStore(t)
	seedSQLite(t, store)
	ctx := context.Background()

	// Move S1 to the farm first so a non-default column is populated,
	// then sync a detached snapshot.
	for _, parentID := range []string{"F1", ""} {
		err := store.UpsertEntities(ctx, []types.Entity{
			{ID: "S1", Type: "AgriSensor", Category: types.CategorySensors, Name: "Soil-1", ParentID: parentID},
		})
		if err != nil {
			t.Fatalf("UpsertEntities(parent=%q): %v", parentID, err)
		}
	}

	got, err := store.GetEntity(ctx, "S1")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if got.ParentID != "" {
		t.Errorf("ParentID = %s, want empty after detach", got.ParentID)
	}
}

func TestSQLiteStore_PatchAttributes(t *testing.T) {
	store := newTestStore(t)
	seedSQLite(t, store)
	ctx := context.Background()

	frag := ngsi.AttributeFragment{
		ngsi.RefAgriParcel:     nil,
		ngsi.RefAgriFarm:       ngsi.NewRelationship("F1"),
		ngsi.RefAgriGreenhouse: nil,
	}
	if err := store.PatchAttributes(ctx, "AgriSensor", "S1", frag); err != nil {
		t.Fatalf("PatchAttributes: %v", err)
	}
	got, _ := store.GetEntity(ctx, "S1")
	if got.ParentID != "F1" {
		t.Errorf("ParentID = %s, want F1", got.ParentID)
	}

	if err := store.PatchAttributes(ctx, "AgriSensor", "nope", frag); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestStore(t)
	seedSQLite(t, store)
	ctx := context.Background()

	if err := store.DeleteEntity(ctx, "AgriSensor", "S1"); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}
	if _, err := store.GetEntity(ctx, "S1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted entity still readable: %v", err)
	}
	if err := store.DeleteEntity(ctx, "AgriSensor", "S1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}
