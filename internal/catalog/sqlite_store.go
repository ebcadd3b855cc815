package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/terrasense/agriops/internal/ngsi"
	"github.com/terrasense/agriops/internal/types"
)

// SQLiteStore implements Repository on a local SQLite database. It holds
// the same attribute shape the broker does: one nullable column per
// relationship attribute, with ParentID derived at read time.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore over an open database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the entities table. Safe to run at startup.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS entities (
			id                  TEXT PRIMARY KEY,
			type                TEXT NOT NULL,
			category            TEXT NOT NULL,
			name                TEXT NOT NULL,
			municipality        TEXT NOT NULL DEFAULT '',
			status              TEXT NOT NULL DEFAULT 'unknown',
			has_location        INTEGER NOT NULL DEFAULT 0,
			ref_agri_parcel     TEXT,
			ref_agri_farm       TEXT,
			ref_agri_greenhouse TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_entities_type ON entities (type);
		CREATE INDEX IF NOT EXISTS idx_entities_parcel ON entities (ref_agri_parcel);
		CREATE INDEX IF NOT EXISTS idx_entities_farm ON entities (ref_agri_farm);
		CREATE INDEX IF NOT EXISTS idx_entities_greenhouse ON entities (ref_agri_greenhouse);
	`)
	return err
}

// columnByAttribute maps relationship attribute names to their columns.
var columnByAttribute = map[string]string{
	ngsi.RefAgriParcel:     "ref_agri_parcel",
	ngsi.RefAgriFarm:       "ref_agri_farm",
	ngsi.RefAgriGreenhouse: "ref_agri_greenhouse",
}

const entityColumns = `id, type, category, name, municipality, status, has_location,
		ref_agri_parcel, ref_agri_farm, ref_agri_greenhouse`

func scanEntity(scan func(dest ...any) error) (types.Entity, error) {
	var e types.Entity
	var hasLocation int
	var refParcel, refFarm, refGreenhouse sql.NullString
	err := scan(
		&e.ID, &e.Type, &e.Category, &e.Name, &e.Municipality, &e.Status,
		&hasLocation, &refParcel, &refFarm, &refGreenhouse,
	)
	if err != nil {
		return types.Entity{}, err
	}
	e.HasLocation = hasLocation != 0
	// Derivation order mirrors ngsi.RelationshipAttributes.
	switch {
	case refParcel.Valid && refParcel.String != "":
		e.ParentID = refParcel.String
	case refFarm.Valid && refFarm.String != "":
		e.ParentID = refFarm.String
	case refGreenhouse.Valid && refGreenhouse.String != "":
		e.ParentID = refGreenhouse.String
	}
	return e, nil
}

// UpsertEntities writes entities into the store, replacing existing rows.
// The relationship column is chosen the same way MemoryStore.Seed does.
// Every write covers all three ref columns: the selected one gets the
// parent, the competitors are cleared, so a reparent or detach upstream
// never leaves a stale column behind.
func (s *SQLiteStore) UpsertEntities(ctx context.Context, entities []types.Entity) error {
	for _, e := range entities {
		var refParcel, refFarm, refGreenhouse any
		if e.ParentID != "" {
			col := &refParcel
			if parent, err := s.GetEntity(ctx, e.ParentID); err == nil {
				switch parent.Type {
				case "AgriFarm":
					col = &refFarm
				case "AgriGreenhouse":
					col = &refGreenhouse
				}
			}
			*col = e.ParentID
		}
		hasLocation := 0
		if e.HasLocation {
			hasLocation = 1
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO entities (id, type, category, name, municipality, status, has_location,
				ref_agri_parcel, ref_agri_farm, ref_agri_greenhouse)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				type = excluded.type,
				category = excluded.category,
				name = excluded.name,
				municipality = excluded.municipality,
				status = excluded.status,
				has_location = excluded.has_location,
				ref_agri_parcel = excluded.ref_agri_parcel,
				ref_agri_farm = excluded.ref_agri_farm,
				ref_agri_greenhouse = excluded.ref_agri_greenhouse`,
			e.ID, e.Type, e.Category, e.Name, e.Municipality, e.Status, hasLocation,
			refParcel, refFarm, refGreenhouse)
		if err != nil {
			return fmt.Errorf("upserting entity %s: %w", e.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) ListEntities(ctx context.Context, f types.ListFilter) ([]types.Entity, error) {
	var conditions []string
	var args []any

	if len(f.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Types)), ", ")
		conditions = append(conditions, fmt.Sprintf("type IN (%s)", placeholders))
		for _, t := range f.Types {
			args = append(args, t)
		}
	}
	if f.ParentID != "" {
		conditions = append(conditions,
			"(ref_agri_parcel = ? OR ref_agri_farm = ? OR ref_agri_greenhouse = ?)")
		args = append(args, f.ParentID, f.ParentID, f.ParentID)
	}

	query := "SELECT " + entityColumns + " FROM entities"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var out []types.Entity
	for rows.Next() {
		e, err := scanEntity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetEntity(ctx context.Context, id string) (types.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entityColumns+" FROM entities WHERE id = ?", id)
	e, err := scanEntity(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Entity{}, ErrNotFound
	}
	if err != nil {
		return types.Entity{}, fmt.Errorf("getting entity %s: %w", id, err)
	}
	return e, nil
}

func (s *SQLiteStore) PatchAttributes(ctx context.Context, _, id string, frag ngsi.AttributeFragment) error {
	var sets []string
	var args []any
	for attr, rel := range frag {
		col, ok := columnByAttribute[attr]
		if !ok {
			return fmt.Errorf("unknown relationship attribute %q", attr)
		}
		if rel == nil {
			sets = append(sets, col+" = NULL")
			continue
		}
		sets = append(sets, col+" = ?")
		args = append(args, rel.Object)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		"UPDATE entities SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("patching entity %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteEntity(ctx context.Context, _, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entities WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting entity %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
