package store

import (
	"database/sql"
	"fmt"
)

// --- Unit operations ---

const unitCols = `id, path, language, hash, loaded_at`

func (s *Store) UnitByPath(path string) (*Unit, error) {
	u := &Unit{}
	err := s.db.QueryRow(
		"SELECT "+unitCols+" FROM units WHERE path = ?", path,
	).Scan(&u.ID, &u.Path, &u.Language, &u.Hash, &u.LoadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unit by path: %w", err)
	}
	return u, nil
}

func (s *Store) Units() ([]*Unit, error) {
	rows, err := s.db.Query("SELECT " + unitCols + " FROM units ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	defer rows.Close()
	var units []*Unit
	for rows.Next() {
		u := &Unit{}
		if err := rows.Scan(&u.ID, &u.Path, &u.Language, &u.Hash, &u.LoadedAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// --- Type operations ---

// TypeCols is the column list for type queries joined with their unit as
// "u". Exported for use by QueryBuilder.
const TypeCols = `t.id, t.unit_id, t.name, t.kind, t.abstract, t.instantiable, t.parent,
	COALESCE(u.path, ''), COALESCE(u.language, '')`

// TypeFrom is the FROM clause matching TypeCols.
const TypeFrom = ` FROM types t LEFT JOIN units u ON u.id = t.unit_id`

// ScanTypeRow scans a row selected with TypeCols. Exported for use by QueryBuilder.
func ScanTypeRow(scanner interface{ Scan(...any) error }) (*Type, error) {
	t := &Type{}
	err := scanner.Scan(
		&t.ID, &t.UnitID, &t.Name, &t.Kind, &t.Abstract, &t.Instantiable, &t.Parent,
		&t.UnitPath, &t.Language,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) queryTypes(query string, args ...any) ([]*Type, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []*Type
	for rows.Next() {
		t, err := ScanTypeRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (s *Store) TypeByName(name string) (*Type, error) {
	t, err := ScanTypeRow(s.db.QueryRow("SELECT "+TypeCols+TypeFrom+" WHERE t.name = ?", name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("type by name: %w", err)
	}
	return t, nil
}

func (s *Store) TypesByUnit(unitID int64) ([]*Type, error) {
	return s.queryTypes("SELECT "+TypeCols+TypeFrom+" WHERE t.unit_id = ? ORDER BY t.id", unitID)
}

// TypesAfter returns up to limit types with afterID < id <= uptoID in
// registration order. Used for paged enumeration without holding a cursor.
func (s *Store) TypesAfter(afterID, uptoID int64, limit int) ([]*Type, error) {
	return s.queryTypes(
		"SELECT "+TypeCols+TypeFrom+" WHERE t.id > ? AND t.id <= ? ORDER BY t.id LIMIT ?",
		afterID, uptoID, limit,
	)
}

func (s *Store) TypesWithParent(parent string) ([]*Type, error) {
	return s.queryTypes("SELECT "+TypeCols+TypeFrom+" WHERE t.parent = ? ORDER BY t.id", parent)
}

func (s *Store) TypesWithCapability(capability string) ([]*Type, error) {
	return s.queryTypes(
		"SELECT "+TypeCols+TypeFrom+
			" JOIN type_capabilities c ON c.type_id = t.id WHERE c.capability = ? ORDER BY t.id",
		capability,
	)
}

// MaxTypeID returns the highest type ID, or 0 for an empty registry.
func (s *Store) MaxTypeID() (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(id) FROM types").Scan(&id); err != nil {
		return 0, fmt.Errorf("max type id: %w", err)
	}
	return id.Int64, nil
}

func (s *Store) TypeNames() ([]string, error) {
	return s.queryStrings("SELECT name FROM types ORDER BY id")
}

// --- Closure lookups ---

func (s *Store) Capabilities(typeID int64) ([]*Capability, error) {
	rows, err := s.db.Query(
		"SELECT type_id, capability, direct FROM type_capabilities WHERE type_id = ? ORDER BY capability",
		typeID,
	)
	if err != nil {
		return nil, fmt.Errorf("capabilities: %w", err)
	}
	defer rows.Close()
	var caps []*Capability
	for rows.Next() {
		c := &Capability{}
		if err := rows.Scan(&c.TypeID, &c.Name, &c.Direct); err != nil {
			return nil, fmt.Errorf("scan capability: %w", err)
		}
		caps = append(caps, c)
	}
	return caps, rows.Err()
}

// Ancestors returns the ancestor chain of a type, nearest first.
func (s *Store) Ancestors(typeID int64) ([]*Ancestor, error) {
	rows, err := s.db.Query(
		"SELECT type_id, ancestor, depth FROM type_ancestors WHERE type_id = ? ORDER BY depth",
		typeID,
	)
	if err != nil {
		return nil, fmt.Errorf("ancestors: %w", err)
	}
	defer rows.Close()
	var ancestors []*Ancestor
	for rows.Next() {
		a := &Ancestor{}
		if err := rows.Scan(&a.TypeID, &a.Name, &a.Depth); err != nil {
			return nil, fmt.Errorf("scan ancestor: %w", err)
		}
		ancestors = append(ancestors, a)
	}
	return ancestors, rows.Err()
}

// Methods returns the method names of the given kind (MethodProvided or
// MethodRequired) recorded for a type, sorted.
func (s *Store) Methods(typeID int64, kind string) ([]string, error) {
	return s.queryStrings(
		"SELECT name FROM type_methods WHERE type_id = ? AND kind = ? ORDER BY name", typeID, kind,
	)
}

func (s *Store) HasCapability(typeID int64, capability string) (bool, error) {
	return s.exists(
		"SELECT 1 FROM type_capabilities WHERE type_id = ? AND capability = ? LIMIT 1", typeID, capability,
	)
}

func (s *Store) HasAncestor(typeID int64, ancestor string) (bool, error) {
	return s.exists(
		"SELECT 1 FROM type_ancestors WHERE type_id = ? AND ancestor = ? LIMIT 1", typeID, ancestor,
	)
}

func (s *Store) exists(query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRow(query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) queryStrings(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// TypesByNames returns the known types among names, in registration order.
// Unknown names are ignored.
func (s *Store) TypesByNames(names []string) ([]*Type, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return s.queryTypes(
		"SELECT "+TypeCols+TypeFrom+" WHERE t.name IN ("+placeholderList(len(names))+") ORDER BY t.id",
		stringsToArgs(names)...,
	)
}
