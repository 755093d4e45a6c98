package store

import (
	"database/sql"
	"fmt"
)

// CommitUnit inserts a unit and all of its type records within a single
// transaction. A nil unit commits builtin types with no defining unit.
//
// Insert order respects FK dependencies:
//  1. Unit
//  2. Types (depend on unit_id)
//  3. Capabilities, ancestors and methods (depend on type_id)
//
// On success the IDs of unit and of every record's Type are set.
func (s *Store) CommitUnit(unit *Unit, records []TypeRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit unit: begin: %w", err)
	}
	defer tx.Rollback()

	var unitID *int64
	if unit != nil {
		id, err := insertUnitTx(tx, unit)
		if err != nil {
			return fmt.Errorf("commit unit %s: %w", unit.Path, err)
		}
		unit.ID = id
		unitID = &id
	}

	for i := range records {
		rec := &records[i]
		rec.Type.UnitID = unitID
		typeID, err := insertTypeTx(tx, &rec.Type)
		if err != nil {
			return fmt.Errorf("commit unit: type %q: %w", rec.Type.Name, err)
		}
		rec.Type.ID = typeID

		for _, c := range rec.Capabilities {
			if _, err := tx.Exec(
				"INSERT INTO type_capabilities (type_id, capability, direct) VALUES (?, ?, ?)",
				typeID, c.Name, c.Direct,
			); err != nil {
				return fmt.Errorf("commit unit: capability %q of %q: %w", c.Name, rec.Type.Name, err)
			}
		}
		for _, a := range rec.Ancestors {
			if _, err := tx.Exec(
				"INSERT INTO type_ancestors (type_id, ancestor, depth) VALUES (?, ?, ?)",
				typeID, a.Name, a.Depth,
			); err != nil {
				return fmt.Errorf("commit unit: ancestor %q of %q: %w", a.Name, rec.Type.Name, err)
			}
		}
		if err := insertMethodsTx(tx, typeID, MethodProvided, rec.Provided); err != nil {
			return fmt.Errorf("commit unit: methods of %q: %w", rec.Type.Name, err)
		}
		if err := insertMethodsTx(tx, typeID, MethodRequired, rec.Required); err != nil {
			return fmt.Errorf("commit unit: methods of %q: %w", rec.Type.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unit: %w", err)
	}
	return nil
}

func insertUnitTx(tx *sql.Tx, u *Unit) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO units (path, language, hash, loaded_at) VALUES (?, ?, ?, ?)",
		u.Path, u.Language, u.Hash, u.LoadedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert unit: %w", err)
	}
	return res.LastInsertId()
}

func insertTypeTx(tx *sql.Tx, t *Type) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO types (unit_id, name, kind, abstract, instantiable, parent)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.UnitID, t.Name, t.Kind, t.Abstract, t.Instantiable, t.Parent,
	)
	if err != nil {
		return 0, fmt.Errorf("insert type: %w", err)
	}
	return res.LastInsertId()
}

func insertMethodsTx(tx *sql.Tx, typeID int64, kind string, names []string) error {
	for _, name := range names {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO type_methods (type_id, name, kind) VALUES (?, ?, ?)",
			typeID, name, kind,
		); err != nil {
			return err
		}
	}
	return nil
}
