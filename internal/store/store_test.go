package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// commitTestUnit commits a unit holding one record per name and returns the unit.
func commitTestUnit(t *testing.T, s *Store, path string, recs ...TypeRecord) *Unit {
	t.Helper()
	u := &Unit{Path: path, Language: "php", Hash: ContentHash([]byte(path)), LoadedAt: time.Now().Truncate(time.Second)}
	require.NoError(t, s.CommitUnit(u, recs))
	require.Positive(t, u.ID)
	return u
}

func classRecord(name, parent string, caps ...string) TypeRecord {
	rec := TypeRecord{Type: Type{Name: name, Kind: "class", Instantiable: true, Parent: parent}}
	for _, c := range caps {
		rec.Capabilities = append(rec.Capabilities, Capability{Name: c, Direct: true})
	}
	if parent != "" {
		rec.Ancestors = []Ancestor{{Name: parent, Depth: 1}}
	}
	return rec
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"units", "types", "type_capabilities", "type_ancestors", "type_methods"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestNewStore_Memory(t *testing.T) {
	t.Parallel()
	s, err := NewStore(MemoryPath)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate())

	commitTestUnit(t, s, "/plugins/a.php", classRecord(`App\A`, ""))
	names, err := s.TypeNames()
	require.NoError(t, err)
	assert.Equal(t, []string{`App\A`}, names)
}

// =============================================================================
// CommitUnit
// =============================================================================

func TestCommitUnit_SetsIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	recs := []TypeRecord{classRecord("A", ""), classRecord("B", "A")}
	u := &Unit{Path: "/p/a.php", Language: "php"}
	require.NoError(t, s.CommitUnit(u, recs))

	assert.Positive(t, u.ID)
	assert.Positive(t, recs[0].Type.ID)
	assert.Greater(t, recs[1].Type.ID, recs[0].Type.ID)
	require.NotNil(t, recs[1].Type.UnitID)
	assert.Equal(t, u.ID, *recs[1].Type.UnitID)
}

func TestCommitUnit_Builtins(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	rec := TypeRecord{Type: Type{Name: "HandlerCapability", Kind: "interface"}, Required: []string{"handle"}}
	require.NoError(t, s.CommitUnit(nil, []TypeRecord{rec}))

	got, err := s.TypeByName("HandlerCapability")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.UnitID)
	assert.Empty(t, got.UnitPath)
	assert.Empty(t, got.Language)
}

func TestCommitUnit_DuplicateNameRollsBack(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	commitTestUnit(t, s, "/p/a.php", classRecord("A", ""))

	err := s.CommitUnit(&Unit{Path: "/p/b.php", Language: "php"}, []TypeRecord{classRecord("B", ""), classRecord("A", "")})
	require.Error(t, err)

	u, err := s.UnitByPath("/p/b.php")
	require.NoError(t, err)
	assert.Nil(t, u, "unit insert must roll back")
	b, err := s.TypeByName("B")
	require.NoError(t, err)
	assert.Nil(t, b, "sibling types must roll back")
}

func TestCommitUnit_DuplicatePathFails(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	commitTestUnit(t, s, "/p/a.php")
	err := s.CommitUnit(&Unit{Path: "/p/a.php", Language: "php"}, nil)
	assert.Error(t, err)
}

// =============================================================================
// Units
// =============================================================================

func TestUnitByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	want := commitTestUnit(t, s, "/p/a.php")

	got, err := s.UnitByPath("/p/a.php")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, "php", got.Language)
	assert.Equal(t, want.Hash, got.Hash)

	missing, err := s.UnitByPath("/p/none.php")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUnits_RegistrationOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	commitTestUnit(t, s, "/p/b.php")
	commitTestUnit(t, s, "/p/a.php")

	units, err := s.Units()
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "/p/b.php", units[0].Path)
	assert.Equal(t, "/p/a.php", units[1].Path)
}

// =============================================================================
// Types
// =============================================================================

func TestTypeByName_JoinsUnit(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	commitTestUnit(t, s, "/p/a.php", classRecord("A", "Base"))

	got, err := s.TypeByName("A")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/p/a.php", got.UnitPath)
	assert.Equal(t, "php", got.Language)
	assert.Equal(t, "Base", got.Parent)
	assert.True(t, got.Instantiable)

	missing, err := s.TypeByName("Nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTypesByUnit(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	u := commitTestUnit(t, s, "/p/a.php", classRecord("A", ""), classRecord("B", ""))
	commitTestUnit(t, s, "/p/c.php", classRecord("C", ""))

	types, err := s.TypesByUnit(u.ID)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "A", types[0].Name)
	assert.Equal(t, "B", types[1].Name)
}

func TestTypesAfter_Paging(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	commitTestUnit(t, s, "/p/a.php",
		classRecord("T1", ""), classRecord("T2", ""), classRecord("T3", ""), classRecord("T4", ""))

	upto, err := s.MaxTypeID()
	require.NoError(t, err)
	commitTestUnit(t, s, "/p/late.php", classRecord("Late", ""))

	var names []string
	var after int64
	for {
		page, err := s.TypesAfter(after, upto, 3)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, typ := range page {
			names = append(names, typ.Name)
		}
		after = page[len(page)-1].ID
	}
	assert.Equal(t, []string{"T1", "T2", "T3", "T4"}, names, "types past the bound are excluded")
}

func TestMaxTypeID_Empty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id, err := s.MaxTypeID()
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestTypesWithParentAndCapability(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	commitTestUnit(t, s, "/p/a.php",
		classRecord("Base", "", "Cap"),
		classRecord("Child", "Base", "Cap"),
		classRecord("Other", ""),
	)

	children, err := s.TypesWithParent("Base")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Child", children[0].Name)

	impls, err := s.TypesWithCapability("Cap")
	require.NoError(t, err)
	require.Len(t, impls, 2)
	assert.Equal(t, "Base", impls[0].Name)
	assert.Equal(t, "Child", impls[1].Name)
}

func TestTypesByNames(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	commitTestUnit(t, s, "/p/a.php", classRecord("A", ""), classRecord("B", ""), classRecord("C", ""))

	types, err := s.TypesByNames([]string{"C", "A", "missing"})
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "A", types[0].Name)
	assert.Equal(t, "C", types[1].Name)

	none, err := s.TypesByNames(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// =============================================================================
// Closures
// =============================================================================

func TestClosureLookups(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	rec := TypeRecord{
		Type:         Type{Name: "Leaf", Kind: "class", Instantiable: true, Parent: "Mid"},
		Capabilities: []Capability{{Name: "Sub", Direct: true}, {Name: "Root"}},
		Ancestors:    []Ancestor{{Name: "Top", Depth: 2}, {Name: "Mid", Depth: 1}},
		Provided:     []string{"run", "stop"},
		Required:     []string{"run"},
	}
	commitTestUnit(t, s, "/p/leaf.php", rec)
	typ, err := s.TypeByName("Leaf")
	require.NoError(t, err)

	caps, err := s.Capabilities(typ.ID)
	require.NoError(t, err)
	require.Len(t, caps, 2)
	assert.Equal(t, "Root", caps[0].Name)
	assert.False(t, caps[0].Direct)
	assert.Equal(t, "Sub", caps[1].Name)
	assert.True(t, caps[1].Direct)

	ancestors, err := s.Ancestors(typ.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, "Mid", ancestors[0].Name, "nearest first")
	assert.Equal(t, "Top", ancestors[1].Name)

	provided, err := s.Methods(typ.ID, MethodProvided)
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "stop"}, provided)
	required, err := s.Methods(typ.ID, MethodRequired)
	require.NoError(t, err)
	assert.Equal(t, []string{"run"}, required)

	ok, err := s.HasCapability(typ.ID, "Root")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasCapability(typ.ID, "Mid")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.HasAncestor(typ.ID, "Top")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasAncestor(typ.ID, "Leaf")
	require.NoError(t, err)
	assert.False(t, ok, "a type is not its own ancestor")
}

func TestContentHash(t *testing.T) {
	t.Parallel()
	a := ContentHash([]byte("<?php class A {}"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, ContentHash([]byte("<?php class A {}")))
	assert.NotEqual(t, a, ContentHash([]byte("<?php class B {}")))
}
