package plugscan

import (
	"fmt"
	"strings"

	"github.com/jward/plugscan/internal/store"
)

// Pagination controls offset+limit paging on list results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortByID   SortField = "id"
	SortByName SortField = "name"
	SortByKind SortField = "kind"
	SortByPath SortField = "path"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering. The zero value orders by registration.
type Sort struct {
	Field SortField
	Order SortOrder
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"` // total matching results (before pagination)
}

// TypeFilter specifies which registered types to list.
type TypeFilter struct {
	Kinds        []string // match any of these kinds
	Instantiable *bool    // exact match
	Capability   *string  // capability closure contains this name
	PathPrefix   *string  // defined by a unit under this directory
	Builtin      *bool    // true for builtins only, false for unit types only
}

// Types lists registered types matching filter.
func (q *QueryBuilder) Types(filter TypeFilter, sort Sort, page Pagination) (*PagedResult[*Descriptor], error) {
	page = page.normalize()

	var where []string
	var args []any
	if len(filter.Kinds) > 0 {
		where = append(where, "t.kind IN ("+placeholders(len(filter.Kinds))+")")
		for _, k := range filter.Kinds {
			args = append(args, k)
		}
	}
	if filter.Instantiable != nil {
		where = append(where, "t.instantiable = ?")
		args = append(args, *filter.Instantiable)
	}
	if filter.Capability != nil {
		where = append(where, "EXISTS (SELECT 1 FROM type_capabilities c WHERE c.type_id = t.id AND c.capability = ?)")
		args = append(args, *filter.Capability)
	}
	if filter.PathPrefix != nil {
		prefix := normalizePathPrefix(*filter.PathPrefix)
		if prefix != "" {
			where = append(where, "u.path LIKE ? ESCAPE '\\'")
			args = append(args, escapeLike(prefix)+"%")
		}
	}
	if filter.Builtin != nil {
		if *filter.Builtin {
			where = append(where, "t.unit_id IS NULL")
		} else {
			where = append(where, "t.unit_id IS NOT NULL")
		}
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var totalCount int
	countQuery := "SELECT COUNT(*)" + store.TypeFrom + whereClause
	if err := q.store.DB().QueryRow(countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("types: count: %w", err)
	}

	query := "SELECT " + store.TypeCols + store.TypeFrom + whereClause +
		" ORDER BY " + typeSortColumn(sort.Field) + " " + sortDirection(sort.Order) + ", t.id" +
		" LIMIT ? OFFSET ?"
	rows, err := q.store.DB().Query(query, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("types: %w", err)
	}
	var types []*store.Type
	for rows.Next() {
		t, err := store.ScanTypeRow(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("types: scan: %w", err)
		}
		types = append(types, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("types: %w", err)
	}

	// Describe after the rows are closed; the store holds a single connection.
	items := make([]*Descriptor, 0, len(types))
	for _, t := range types {
		d, err := q.reg.Describe(t)
		if err != nil {
			return nil, fmt.Errorf("types: %w", err)
		}
		items = append(items, d)
	}
	return &PagedResult[*Descriptor]{Items: items, TotalCount: totalCount}, nil
}

// --- Internal Helpers ---

// typeSortColumn returns the SQL ORDER BY expression for type queries.
// Falls back to registration order for unknown fields.
func typeSortColumn(field SortField) string {
	switch field {
	case SortByName:
		return "t.name"
	case SortByKind:
		return "t.kind"
	case SortByPath:
		return "COALESCE(u.path, '')"
	default:
		return "t.id"
	}
}

func sortDirection(order SortOrder) string {
	if order == Desc {
		return "DESC"
	}
	return "ASC"
}

// normalizePathPrefix ensures a path prefix ends with "/" for correct LIKE matching.
// "plugins/rules" -> "plugins/rules/" to prevent matching "plugins/rules_old/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// escapeLike escapes LIKE wildcards so s matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
