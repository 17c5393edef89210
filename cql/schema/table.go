package schema

import "sort"

// PrimaryKey names the partition- or clustering-key columns of a table, in
// declared order. Grounded on table.rs's PrimaryKey enum.
type PrimaryKey struct {
	Names []string
}

func EmptyPrimaryKey() PrimaryKey { return PrimaryKey{} }

func PrimaryKeyFromDefinition(names []string) PrimaryKey {
	return PrimaryKey{Names: names}
}

func (p PrimaryKey) Count() int { return len(p.Names) }

// TableSchema is a table's column set and primary-key layout. ColumnOrder
// records declaration order (spec §3: "Column insertion order is
// significant -- controls SELECT * ordering and the positional prepared-
// statement layout"); Columns stays a map for O(1) lookup by name.
type TableSchema struct {
	Columns       map[string]Column
	ColumnOrder   []string
	PartitionKey  PrimaryKey
	ClusteringKey PrimaryKey
	Partitioner   string
}

// OrderedColumnNames returns every column name in declaration order. If
// ColumnOrder was never populated (older call sites, or a literal built
// without it), it falls back to partition-key columns, then clustering-key
// columns, then the remaining regular/static columns in an arbitrary but
// stable (sorted) order -- deterministic, if not necessarily the original
// declaration order.
func (s TableSchema) OrderedColumnNames() []string {
	if s.ColumnOrder != nil {
		return s.ColumnOrder
	}
	seen := make(map[string]bool, len(s.Columns))
	out := make([]string, 0, len(s.Columns))
	for _, n := range s.PartitionKey.Names {
		if _, ok := s.Columns[n]; ok && !seen[n] {
			out = append(out, n)
			seen[n] = true
		}
	}
	for _, n := range s.ClusteringKey.Names {
		if _, ok := s.Columns[n]; ok && !seen[n] {
			out = append(out, n)
			seen[n] = true
		}
	}
	rest := make([]string, 0, len(s.Columns))
	for n := range s.Columns {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Table is a named, keyspace-scoped TableSchema.
type Table struct {
	Keyspace string
	Name     string
	Schema   TableSchema
}
