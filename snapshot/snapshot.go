package snapshot

import (
	"sort"
	"strings"

	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/storage"
)

// systemKeyspaces are never included in a snapshot (spec §6: "ground truth
// excludes the database's own bookkeeping").
var systemKeyspaces = map[string]bool{
	"system":        true,
	"system_schema": true,
}

// Table is every row of one table, grounded on
// original_source/kassandra/src/snapshot/mod.rs's TableDataSnapshot.
type Table struct {
	Rows []Row
}

// Row is a single stored row plus the primary-key components it lives under.
type Row struct {
	PartitionKey  string
	ClusteringKey string
	Data          storage.Row
}

// Keyspace is every non-empty table of one keyspace.
type Keyspace struct {
	Tables map[string]Table
}

// Data is a full snapshot: every user keyspace with at least one non-empty
// table.
type Data struct {
	Keyspaces map[string]Keyspace
}

// Build walks every user keyspace/table in catalog, reading engine for rows,
// and assembles a Data snapshot. Grounded on
// original_source/kassandra/src/snapshot/mod.rs's DataSnapshots::from_keyspaces
// and TableDataSnapshot::from; tables with zero rows are dropped the same way.
func Build(catalog *schema.Catalog, engine storage.Engine) (*Data, error) {
	out := &Data{Keyspaces: make(map[string]Keyspace)}
	names := catalog.KeyspaceNames()
	sort.Strings(names)
	for _, ksName := range names {
		if systemKeyspaces[ksName] {
			continue
		}
		ks, ok := catalog.GetKeyspace(ksName)
		if !ok {
			continue
		}
		tableNames := make([]string, 0, len(ks.Tables))
		for name := range ks.Tables {
			tableNames = append(tableNames, name)
		}
		sort.Strings(tableNames)

		tables := make(map[string]Table)
		for _, tableName := range tableNames {
			entries, err := engine.AllRows(ksName, tableName)
			if err != nil {
				return nil, err
			}
			if len(entries) == 0 {
				continue
			}
			rows := make([]Row, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, Row{
					PartitionKey:  partitionKeyString(e.Partition),
					ClusteringKey: clusteringKeyString(e.Clustering),
					Data:          e.Row,
				})
			}
			tables[tableName] = Table{Rows: rows}
		}
		if len(tables) == 0 {
			continue
		}
		out.Keyspaces[ksName] = Keyspace{Tables: tables}
	}
	return out, nil
}

func partitionKeyString(p value.PartitionKeyValue) string {
	switch p.Kind {
	case value.PartitionSimple:
		return p.Simple.String()
	case value.PartitionComposite:
		parts := make([]string, len(p.Composite))
		for i, v := range p.Composite {
			parts[i] = v.String()
		}
		return strings.Join(parts, "|")
	default:
		return ""
	}
}

func clusteringKeyString(c value.ClusteringKeyValue) string {
	switch c.Kind {
	case value.ClusteringSimple:
		return slotString(c.Simple)
	case value.ClusteringComposite:
		parts := make([]string, len(c.Composite))
		for i, s := range c.Composite {
			parts[i] = slotString(s)
		}
		return strings.Join(parts, "|")
	default:
		return ""
	}
}

func slotString(s value.ClusteringSlot) string {
	if !s.Present {
		return "null"
	}
	return s.Value.String()
}
