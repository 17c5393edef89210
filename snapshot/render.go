package snapshot

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/valyala/fastjson"

	"github.com/uber/kassandra/storage"
)

// RenderJSON writes snap as an indented JSON document: keyspace ->
// table -> rows, each row rendered through ValueToJSON so the dump uses the
// exact same value encoding as the wire-level toJson()/SELECT JSON path.
func RenderJSON(w io.Writer, snap *Data) error {
	a := &fastjson.Arena{}
	root := a.NewObject()

	ksNames := sortedKeys(snap.Keyspaces)
	for _, ksName := range ksNames {
		ks := snap.Keyspaces[ksName]
		ksObj := a.NewObject()

		tableNames := make([]string, 0, len(ks.Tables))
		for name := range ks.Tables {
			tableNames = append(tableNames, name)
		}
		sort.Strings(tableNames)

		for _, tableName := range tableNames {
			table := ks.Tables[tableName]
			rowsArr := a.NewArray()
			for i, row := range table.Rows {
				rowObj := a.NewObject()
				rowObj.Set("partition_key", a.NewString(row.PartitionKey))
				rowObj.Set("clustering_key", a.NewString(row.ClusteringKey))

				columns := sortedRowColumns(row.Data)
				dataObj := a.NewObject()
				for _, col := range columns {
					jv, err := ValueToJSON(a, row.Data[col])
					if err != nil {
						return fmt.Errorf("snapshot: rendering %s.%s.%s: %w", ksName, tableName, col, err)
					}
					dataObj.Set(col, jv)
				}
				rowObj.Set("data", dataObj)
				rowsArr.SetArrayItem(i, rowObj)
			}
			ksObj.Set(tableName, rowsArr)
		}
		root.Set(ksName, ksObj)
	}

	_, err := io.WriteString(w, root.String()+"\n")
	return err
}

// RenderTable writes snap as one colorized, human-scannable table per
// keyspace/table pair, the teacher's tools/cli idiom for dumping structured
// state (fatih/color for headers, olekukonko/tablewriter for the grid).
func RenderTable(w io.Writer, snap *Data) {
	ksNames := sortedKeys(snap.Keyspaces)
	if len(ksNames) == 0 {
		fmt.Fprintln(w, color.YellowString("(no user data)"))
		return
	}
	for _, ksName := range ksNames {
		ks := snap.Keyspaces[ksName]
		tableNames := make([]string, 0, len(ks.Tables))
		for name := range ks.Tables {
			tableNames = append(tableNames, name)
		}
		sort.Strings(tableNames)

		for _, tableName := range tableNames {
			table := ks.Tables[tableName]
			fmt.Fprintln(w, color.CyanString("%s.%s", ksName, tableName))

			columns := tableColumns(table)
			tw := tablewriter.NewWriter(w)
			header := append([]string{"partition_key", "clustering_key"}, columns...)
			tw.SetHeader(header)

			for _, row := range table.Rows {
				line := []string{row.PartitionKey, row.ClusteringKey}
				for _, col := range columns {
					v, ok := row.Data[col]
					if !ok {
						line = append(line, "")
						continue
					}
					line = append(line, v.String())
				}
				tw.Append(line)
			}
			tw.Render()
			fmt.Fprintln(w)
		}
	}
}

// tableColumns returns the union of every column name seen across a table's
// rows, sorted, so the rendered header is stable even though Go map
// iteration order is not.
func tableColumns(t Table) []string {
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		for col := range row.Data {
			seen[col] = true
		}
	}
	out := make([]string, 0, len(seen))
	for col := range seen {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

func sortedRowColumns(row storage.Row) []string {
	out := make([]string, 0, len(row))
	for col := range row {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]Keyspace) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
