// Package memory implements storage.Engine entirely in process memory,
// nesting ordered maps the way the original's storage/memory.rs nests
// BTreeMaps: keyspace -> table -> partition key -> clustering key -> row.
// Access is not internally synchronized; package server serializes every
// request behind a single mutex (spec §5), matching the original where
// Memory itself carries no lock either.
package memory

import (
	"fmt"

	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/storage"
	"github.com/uber/kassandra/storage/omap"
)

type partitionMap = *omap.Map[value.PartitionKeyValue, *clusteringMap]
type clusteringMap = omap.Map[value.ClusteringKeyValue, storage.Row]

// Engine is the in-memory storage.Engine implementation.
type Engine struct {
	data map[string]map[string]partitionMap
}

func New() *Engine {
	return &Engine{data: map[string]map[string]partitionMap{}}
}

func comparePartition(a, b value.PartitionKeyValue) int { return a.Compare(b) }
func compareClustering(a, b value.ClusteringKeyValue) int { return a.Compare(b) }

func (e *Engine) CreateKeyspace(keyspace string) error {
	if _, ok := e.data[keyspace]; ok {
		return nil
	}
	e.data[keyspace] = map[string]partitionMap{}
	return nil
}

func (e *Engine) DropKeyspace(keyspace string) error {
	delete(e.data, keyspace)
	return nil
}

func (e *Engine) CreateTable(keyspace, table string) error {
	ks, ok := e.data[keyspace]
	if !ok {
		return fmt.Errorf("storage: keyspace %q does not exist", keyspace)
	}
	ks[table] = omap.New[value.PartitionKeyValue, *clusteringMap](comparePartition)
	return nil
}

func (e *Engine) DropTable(keyspace, table string) error {
	ks, ok := e.data[keyspace]
	if !ok {
		return nil
	}
	delete(ks, table)
	return nil
}

func (e *Engine) table(keyspace, table string) (partitionMap, error) {
	ks, ok := e.data[keyspace]
	if !ok {
		return nil, fmt.Errorf("storage: keyspace %q does not exist", keyspace)
	}
	t, ok := ks[table]
	if !ok {
		return nil, fmt.Errorf("storage: table %q.%q does not exist", keyspace, table)
	}
	return t, nil
}

func (e *Engine) Write(keyspace, table string, pk value.PartitionKeyValue, ck value.ClusteringKeyValue, values storage.Row) error {
	t, err := e.table(keyspace, table)
	if err != nil {
		return err
	}
	partition := t.GetOrInsert(pk, func() *clusteringMap {
		return omap.New[value.ClusteringKeyValue, storage.Row](compareClustering)
	})
	row, ok := partition.Get(ck)
	if !ok {
		row = storage.Row{}
	} else {
		row = row.Clone()
	}
	for k, v := range values {
		row[k] = v
	}
	partition.Put(ck, row)
	return nil
}

func (e *Engine) Delete(keyspace, table string, pk value.PartitionKeyValue, ck value.ClusteringKeyValue) error {
	t, err := e.table(keyspace, table)
	if err != nil {
		return err
	}
	if ck.Kind == value.ClusteringEmpty {
		t.Delete(pk)
		return nil
	}
	partition, ok := t.Get(pk)
	if !ok {
		return nil
	}
	partition.Delete(ck)
	if partition.Len() == 0 {
		t.Delete(pk)
	}
	return nil
}

func (e *Engine) Read(keyspace, table string, pk value.PartitionKeyValue, rng value.ClusteringKeyValueRange) ([]storage.RowEntry, error) {
	t, err := e.table(keyspace, table)
	if err != nil {
		return nil, err
	}
	partition, ok := t.Get(pk)
	if !ok {
		return nil, nil
	}
	entries := partition.Range(func(ck value.ClusteringKeyValue) bool { return rng.Contains(ck) })
	out := make([]storage.RowEntry, 0, len(entries))
	for _, ent := range entries {
		out = append(out, storage.RowEntry{Partition: pk, Clustering: ent.Key, Row: ent.Val})
	}
	return out, nil
}

func (e *Engine) Scan(keyspace, table string, rng value.PartitionKeyValueRange) ([]storage.RowEntry, error) {
	t, err := e.table(keyspace, table)
	if err != nil {
		return nil, err
	}
	partitions := t.Range(func(pk value.PartitionKeyValue) bool { return rng.Contains(pk) })
	out := make([]storage.RowEntry, 0)
	for _, p := range partitions {
		for _, row := range p.Val.All() {
			out = append(out, storage.RowEntry{Partition: p.Key, Clustering: row.Key, Row: row.Val})
		}
	}
	return out, nil
}

func (e *Engine) AllRows(keyspace, table string) ([]storage.RowEntry, error) {
	return e.Scan(keyspace, table, value.FullPartitionRange())
}
