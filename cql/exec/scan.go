package exec

import (
	"math"

	"github.com/uber/kassandra/cql/plan"
	"github.com/uber/kassandra/protocol/codec"
	"github.com/uber/kassandra/storage"
)

// executeScan reads across every partition matching p.PartitionRange,
// chunking the result into one result_page_size page and, if more rows
// remain, a PagingState pointing at the first undelivered row. Grounded on
// original_source/kassandra/src/cql/execution/scan.rs's ScanNode: the
// clustering-range filter applies only within the first partition
// encountered (the one a resumed scan is continuing mid-partition);
// subsequent partitions are read in full.
func executeScan(p *plan.ScanPlan, engine storage.Engine, resume *codec.PagingState) (Result, error) {
	entries, err := engine.Scan(p.Keyspace, p.Table, p.PartitionRange)
	if err != nil {
		return Result{}, err
	}

	limit := int64(math.MaxInt64)
	if p.HasLimit {
		limit = p.Limit
	}
	if int64(len(entries)) > limit {
		entries = entries[:limit]
	}

	if resume != nil && len(resume.PartitionKey) > 0 {
		entries = skipToResumePoint(entries, resume)
	}

	var rows [][]Cell
	var first storage.RowEntry
	var firstSeen bool
	var pageEntry *storage.RowEntry

	for i := range entries {
		e := entries[i]
		if len(rows) >= int(p.ResultPageSize) {
			pageEntry = &entries[i]
			break
		}
		if !firstSeen {
			first = e
			firstSeen = true
		}
		if e.Partition.Compare(first.Partition) == 0 && !p.ClusteringRangeForFirstPartition.Contains(e.Clustering) {
			continue
		}
		cells, err := project(e.Row, p.Selectors)
		if err != nil {
			return Result{}, err
		}
		rows = append(rows, cells)
	}

	var paging *codec.PagingState
	if pageEntry != nil {
		pk, err := codec.EncodePartitionKey(pageEntry.Partition)
		if err != nil {
			return Result{}, err
		}
		rm, err := codec.EncodeClusteringKey(pageEntry.Clustering)
		if err != nil {
			return Result{}, err
		}
		paging = &codec.PagingState{
			PartitionKey:         pk,
			RowMark:              rm,
			Remaining:            uint64(limit - int64(len(rows))),
			RemainingInPartition: 1,
		}
	}

	return Result{Kind: KindRows, Rows: &Rows{Metadata: p.Metadata, Values: rows, PagingState: paging}}, nil
}

// skipToResumePoint drops every entry before the resume token's
// (partition, clustering) position. The token marks the first row the
// previous page did not deliver, so the resumed scan starts with that row.
// If no entry matches the token, every entry is returned.
func skipToResumePoint(entries []storage.RowEntry, resume *codec.PagingState) []storage.RowEntry {
	for i, e := range entries {
		pk, err := codec.EncodePartitionKey(e.Partition)
		if err != nil {
			continue
		}
		if string(pk) != string(resume.PartitionKey) {
			continue
		}
		rm, err := codec.EncodeClusteringKey(e.Clustering)
		if err != nil {
			continue
		}
		if string(rm) == string(resume.RowMark) {
			return entries[i:]
		}
	}
	return entries
}
