// Package persist saves and restores the full engine state -- every
// non-system keyspace, table, user-defined type and row -- as a single
// self-describing document (spec §6 "Persisted state"), grounded on
// original_source/kassandra/src/kassandra.rs's save_state/load_state (which
// serializes the keyspace map wholesale with serde/ron) and
// cql/schema/persisted.rs's PersistedSchema (schema mutations replay through
// the catalog so system_schema stays in sync for free). system and
// system_schema are never persisted; BootstrapStorage regenerates them
// identically on every load.
//
// The document format is JSON rather than the original's ron: no library in
// the retrieved pack offers a ron encoder, and encoding/json's native
// []byte<->base64 handling is a precise fit for cell payloads already
// produced by protocol/codec's wire encoder, so cells round-trip through the
// exact same codec a client connection would use.
package persist

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol"
	"github.com/uber/kassandra/protocol/codec"
	"github.com/uber/kassandra/storage"
	"github.com/uber/kassandra/storage/memory"
)

// document is the on-disk shape. Every field is exported so encoding/json
// can round-trip it with no custom (Un)MarshalJSON methods anywhere in this
// package.
type document struct {
	Keyspaces []keyspaceDoc
}

type keyspaceDoc struct {
	Name     string
	Strategy schema.Strategy
	Tables   []tableDoc
	Types    []typeDoc
}

type tableDoc struct {
	Name   string
	Schema schema.TableSchema
	Rows   []rowDoc
}

type typeDoc struct {
	Name   string
	Fields []value.UDTField
}

// rowDoc stores one row's keys and columns pre-encoded through the same
// storage-key and wire codecs a live connection uses, so loading a document
// is just a Decode call away from a fresh Write.
type rowDoc struct {
	PartitionKey  []byte
	ClusteringKey []byte
	Columns       map[string][]byte
}

var systemKeyspaces = map[string]bool{"system": true, "system_schema": true}

// SaveEngine writes every user keyspace's schema and rows to path as one
// JSON document.
func SaveEngine(path string, catalog *schema.Catalog, engine storage.Engine) error {
	names := catalog.KeyspaceNames()
	sort.Strings(names)

	doc := document{}
	for _, name := range names {
		if systemKeyspaces[name] {
			continue
		}
		ks, ok := catalog.GetKeyspace(name)
		if !ok {
			continue
		}
		kd, err := encodeKeyspace(ks, engine)
		if err != nil {
			return err
		}
		doc.Keyspaces = append(doc.Keyspaces, kd)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return protocol.Newf(protocol.KindServerError, "encoding persisted state: %s", err)
	}
	return os.WriteFile(path, out, 0o644)
}

func encodeKeyspace(ks *schema.Keyspace, engine storage.Engine) (keyspaceDoc, error) {
	kd := keyspaceDoc{Name: ks.Name, Strategy: ks.Strategy}

	tableNames := make([]string, 0, len(ks.Tables))
	for name := range ks.Tables {
		tableNames = append(tableNames, name)
	}
	sort.Strings(tableNames)

	for _, name := range tableNames {
		t := ks.Tables[name]
		rows, err := engine.AllRows(ks.Name, name)
		if err != nil {
			return keyspaceDoc{}, protocol.Newf(protocol.KindServerError, "reading %s.%s: %s", ks.Name, name, err)
		}
		td := tableDoc{Name: name, Schema: t.Schema}
		for _, entry := range rows {
			rd, err := encodeRow(entry)
			if err != nil {
				return keyspaceDoc{}, protocol.Newf(protocol.KindServerError, "encoding row in %s.%s: %s", ks.Name, name, err)
			}
			td.Rows = append(td.Rows, rd)
		}
		kd.Tables = append(kd.Tables, td)
	}

	typeNames := make([]string, 0, len(ks.UserDefinedTypes))
	for name := range ks.UserDefinedTypes {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)
	for _, name := range typeNames {
		udt := ks.UserDefinedTypes[name]
		kd.Types = append(kd.Types, typeDoc{Name: name, Fields: udt.FieldTypes})
	}

	return kd, nil
}

func encodeRow(entry storage.RowEntry) (rowDoc, error) {
	pk, err := codec.EncodePartitionKey(entry.Partition)
	if err != nil {
		return rowDoc{}, err
	}
	ck, err := codec.EncodeClusteringKey(entry.Clustering)
	if err != nil {
		return rowDoc{}, err
	}
	columns := make(map[string][]byte, len(entry.Row))
	for name, v := range entry.Row {
		data, err := codec.EncodeValue(v)
		if err != nil {
			return rowDoc{}, err
		}
		columns[name] = data
	}
	return rowDoc{PartitionKey: pk, ClusteringKey: ck, Columns: columns}, nil
}

// LoadEngine reads path (if present) and returns a freshly bootstrapped
// catalog and engine with every persisted keyspace/table/type/row replayed
// into it. A missing file is not an error: it returns an empty, bootstrapped
// pair, the shape a first-ever run boots with.
func LoadEngine(path string) (*schema.Catalog, storage.Engine, error) {
	catalog := schema.NewCatalog()
	engine := memory.New()
	if err := catalog.BootstrapStorage(engine); err != nil {
		return nil, nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return catalog, engine, nil
		}
		return nil, nil, protocol.Newf(protocol.KindServerError, "reading persisted state: %s", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, protocol.Newf(protocol.KindServerError, "decoding persisted state: %s", err)
	}

	for _, kd := range doc.Keyspaces {
		if _, err := catalog.CreateKeyspace(engine, kd.Name, false, kd.Strategy); err != nil {
			return nil, nil, err
		}
		for _, td := range kd.Tables {
			if _, err := catalog.CreateTable(engine, kd.Name, td.Name, false, td.Schema); err != nil {
				return nil, nil, err
			}
		}
		for _, typ := range kd.Types {
			if err := catalog.CreateType(engine, kd.Name, typ.Name, typ.Fields); err != nil {
				return nil, nil, err
			}
		}
		for _, td := range kd.Tables {
			if err := loadRows(engine, kd.Name, td); err != nil {
				return nil, nil, err
			}
		}
	}

	return catalog, engine, nil
}

func loadRows(engine storage.Engine, keyspace string, td tableDoc) error {
	pkTypes := make([]value.Type, 0, len(td.Schema.PartitionKey.Names))
	for _, name := range td.Schema.PartitionKey.Names {
		pkTypes = append(pkTypes, td.Schema.Columns[name].Type)
	}
	ckTypes := make([]value.Type, 0, len(td.Schema.ClusteringKey.Names))
	for _, name := range td.Schema.ClusteringKey.Names {
		ckTypes = append(ckTypes, td.Schema.Columns[name].Type)
	}

	for _, rd := range td.Rows {
		pk, err := codec.DecodePartitionKey(rd.PartitionKey, pkTypes)
		if err != nil {
			return protocol.Newf(protocol.KindServerError, "decoding partition key in %s.%s: %s", keyspace, td.Name, err)
		}
		// A table with no clustering columns stores every row under
		// value.EmptyClusteringKey() (cql/plan/build.go's fullClusteringKey),
		// not a zero-length composite -- the two compare unequal, so this
		// case must be special-cased rather than handed to DecodeClusteringKey
		// with an empty type list.
		ck := value.EmptyClusteringKey()
		if len(ckTypes) > 0 {
			ck, err = codec.DecodeClusteringKey(rd.ClusteringKey, ckTypes)
			if err != nil {
				return protocol.Newf(protocol.KindServerError, "decoding clustering key in %s.%s: %s", keyspace, td.Name, err)
			}
		}
		row := make(storage.Row, len(rd.Columns))
		for name, data := range rd.Columns {
			col, ok := td.Schema.Columns[name]
			if !ok {
				continue
			}
			v, err := codec.DecodeValue(data, col.Type)
			if err != nil {
				return protocol.Newf(protocol.KindServerError, "decoding column %s in %s.%s: %s", name, keyspace, td.Name, err)
			}
			row[name] = v
		}
		if err := engine.Write(keyspace, td.Name, pk, ck, row); err != nil {
			return protocol.Newf(protocol.KindServerError, "replaying row into %s.%s: %s", keyspace, td.Name, err)
		}
	}
	return nil
}
