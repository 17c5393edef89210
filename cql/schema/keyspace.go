package schema

import "github.com/uber/kassandra/cql/value"

// StrategyKind is the replication strategy family, per keyspace.rs's
// Strategy enum.
type StrategyKind int

const (
	SimpleStrategy StrategyKind = iota
	NetworkTopologyStrategy
	LocalStrategy
	OtherStrategy
)

// Strategy is a keyspace's replication strategy. Only the Kind-appropriate
// fields are populated (the Go rendition of the original's enum variants).
type Strategy struct {
	Kind                 StrategyKind
	ReplicationFactor    int
	DatacenterRepfactors map[string]int
	Name                 string
	Data                 map[string]string
}

func (s Strategy) ClassName() string {
	switch s.Kind {
	case SimpleStrategy:
		return "SimpleStrategy"
	case NetworkTopologyStrategy:
		return "NetworkTopologyStrategy"
	case LocalStrategy:
		return "LocalStrategy"
	default:
		return s.Name
	}
}

// UserDefinedType is a CREATE TYPE definition (spec §3+ supplement: accepted
// but never executable as a column type).
type UserDefinedType struct {
	Name       string
	Keyspace   string
	FieldTypes []value.UDTField
}

// Keyspace holds a keyspace's tables, replication strategy and user-defined
// types.
type Keyspace struct {
	Name             string
	Strategy         Strategy
	Tables           map[string]*Table
	UserDefinedTypes map[string]UserDefinedType
}
