package schema

import (
	"net"
	"strconv"

	"github.com/dgryski/go-farm"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol"
	"github.com/uber/kassandra/storage"
)

// Boot-time identifiers for system.local, fixed so a driver's session/
// metadata cache sees the same cluster identity across restarts (spec §4.C
// "These values must be stable across runs"). google/uuid parses the
// literal strings; gocql.UUID shares uuid.UUID's [16]byte layout so the
// conversion is a straight array cast.
const (
	localClusterName       = "kassandra"
	localDatacenter        = "datacenter1"
	localRack              = "rack1"
	localReleaseVersion    = "3.11.4"
	localCQLVersion        = "3.0.0"
	localNativeProtocolVer = "4"
	localPartitioner       = "org.apache.cassandra.dht.Murmur3Partitioner"
)

var (
	localHostID        = gocql.UUID(uuid.MustParse("00000000-0000-4000-8000-000000000001"))
	localSchemaVersion = gocql.UUID(uuid.MustParse("00000000-0000-4000-8000-000000000002"))
	localAddress       = net.IPv4(127, 0, 0, 1)
)

// localToken is the single deterministic token system.local/system.peers
// advertise (spec §4.C "a token set of at least one element"), standing in
// for Murmur3Partitioner's hash ring: FarmHash64 of a fixed seed, rendered
// as the decimal string real Cassandra's tokens column uses.
func localToken() string {
	h := farm.Fingerprint64([]byte("kassandra-single-node-token"))
	// Cassandra tokens are signed 64-bit decimal strings; fold into the
	// Murmur3Partitioner's signed range the same way a real token does.
	return itoa64(int64(h))
}

func itoa64(n int64) string {
	return strconv.FormatInt(n, 10)
}

// insertSystemLocalRow writes the single system.local row every Cassandra
// driver's control connection reads on startup, with deterministic
// identifiers (spec §4.C). Grounded on system.rs's bootstrap which inserts
// an equivalent row at schema initialization time.
func insertSystemLocalRow(eng storage.Engine) error {
	pk := value.NewSimplePartitionKey(value.Text("local"))
	err := eng.Write("system", "local", pk, value.EmptyClusteringKey(), storage.Row{
		"key":                     value.Text("local"),
		"bootstrapped":            value.Text("COMPLETED"),
		"broadcast_address":       value.Inet{IP: localAddress},
		"cluster_name":            value.Text(localClusterName),
		"cql_version":             value.Text(localCQLVersion),
		"data_center":             value.Text(localDatacenter),
		"gossip_generation":       value.Int(1),
		"host_id":                 value.Uuid{U: localHostID},
		"listen_address":          value.Inet{IP: localAddress},
		"native_protocol_version": value.Text(localNativeProtocolVer),
		"partitioner":             value.Text(localPartitioner),
		"rack":                    value.Text(localRack),
		"release_version":         value.Text(localReleaseVersion),
		"rpc_address":             value.Inet{IP: localAddress},
		"schema_version":          value.Uuid{U: localSchemaVersion},
		"tokens":                  value.Set{value.Text(localToken())},
		"truncated_at":            value.Map{},
	})
	if err != nil {
		return protocol.Newf(protocol.KindServerError, "persist system.local row: %s", err)
	}
	return nil
}
