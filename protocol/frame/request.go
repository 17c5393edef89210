package frame

// QueryFlags is the QUERY/EXECUTE/BATCH flags byte (spec §4.G): bit layout
// matches Cassandra exactly.
type QueryFlags byte

const (
	FlagValues              QueryFlags = 0x01
	FlagSkipMetadata        QueryFlags = 0x02
	FlagPageSize            QueryFlags = 0x04
	FlagWithPagingState     QueryFlags = 0x08
	FlagWithSerialConsist   QueryFlags = 0x10
	FlagWithDefaultTimestamp QueryFlags = 0x20
	FlagWithNamesForValues  QueryFlags = 0x40

	knownQueryFlags = FlagValues | FlagSkipMetadata | FlagPageSize |
		FlagWithPagingState | FlagWithSerialConsist | FlagWithDefaultTimestamp |
		FlagWithNamesForValues
)

// BoundValue is one positional (or named) query parameter as it arrives off
// the wire, still in raw [value] form.
type BoundValue struct {
	Name   string // empty unless WITH_NAMES_FOR_VALUES was set
	Data   []byte
	Null   bool
	NotSet bool
}

// QueryParameters is the block shared by QUERY, EXECUTE and each BATCH
// sub-query (spec §4.G).
type QueryParameters struct {
	Consistency        int16
	Values             []BoundValue
	SkipMetadata       bool
	ResultPageSize     int32
	HasPageSize        bool
	PagingState        []byte
	SerialConsistency  int16
	HasSerialConsist   bool
	DefaultTimestamp   int64
	HasDefaultTimestamp bool
}

func parseQueryParameters(r *reader) (QueryParameters, error) {
	consistency, err := r.readShort()
	if err != nil {
		return QueryParameters{}, err
	}
	flagsByte, err := r.readByte()
	if err != nil {
		return QueryParameters{}, err
	}
	flags := QueryFlags(flagsByte)
	if flags&^knownQueryFlags != 0 {
		return QueryParameters{}, protocolErrorf("unknown query flag bits 0x%02x", flags&^knownQueryFlags)
	}

	p := QueryParameters{Consistency: int16(consistency)}
	p.SkipMetadata = flags&FlagSkipMetadata != 0

	if flags&FlagValues != 0 {
		count, err := r.readShort()
		if err != nil {
			return QueryParameters{}, err
		}
		p.Values = make([]BoundValue, count)
		for i := range p.Values {
			if flags&FlagWithNamesForValues != 0 {
				name, err := r.readString()
				if err != nil {
					return QueryParameters{}, err
				}
				p.Values[i].Name = name
			}
			data, null, notSet, err := r.readValue()
			if err != nil {
				return QueryParameters{}, err
			}
			p.Values[i].Data = data
			p.Values[i].Null = null
			p.Values[i].NotSet = notSet
		}
	}

	if flags&FlagPageSize != 0 {
		n, err := r.readInt()
		if err != nil {
			return QueryParameters{}, err
		}
		p.ResultPageSize = n
		p.HasPageSize = true
	}
	if flags&FlagWithPagingState != 0 {
		b, err := r.readBytes()
		if err != nil {
			return QueryParameters{}, err
		}
		p.PagingState = b
	}
	if flags&FlagWithSerialConsist != 0 {
		n, err := r.readShort()
		if err != nil {
			return QueryParameters{}, err
		}
		p.SerialConsistency = int16(n)
		p.HasSerialConsist = true
	}
	if flags&FlagWithDefaultTimestamp != 0 {
		n, err := r.readLong()
		if err != nil {
			return QueryParameters{}, err
		}
		p.DefaultTimestamp = n
		p.HasDefaultTimestamp = true
	}
	return p, nil
}

// StartupRequest is STARTUP's body: connection options, CQL_VERSION in
// particular.
type StartupRequest struct {
	Options map[string]string
}

func parseStartup(r *reader) (StartupRequest, error) {
	opts, err := r.readStringMap()
	if err != nil {
		return StartupRequest{}, err
	}
	return StartupRequest{Options: opts}, nil
}

// QueryRequest is QUERY's body.
type QueryRequest struct {
	Query      string
	Parameters QueryParameters
}

func parseQuery(r *reader) (QueryRequest, error) {
	q, err := r.readLongString()
	if err != nil {
		return QueryRequest{}, err
	}
	params, err := parseQueryParameters(r)
	if err != nil {
		return QueryRequest{}, err
	}
	return QueryRequest{Query: q, Parameters: params}, nil
}

// PrepareRequest is PREPARE's body.
type PrepareRequest struct {
	Query string
}

func parsePrepare(r *reader) (PrepareRequest, error) {
	q, err := r.readLongString()
	if err != nil {
		return PrepareRequest{}, err
	}
	return PrepareRequest{Query: q}, nil
}

// ExecuteRequest is EXECUTE's body.
type ExecuteRequest struct {
	ID         []byte
	Parameters QueryParameters
}

func parseExecute(r *reader) (ExecuteRequest, error) {
	id, err := r.readShortBytes()
	if err != nil {
		return ExecuteRequest{}, err
	}
	params, err := parseQueryParameters(r)
	if err != nil {
		return ExecuteRequest{}, err
	}
	return ExecuteRequest{ID: id, Parameters: params}, nil
}

// RegisterRequest is REGISTER's body: the event types the connection wants
// to subscribe to. This server never raises schema/status/topology events
// on its own initiative, so REGISTER is acknowledged but otherwise inert.
type RegisterRequest struct {
	EventTypes []string
}

func parseRegister(r *reader) (RegisterRequest, error) {
	types, err := r.readStringList()
	if err != nil {
		return RegisterRequest{}, err
	}
	return RegisterRequest{EventTypes: types}, nil
}

// BatchKind is BATCH's logged/unlogged/counter discriminator. The
// distinction carries no behavioral weight here (spec §1 non-goal: no
// LWT/consensus), every batch just runs its statements in order.
type BatchKind byte

const (
	BatchLogged   BatchKind = 0
	BatchUnlogged BatchKind = 1
	BatchCounter  BatchKind = 2
)

// BatchStatementKind discriminates a batch sub-query: a query string or a
// prepared-statement id.
type BatchStatementKind byte

const (
	BatchStatementQuery    BatchStatementKind = 0
	BatchStatementPrepared BatchStatementKind = 1
)

// BatchStatement is one statement inside a BATCH request.
type BatchStatement struct {
	Kind   BatchStatementKind
	Query  string
	ID     []byte
	Values []BoundValue
}

// BatchRequest is BATCH's body.
type BatchRequest struct {
	Kind       BatchKind
	Statements []BatchStatement
	Consistency int16
	SerialConsistency   int16
	HasSerialConsist    bool
	DefaultTimestamp    int64
	HasDefaultTimestamp bool
}

func parseBatch(r *reader) (BatchRequest, error) {
	kindByte, err := r.readByte()
	if err != nil {
		return BatchRequest{}, err
	}
	n, err := r.readShort()
	if err != nil {
		return BatchRequest{}, err
	}
	statements := make([]BatchStatement, n)
	for i := range statements {
		skByte, err := r.readByte()
		if err != nil {
			return BatchRequest{}, err
		}
		sk := BatchStatementKind(skByte)
		st := BatchStatement{Kind: sk}
		switch sk {
		case BatchStatementQuery:
			st.Query, err = r.readLongString()
		case BatchStatementPrepared:
			st.ID, err = r.readShortBytes()
		default:
			return BatchRequest{}, protocolErrorf("unknown batch statement kind %d", skByte)
		}
		if err != nil {
			return BatchRequest{}, err
		}
		valueCount, err := r.readShort()
		if err != nil {
			return BatchRequest{}, err
		}
		st.Values = make([]BoundValue, valueCount)
		for j := range st.Values {
			data, null, notSet, err := r.readValue()
			if err != nil {
				return BatchRequest{}, err
			}
			st.Values[j] = BoundValue{Data: data, Null: null, NotSet: notSet}
		}
		statements[i] = st
	}

	consistency, err := r.readShort()
	if err != nil {
		return BatchRequest{}, err
	}
	flagsByte, err := r.readByte()
	if err != nil {
		return BatchRequest{}, err
	}
	flags := QueryFlags(flagsByte)

	req := BatchRequest{
		Kind:        BatchKind(kindByte),
		Statements:  statements,
		Consistency: int16(consistency),
	}
	if flags&FlagWithSerialConsist != 0 {
		sc, err := r.readShort()
		if err != nil {
			return BatchRequest{}, err
		}
		req.SerialConsistency = int16(sc)
		req.HasSerialConsist = true
	}
	if flags&FlagWithDefaultTimestamp != 0 {
		ts, err := r.readLong()
		if err != nil {
			return BatchRequest{}, err
		}
		req.DefaultTimestamp = ts
		req.HasDefaultTimestamp = true
	}
	return req, nil
}

// Request is the closed sum of every request body this server parses.
// OPTIONS and AUTH_RESPONSE carry no body worth a field here: OPTIONS has
// none, and AUTH_RESPONSE is rejected before this struct is ever built.
type Request struct {
	Opcode   OpCode
	Startup  *StartupRequest
	Query    *QueryRequest
	Prepare  *PrepareRequest
	Execute  *ExecuteRequest
	Register *RegisterRequest
	Batch    *BatchRequest
}

// Parse decodes h's body into a Request. OPTIONS and AUTH_RESPONSE carry no
// parseable payload this server interprets; callers dispatch on h.Opcode
// directly for those.
func Parse(h Header, body []byte) (Request, error) {
	r := newReader(body)
	req := Request{Opcode: h.Opcode}
	var err error
	switch h.Opcode {
	case OpStartup:
		var s StartupRequest
		s, err = parseStartup(r)
		req.Startup = &s
	case OpOptions:
		// no body
	case OpQuery:
		var q QueryRequest
		q, err = parseQuery(r)
		req.Query = &q
	case OpPrepare:
		var p PrepareRequest
		p, err = parsePrepare(r)
		req.Prepare = &p
	case OpExecute:
		var e ExecuteRequest
		e, err = parseExecute(r)
		req.Execute = &e
	case OpRegister:
		var rr RegisterRequest
		rr, err = parseRegister(r)
		req.Register = &rr
	case OpBatch:
		var b BatchRequest
		b, err = parseBatch(r)
		req.Batch = &b
	case OpAuthResponse:
		// accepted as an opcode but unimplemented (spec §4.G): the caller
		// closes the connection without attempting to parse the token.
	default:
		return Request{}, protocolErrorf("unsupported opcode 0x%02x", byte(h.Opcode))
	}
	if err != nil {
		return Request{}, err
	}
	return req, nil
}
