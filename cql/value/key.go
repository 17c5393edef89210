package value

// PartitionKind distinguishes the three shapes a PartitionKeyValue can take
// (spec §3).
type PartitionKind int

const (
	PartitionEmpty PartitionKind = iota
	PartitionSimple
	PartitionComposite
)

// PartitionKeyValue is the partition-key component of a row's primary key.
// Partition keys must never be null (spec §3 invariants).
type PartitionKeyValue struct {
	Kind      PartitionKind
	Simple    Value
	Composite []Value
}

func NewSimplePartitionKey(v Value) PartitionKeyValue {
	return PartitionKeyValue{Kind: PartitionSimple, Simple: v}
}

func NewCompositePartitionKey(vs []Value) PartitionKeyValue {
	return PartitionKeyValue{Kind: PartitionComposite, Composite: vs}
}

// Compare implements the total order over partition keys: lexicographic on
// the composite tuple (spec §4.A).
func (p PartitionKeyValue) Compare(o PartitionKeyValue) int {
	if p.Kind == PartitionEmpty || o.Kind == PartitionEmpty {
		return compareInt64(int64(kindRank(p.Kind)), int64(kindRank(o.Kind)))
	}
	a, b := p.slots(), o.slots()
	return compareSlice(a, b)
}

func kindRank(k PartitionKind) int {
	if k == PartitionEmpty {
		return 0
	}
	return 1
}

func (p PartitionKeyValue) slots() []Value {
	if p.Kind == PartitionSimple {
		return []Value{p.Simple}
	}
	return p.Composite
}

// ClusteringKind distinguishes the three shapes a ClusteringKeyValue can take.
type ClusteringKind int

const (
	ClusteringEmpty ClusteringKind = iota
	ClusteringSimple
	ClusteringComposite
)

// ClusteringSlot is a single clustering-key component. Null components are
// legal (spec §3) and order strictly below any concrete value of the slot's
// type.
type ClusteringSlot struct {
	Present bool
	Value   Value
}

func Present(v Value) ClusteringSlot { return ClusteringSlot{Present: true, Value: v} }
func Null() ClusteringSlot           { return ClusteringSlot{} }

func (s ClusteringSlot) Compare(o ClusteringSlot) int {
	switch {
	case !s.Present && !o.Present:
		return 0
	case !s.Present:
		return -1
	case !o.Present:
		return 1
	default:
		return s.Value.Compare(o.Value)
	}
}

// ClusteringKeyValue is the clustering-key component of a row's primary key.
// Empty is the clustering key every row of a table with no clustering
// columns is stored under; passed to a storage Delete it stands for the
// whole partition. It sorts above every concrete clustering key.
type ClusteringKeyValue struct {
	Kind      ClusteringKind
	Simple    ClusteringSlot
	Composite []ClusteringSlot
}

func NewSimpleClusteringKey(s ClusteringSlot) ClusteringKeyValue {
	return ClusteringKeyValue{Kind: ClusteringSimple, Simple: s}
}

func NewCompositeClusteringKey(slots []ClusteringSlot) ClusteringKeyValue {
	return ClusteringKeyValue{Kind: ClusteringComposite, Composite: slots}
}

func EmptyClusteringKey() ClusteringKeyValue {
	return ClusteringKeyValue{Kind: ClusteringEmpty}
}

func (c ClusteringKeyValue) slots() []ClusteringSlot {
	switch c.Kind {
	case ClusteringSimple:
		return []ClusteringSlot{c.Simple}
	case ClusteringComposite:
		return c.Composite
	default:
		return nil
	}
}

// Compare implements the total order over clustering keys, with Empty acting
// as a sentinel that sorts strictly above any concrete key of the same
// table (design note §9: "the upper bound is Empty" trick).
func (c ClusteringKeyValue) Compare(o ClusteringKeyValue) int {
	if c.Kind == ClusteringEmpty && o.Kind == ClusteringEmpty {
		return 0
	}
	if c.Kind == ClusteringEmpty {
		return 1
	}
	if o.Kind == ClusteringEmpty {
		return -1
	}
	a, b := c.slots(), o.slots()
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if cmp := a[i].Compare(b[i]); cmp != 0 {
			return cmp
		}
	}
	return compareInt64(int64(len(a)), int64(len(b)))
}

// ClusteringKeyValueRange matches every clustering key whose leading
// len(Prefix) slots equal Prefix, in order; any further slots are
// unconstrained. This is design note §9's "Unbounded" resolution of the
// spec's flagged ambiguity: a generic inclusive Lower/Upper range built from
// CqlValue::Empty as an upper padding value cannot work given this package's
// Compare (Empty is the strict *minimum* of its type, per spec §3/§4.A,
// verified by TestEmptyIsStrictMinimum) -- padding a partial suffix with
// Empty would make the upper bound sort *below* real completions, not
// above. Since every WHERE clause this grammar accepts is a conjunction of
// equalities (spec §4.B: no inequality/range WHERE), a prefix-equality
// match is both sufficient and exact: there is never a genuine open/closed
// range to express, only "these leading components are pinned, the rest is
// anything." An empty Prefix matches every key, giving the full range as a
// degenerate case for free.
type ClusteringKeyValueRange struct {
	Prefix []ClusteringSlot
}

// FullClusteringRange matches every clustering key in a partition.
func FullClusteringRange() ClusteringKeyValueRange {
	return ClusteringKeyValueRange{}
}

// PrefixClusteringRange matches every clustering key whose leading slots
// equal prefix, in order.
func PrefixClusteringRange(prefix []ClusteringSlot) ClusteringKeyValueRange {
	return ClusteringKeyValueRange{Prefix: prefix}
}

func (r ClusteringKeyValueRange) Contains(c ClusteringKeyValue) bool {
	slots := c.slots()
	if len(slots) < len(r.Prefix) {
		return false
	}
	for i, want := range r.Prefix {
		if slots[i].Compare(want) != 0 {
			return false
		}
	}
	return true
}

// PartitionKeyValueRange is an inclusive range over partition keys, or the
// full range when both bounds are absent (a scan with no partition
// predicate).
type PartitionKeyValueRange struct {
	HasLower bool
	Lower    PartitionKeyValue
	HasUpper bool
	Upper    PartitionKeyValue
}

func FullPartitionRange() PartitionKeyValueRange {
	return PartitionKeyValueRange{}
}

func SinglePartitionRange(pk PartitionKeyValue) PartitionKeyValueRange {
	return PartitionKeyValueRange{HasLower: true, Lower: pk, HasUpper: true, Upper: pk}
}

func (r PartitionKeyValueRange) Contains(pk PartitionKeyValue) bool {
	if r.HasLower && pk.Compare(r.Lower) < 0 {
		return false
	}
	if r.HasUpper && pk.Compare(r.Upper) > 0 {
		return false
	}
	return true
}
