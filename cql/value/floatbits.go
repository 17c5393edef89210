package value

import "math"

func float32FromBits(bits uint32) float32 { return math.Float32frombits(bits) }
func float64FromBits(bits uint64) float64 { return math.Float64frombits(bits) }

// Float32Bits and Float64Bits convert a Go float into the raw bit pattern
// Float/Double store, for constructors outside this package (the parser,
// the wire codec).
func Float32Bits(f float32) uint32 { return math.Float32bits(f) }
func Float64Bits(f float64) uint64 { return math.Float64bits(f) }
