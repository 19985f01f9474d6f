package sandbox

import "fmt"

// DataValue is the tagged union of metadata values a plug-in can store into
// a pending row. The zero value is None.
type DataValue struct {
	kind kind
	str  string
	i64  int64
	f64  float64
}

type kind int

const (
	kindNone kind = iota
	kindString
	kindInt64
	kindFloat64
)

func StringValue(v string) DataValue  { return DataValue{kind: kindString, str: v} }
func Int64Value(v int64) DataValue    { return DataValue{kind: kindInt64, i64: v} }
func Float64Value(v float64) DataValue { return DataValue{kind: kindFloat64, f64: v} }
func NoneValue() DataValue            { return DataValue{kind: kindNone} }

// String renders a tagged, debug-like representation, e.g. StringValue("x"),
// Int64Value(3), NoneValue. Diagnostic-only; may change without affecting
// core semantics.
func (v DataValue) String() string {
	switch v.kind {
	case kindString:
		return fmt.Sprintf("StringValue(%q)", v.str)
	case kindInt64:
		return fmt.Sprintf("Int64Value(%d)", v.i64)
	case kindFloat64:
		return fmt.Sprintf("Float64Value(%v)", v.f64)
	default:
		return "NoneValue"
	}
}
