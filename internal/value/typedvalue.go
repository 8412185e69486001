// Package value implements TypedValue, the tagged scalar that flows through
// KeyTable and RowBatch: one DB field plus its SQL type and null indicator.
package value

import (
	"fmt"
	"time"
)

// SQLType enumerates the eight declared column types from the metadata
// model. This ordering is also the storage order used by
// KeyTable's per-type column sequences.
type SQLType int

const (
	TString SQLType = iota
	TBlob
	TXML
	TDate
	TInteger
	TLongLong
	TULongLong
	TDouble
)

func (t SQLType) String() string {
	switch t {
	case TString:
		return "string"
	case TBlob:
		return "blob"
	case TXML:
		return "xml"
	case TDate:
		return "date"
	case TInteger:
		return "integer"
	case TLongLong:
		return "longLong"
	case TULongLong:
		return "uLongLong"
	case TDouble:
		return "double"
	default:
		return "unknown"
	}
}

// Order is the result of a three-way comparison. Unordered is returned
// whenever the two TypedValues carry different SQLTypes; it must never be
// folded into Equal.
type Order int

const (
	Less Order = iota
	Equal
	Greater
	Unordered
)

// NullSentinel is the text rendering used for NULL cells in logs, errors and
// row strings.
const NullSentinel = "∅"

// DecodeError is returned when a driver cell's declared type disagrees with
// the column metadata the engine already committed to.
type DecodeError struct {
	Column   string
	Declared SQLType
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error on column %q (declared %s): %s", e.Column, e.Declared, e.Reason)
}

// TypedValue is a tagged union: exactly one payload field is meaningful,
// selected by SQLType, unless IsNull is set. There is no mutation after
// construction.
type TypedValue struct {
	SQLType SQLType
	IsNull  bool

	text   string
	epoch  int64
	i32    int32
	i64    int64
	u64    uint64
	f64    float64
}

func NewNull(t SQLType) TypedValue { return TypedValue{SQLType: t, IsNull: true} }

func NewText(t SQLType, s string) TypedValue { return TypedValue{SQLType: t, text: s} }

func NewEpoch(tm time.Time) TypedValue {
	return TypedValue{SQLType: TDate, epoch: tm.Unix()}
}

func NewEpochSeconds(sec int64) TypedValue {
	return TypedValue{SQLType: TDate, epoch: sec}
}

func NewInt32(v int32) TypedValue { return TypedValue{SQLType: TInteger, i32: v} }

func NewInt64(v int64) TypedValue { return TypedValue{SQLType: TLongLong, i64: v} }

func NewUint64(v uint64) TypedValue { return TypedValue{SQLType: TULongLong, u64: v} }

func NewDouble(v float64) TypedValue { return TypedValue{SQLType: TDouble, f64: v} }

// Text returns the textual payload; valid for TString, TBlob, TXML and the
// MD5 fingerprint column (which is always carried as TString).
func (v TypedValue) Text() string { return v.text }

func (v TypedValue) EpochSeconds() int64 { return v.epoch }

func (v TypedValue) Int32() int32 { return v.i32 }

func (v TypedValue) Int64() int64 { return v.i64 }

func (v TypedValue) Uint64() uint64 { return v.u64 }

func (v TypedValue) Double() float64 { return v.f64 }

// DriverArg converts the value into the shape database/sql drivers expect
// for a bind parameter: nil for NULL, a time.Time for TDate (go-sql-driver
// needs a time.Time, not a raw epoch integer, to bind a DATE/DATETIME/
// TIMESTAMP column correctly), and the natural Go scalar otherwise.
func (v TypedValue) DriverArg() interface{} {
	if v.IsNull {
		return nil
	}
	switch v.SQLType {
	case TString, TBlob, TXML:
		return v.text
	case TDate:
		return time.Unix(v.epoch, 0).UTC()
	case TInteger:
		return v.i32
	case TLongLong:
		return v.i64
	case TULongLong:
		return v.u64
	case TDouble:
		return v.f64
	}
	return nil
}

// Render textualises the value for logs and errors; NULL renders as the
// distinguished sentinel.
func (v TypedValue) Render() string {
	if v.IsNull {
		return NullSentinel
	}
	switch v.SQLType {
	case TString, TBlob, TXML:
		return v.text
	case TDate:
		return time.Unix(v.epoch, 0).UTC().Format(time.RFC3339)
	case TInteger:
		return fmt.Sprintf("%d", v.i32)
	case TLongLong:
		return fmt.Sprintf("%d", v.i64)
	case TULongLong:
		return fmt.Sprintf("%d", v.u64)
	case TDouble:
		return fmt.Sprintf("%g", v.f64)
	default:
		return ""
	}
}

// Compare implements the total partial order described above: same-type
// ordering, null strictly less than non-null, null equal to null, unequal
// types unordered.
func Compare(a, b TypedValue) Order {
	if a.SQLType != b.SQLType {
		return Unordered
	}
	if a.IsNull && b.IsNull {
		return Equal
	}
	if a.IsNull {
		return Less
	}
	if b.IsNull {
		return Greater
	}
	switch a.SQLType {
	case TString, TBlob, TXML:
		return cmpString(a.text, b.text)
	case TDate:
		return cmpInt64(a.epoch, b.epoch)
	case TInteger:
		return cmpInt64(int64(a.i32), int64(b.i32))
	case TLongLong:
		return cmpInt64(a.i64, b.i64)
	case TULongLong:
		return cmpUint64(a.u64, b.u64)
	case TDouble:
		return cmpDouble(a.f64, b.f64)
	default:
		return Unordered
	}
}

func cmpString(a, b string) Order {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func cmpInt64(a, b int64) Order {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func cmpUint64(a, b uint64) Order {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func cmpDouble(a, b float64) Order {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

// FromCell constructs a TypedValue from a database/sql-decoded cell (the
// result of scanning into an interface{}) against the declared SQLType.
// Construction fails with DecodeError if the driver's advertised value
// cannot be reconciled with the declared column type.
func FromCell(column string, sqlType SQLType, raw interface{}) (TypedValue, error) {
	if raw == nil {
		return NewNull(sqlType), nil
	}
	switch sqlType {
	case TString, TBlob, TXML:
		switch r := raw.(type) {
		case []byte:
			return NewText(sqlType, string(r)), nil
		case string:
			return NewText(sqlType, r), nil
		default:
			return TypedValue{}, &DecodeError{Column: column, Declared: sqlType, Reason: fmt.Sprintf("unexpected driver kind %T", raw)}
		}
	case TDate:
		switch r := raw.(type) {
		case time.Time:
			return NewEpoch(r), nil
		case []byte:
			tm, err := time.Parse("2006-01-02 15:04:05", string(r))
			if err != nil {
				return TypedValue{}, &DecodeError{Column: column, Declared: sqlType, Reason: err.Error()}
			}
			return NewEpoch(tm), nil
		default:
			return TypedValue{}, &DecodeError{Column: column, Declared: sqlType, Reason: fmt.Sprintf("unexpected driver kind %T", raw)}
		}
	case TInteger:
		i, err := asInt64(raw)
		if err != nil {
			return TypedValue{}, &DecodeError{Column: column, Declared: sqlType, Reason: err.Error()}
		}
		return NewInt32(int32(i)), nil
	case TLongLong:
		i, err := asInt64(raw)
		if err != nil {
			return TypedValue{}, &DecodeError{Column: column, Declared: sqlType, Reason: err.Error()}
		}
		return NewInt64(i), nil
	case TULongLong:
		switch r := raw.(type) {
		case int64:
			if r < 0 {
				return TypedValue{}, &DecodeError{Column: column, Declared: sqlType, Reason: "negative value for unsigned column"}
			}
			return NewUint64(uint64(r)), nil
		case uint64:
			return NewUint64(r), nil
		case []byte:
			i, err := asInt64(r)
			if err != nil {
				return TypedValue{}, &DecodeError{Column: column, Declared: sqlType, Reason: err.Error()}
			}
			return NewUint64(uint64(i)), nil
		default:
			return TypedValue{}, &DecodeError{Column: column, Declared: sqlType, Reason: fmt.Sprintf("unexpected driver kind %T", raw)}
		}
	case TDouble:
		switch r := raw.(type) {
		case float64:
			return NewDouble(r), nil
		case float32:
			return NewDouble(float64(r)), nil
		case []byte:
			var f float64
			if _, err := fmt.Sscanf(string(r), "%g", &f); err != nil {
				return TypedValue{}, &DecodeError{Column: column, Declared: sqlType, Reason: err.Error()}
			}
			return NewDouble(f), nil
		default:
			return TypedValue{}, &DecodeError{Column: column, Declared: sqlType, Reason: fmt.Sprintf("unexpected driver kind %T", raw)}
		}
	default:
		return TypedValue{}, &DecodeError{Column: column, Declared: sqlType, Reason: "unknown sql type"}
	}
}

func asInt64(raw interface{}) (int64, error) {
	switch r := raw.(type) {
	case int64:
		return r, nil
	case int:
		return int64(r), nil
	case []byte:
		var i int64
		if _, err := fmt.Sscanf(string(r), "%d", &i); err != nil {
			return 0, err
		}
		return i, nil
	default:
		return 0, fmt.Errorf("unexpected driver kind %T", raw)
	}
}
