package event

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Value is one node of an event tree. The concrete types are String, Int,
// Float, Bool, Null, List and *Object; callers switch on them directly.
type Value interface {
	json.Marshaler
	isValue()
}

// String is a text leaf.
type String string

// Int is an integral number leaf.
type Int int64

// Float is a fractional number leaf.
type Float float64

// Bool is a boolean leaf.
type Bool bool

// Null is an explicit JSON null.
type Null struct{}

// List is an ordered sequence of values.
type List []Value

func (String) isValue()  {}
func (Int) isValue()     {}
func (Float) isValue()   {}
func (Bool) isValue()    {}
func (Null) isValue()    {}
func (List) isValue()    {}
func (*Object) isValue() {}

// MarshalJSON encodes the string as a JSON string.
func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

// MarshalJSON encodes the integer without a fractional part.
func (i Int) MarshalJSON() ([]byte, error) { return strconv.AppendInt(nil, int64(i), 10), nil }

// MarshalJSON encodes the float. NaN and infinities are rejected.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("event: unsupported float value %v", v)
	}
	return json.Marshal(v)
}

// MarshalJSON encodes the boolean.
func (b Bool) MarshalJSON() ([]byte, error) { return strconv.AppendBool(nil, bool(b)), nil }

// MarshalJSON encodes null.
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalJSON encodes the list element by element.
func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	buf := []byte{'['}
	for i, v := range l {
		if i > 0 {
			buf = append(buf, ',')
		}
		b, err := marshalValue(v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
	}
	return append(buf, ']'), nil
}

// String renders the list as compact JSON text.
func (l List) String() string {
	b, err := l.MarshalJSON()
	if err != nil {
		return fmt.Sprint([]Value(l))
	}
	return string(b)
}

func marshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return v.MarshalJSON()
}

// Text renders a value as plain text: strings verbatim, null as the empty
// string, everything else as JSON.
func Text(v Value) string {
	switch t := v.(type) {
	case nil, Null:
		return ""
	case String:
		return string(t)
	case Int:
		return strconv.FormatInt(int64(t), 10)
	case Float:
		return strconv.FormatFloat(float64(t), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(t))
	default:
		b, err := t.MarshalJSON()
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// ValueOf converts a native Go value into a Value. Maps are converted with
// their keys in sorted order so the result is deterministic.
func ValueOf(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null{}
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(t)
	case int8:
		return Int(t)
	case int16:
		return Int(t)
	case int32:
		return Int(t)
	case int64:
		return Int(t)
	case uint:
		return Int(t)
	case uint8:
		return Int(t)
	case uint16:
		return Int(t)
	case uint32:
		return Int(t)
	case uint64:
		if t > math.MaxInt64 {
			return Float(t)
		}
		return Int(t)
	case float32:
		return Float(t)
	case float64:
		return Float(t)
	case json.Number:
		return numberValue(t)
	case time.Time:
		return String(FormatTimestamp(t))
	case []any:
		l := make(List, len(t))
		for i, e := range t {
			l[i] = ValueOf(e)
		}
		return l
	case []string:
		l := make(List, len(t))
		for i, e := range t {
			l[i] = String(e)
		}
		return l
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			obj.Set(k, ValueOf(t[k]))
		}
		return obj
	default:
		return String(fmt.Sprint(t))
	}
}

func numberValue(n json.Number) Value {
	s := n.String()
	integral := true
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '.' || c == 'e' || c == 'E' {
			integral = false
			break
		}
	}
	if integral {
		if i, err := n.Int64(); err == nil {
			return Int(i)
		}
	}
	f, err := n.Float64()
	if err != nil {
		return String(s)
	}
	return Float(f)
}
