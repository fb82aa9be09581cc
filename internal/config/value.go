package config

import (
	"fmt"
	"math"
	"reflect"

	clone "github.com/huandu/go-clone/generic"
	"github.com/pkg/errors"
)

// Kind identifies the type held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindList
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindList:
		return "list"
	case KindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Value is a single dynamically typed setting.
type Value struct {
	kind       Kind
	str        string
	boolean    bool
	integer    int64
	list       []Value
	structured any
}

func StringValue(value string) Value {
	return Value{kind: KindString, str: value}
}

func BoolValue(value bool) Value {
	return Value{kind: KindBool, boolean: value}
}

func IntValue(value int64) Value {
	return Value{kind: KindInt, integer: value}
}

func StringsValue(values ...string) Value {
	list := make([]Value, len(values))
	for i, v := range values {
		list[i] = StringValue(v)
	}

	return Value{kind: KindList, list: list}
}

func ListValue(values ...Value) Value {
	list := make([]Value, len(values))
	for i, v := range values {
		list[i] = v.clone()
	}

	return Value{kind: KindList, list: list}
}

// StructuredValue wraps an opaque value. The value is deep copied on the way in and
// on every read.
func StructuredValue(value any) Value {
	return Value{kind: KindStructured, structured: deepCopy(value)}
}

// ValueOf converts data decoded from YAML or JSON into a Value. Integral floats are
// accepted as ints since encoding/json decodes every number as float64.
func ValueOf(raw any) (Value, error) {
	switch value := raw.(type) {
	case Value:
		return value.clone(), nil
	case string:
		return StringValue(value), nil
	case bool:
		return BoolValue(value), nil
	case int:
		return IntValue(int64(value)), nil
	case int8, int16, int32, int64:
		return IntValue(reflect.ValueOf(value).Int()), nil
	case uint, uint8, uint16, uint32, uint64:
		unsigned := reflect.ValueOf(value).Uint()
		if unsigned > math.MaxInt64 {
			return Value{}, errors.Errorf("integer out of range: %d", unsigned)
		}

		return IntValue(int64(unsigned)), nil
	case float64:
		if value == math.Trunc(value) && value >= math.MinInt64 && value < math.MaxInt64 {
			return IntValue(int64(value)), nil
		}

		return StructuredValue(value), nil
	case []string:
		return StringsValue(value...), nil
	case []any:
		list := make([]Value, len(value))

		for i, elem := range value {
			converted, errConv := ValueOf(elem)
			if errConv != nil {
				return Value{}, errors.Wrapf(errConv, "index %d", i)
			}

			list[i] = converted
		}

		return Value{kind: KindList, list: list}, nil
	case nil:
		return Value{}, errors.New("nil value")
	default:
		return StructuredValue(value), nil
	}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) AsBool() (bool, bool) {
	return v.boolean, v.kind == KindBool
}

func (v Value) AsInt() (int64, bool) {
	return v.integer, v.kind == KindInt
}

// AsStrings succeeds only when the value is a list whose every element is a string.
func (v Value) AsStrings() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}

	out := make([]string, len(v.list))

	for i, elem := range v.list {
		str, ok := elem.AsString()
		if !ok {
			return nil, false
		}

		out[i] = str
	}

	return out, true
}

// AsList returns a copy of the list elements.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}

	return ListValue(v.list...).list, true
}

func (v Value) AsStructured() (any, bool) {
	if v.kind != KindStructured {
		return nil, false
	}

	return deepCopy(v.structured), true
}

// Interface returns the plain Go representation, the inverse of ValueOf.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return v.boolean
	case KindInt:
		return v.integer
	case KindList:
		out := make([]any, len(v.list))
		for i, elem := range v.list {
			out[i] = elem.Interface()
		}

		return out
	default:
		return deepCopy(v.structured)
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%v", v.Interface())
}

func (v Value) clone() Value {
	out := v

	switch v.kind {
	case KindList:
		out.list = make([]Value, len(v.list))
		for i, elem := range v.list {
			out.list[i] = elem.clone()
		}
	case KindStructured:
		out.structured = deepCopy(v.structured)
	case KindString, KindBool, KindInt:
	}

	return out
}

func deepCopy(value any) any {
	if value == nil {
		return nil
	}

	return clone.Clone(value)
}
