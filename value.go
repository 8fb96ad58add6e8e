package godbf

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBoolean
	KindDate
	KindDateTime
)

var kindNames = [...]string{
	KindNull:     "null",
	KindText:     "text",
	KindNumber:   "number",
	KindBoolean:  "boolean",
	KindDate:     "date",
	KindDateTime: "datetime",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func parseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return KindNull, fmt.Errorf("unknown value kind %q", s)
}

// Value is a single decoded cell. The zero Value is Null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

func Null() Value                 { return Value{} }
func Text(s string) Value         { return Value{kind: KindText, str: s} }
func Number(f float64) Value      { return Value{kind: KindNumber, num: f} }
func Boolean(b bool) Value        { return Value{kind: KindBoolean, b: b} }
func DateText(s string) Value     { return Value{kind: KindDate, str: s} }
func DateTimeText(s string) Value { return Value{kind: KindDateTime, str: s} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the text of Text, DateText and DateTimeText values.
func (v Value) Str() (string, bool) {
	switch v.kind {
	case KindText, KindDate, KindDateTime:
		return v.str, true
	}
	return "", false
}

func (v Value) Num() (float64, bool) {
	if v.kind == KindNumber {
		return v.num, true
	}
	return 0, false
}

func (v Value) Bool() (bool, bool) {
	if v.kind == KindBoolean {
		return v.b, true
	}
	return false, false
}

// String renders the value the way a character field would store it.
func (v Value) String() string {
	switch v.kind {
	case KindText, KindDate, KindDateTime:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBoolean:
		if v.b {
			return "T"
		}
		return "F"
	}
	return ""
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText, KindDate, KindDateTime:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	case KindBoolean:
		return v.b == o.b
	}
	return true
}

type jsonValue struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch v.kind {
	case KindText, KindDate, KindDateTime:
		raw, err = json.Marshal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			// JSON has no literal for these; "NaN", "+Inf" and "-Inf" travel as strings
			raw, err = json.Marshal(strconv.FormatFloat(v.num, 'f', -1, 64))
		} else {
			raw, err = json.Marshal(v.num)
		}
	case KindBoolean:
		raw, err = json.Marshal(v.b)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonValue{Kind: v.kind.String(), Value: raw})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	kind, err := parseKind(jv.Kind)
	if err != nil {
		return err
	}
	*v = Value{kind: kind}
	switch kind {
	case KindText, KindDate, KindDateTime:
		return json.Unmarshal(jv.Value, &v.str)
	case KindNumber:
		var s string
		if json.Unmarshal(jv.Value, &s) == nil {
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid number %q", s)
			}
			v.num = n
			return nil
		}
		return json.Unmarshal(jv.Value, &v.num)
	case KindBoolean:
		return json.Unmarshal(jv.Value, &v.b)
	}
	return nil
}
