package model

import (
	"fmt"
	"strings"
)

// DataType is the closed set of field types a ValidationRule can declare.
// Every switch over DataType must handle all variants; see IsValid.
type DataType int

const (
	TypeInteger DataType = iota + 1
	TypeFloat
	TypeString
	TypeDatetime
	TypeBoolean
	TypeEmail
	TypePhone
	TypeObject
	TypeArray
	TypeNull
)

var dataTypeNames = map[DataType]string{
	TypeInteger:  "integer",
	TypeFloat:    "float",
	TypeString:   "string",
	TypeDatetime: "datetime",
	TypeBoolean:  "boolean",
	TypeEmail:    "email",
	TypePhone:    "phone",
	TypeObject:   "object",
	TypeArray:    "array",
	TypeNull:     "null",
}

// AllDataTypes lists every variant in declaration order
func AllDataTypes() []DataType {
	return []DataType{
		TypeInteger, TypeFloat, TypeString, TypeDatetime, TypeBoolean,
		TypeEmail, TypePhone, TypeObject, TypeArray, TypeNull,
	}
}

// ParseDataType converts a config string into a DataType
func ParseDataType(s string) (DataType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range dataTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown data type: %q", s)
}

// String returns the config name of the type
func (t DataType) String() string {
	if n, ok := dataTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// IsValid reports whether t is one of the declared variants
func (t DataType) IsValid() bool {
	_, ok := dataTypeNames[t]
	return ok
}

// IsNumeric reports whether range constraints apply
func (t DataType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// IsStringLike reports whether length and pattern constraints apply
func (t DataType) IsStringLike() bool {
	return t == TypeString || t == TypeEmail || t == TypePhone
}

// IsScalar reports whether categorical constraints apply
func (t DataType) IsScalar() bool {
	switch t {
	case TypeObject, TypeArray, TypeNull:
		return false
	default:
		return t.IsValid()
	}
}

// IsContainer reports whether the type is a JSON object or array
func (t DataType) IsContainer() bool {
	return t == TypeObject || t == TypeArray
}

// MarshalText implements encoding.TextMarshaler
func (t DataType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid data type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *DataType) UnmarshalText(b []byte) error {
	parsed, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
