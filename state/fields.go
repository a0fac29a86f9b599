// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

var ErrFieldType = errors.New("unexpected field type")

// rawField is one element of an encoded state: {"name","type","value"}.
type rawField struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type encodedField struct {
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

func unmarshalField(data []byte, expectedType string, value interface{}) (string, error) {
	var raw rawField
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", err
	}
	if raw.Type != expectedType {
		return "", fmt.Errorf("%w: field %q has type %q, expected %q", ErrFieldType, raw.Name, raw.Type, expectedType)
	}
	if len(raw.Value) == 0 {
		return "", fmt.Errorf("field %q has no value", raw.Name)
	}
	if err := json.Unmarshal(raw.Value, value); err != nil {
		return "", fmt.Errorf("field %q: %w", raw.Name, err)
	}
	return raw.Name, nil
}

func marshalField(name string, typ string, value interface{}) ([]byte, error) {
	return json.Marshal(encodedField{Name: name, Type: typ, Value: value})
}

func toUint256(name string, value *hexutil.Big) (*uint256.Int, error) {
	if value == nil {
		return nil, fmt.Errorf("field %q has a null integer", name)
	}
	b := (*big.Int)(value)
	if b.Sign() < 0 {
		return nil, fmt.Errorf("field %q is negative", name)
	}
	result, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("field %q overflows 256 bits", name)
	}
	return result, nil
}

func toUint256s(name string, values []*hexutil.Big) ([]*uint256.Int, error) {
	result := make([]*uint256.Int, len(values))
	for i, value := range values {
		converted, err := toUint256(fmt.Sprintf("%v[%v]", name, i), value)
		if err != nil {
			return nil, err
		}
		result[i] = converted
	}
	return result, nil
}

func fromUint256s(values []*uint256.Int) []*hexutil.Big {
	result := make([]*hexutil.Big, len(values))
	for i, value := range values {
		result[i] = (*hexutil.Big)(value.ToBig())
	}
	return result
}

type AddressField struct {
	Name  string
	Value common.Address
}

func (f *AddressField) UnmarshalJSON(data []byte) (err error) {
	f.Name, err = unmarshalField(data, "address", &f.Value)
	return
}

func (f AddressField) MarshalJSON() ([]byte, error) {
	return marshalField(f.Name, "address", f.Value)
}

type Bytes32Field struct {
	Name  string
	Value common.Hash
}

func (f *Bytes32Field) UnmarshalJSON(data []byte) (err error) {
	f.Name, err = unmarshalField(data, "bytes32", &f.Value)
	return
}

func (f Bytes32Field) MarshalJSON() ([]byte, error) {
	return marshalField(f.Name, "bytes32", f.Value)
}

// String32Field is a bytes32 holding left-aligned text, such as a contract's
// current state name. Trailing zero bytes are dropped.
type String32Field struct {
	Name  string
	Value string
}

func (f *String32Field) UnmarshalJSON(data []byte) error {
	var value common.Hash
	name, err := unmarshalField(data, "bytes32", &value)
	if err != nil {
		return err
	}
	f.Name = name
	f.Value = string(bytes.TrimRight(value[:], "\x00"))
	return nil
}

func (f String32Field) MarshalJSON() ([]byte, error) {
	value, err := String32(f.Value)
	if err != nil {
		return nil, err
	}
	return marshalField(f.Name, "bytes32", value)
}

// String32 left-aligns text into a bytes32, the way contracts store short
// state names.
func String32(s string) (common.Hash, error) {
	var result common.Hash
	if len(s) > common.HashLength {
		return result, fmt.Errorf("string %q does not fit in 32 bytes", s)
	}
	copy(result[:], s)
	return result, nil
}

type U256Field struct {
	Name  string
	Value *uint256.Int
}

func (f *U256Field) UnmarshalJSON(data []byte) error {
	var value *hexutil.Big
	name, err := unmarshalField(data, "uint256", &value)
	if err != nil {
		return err
	}
	f.Name = name
	f.Value, err = toUint256(name, value)
	return err
}

func (f U256Field) MarshalJSON() ([]byte, error) {
	return marshalField(f.Name, "uint256", (*hexutil.Big)(f.Value.ToBig()))
}

// U256ArrayField is a fixed size uint256 array. Len must be set before
// decoding; both the type tag and the element count are checked against it.
type U256ArrayField struct {
	Name  string
	Len   int
	Value []*uint256.Int
}

func NewU256ArrayField(length int) *U256ArrayField {
	return &U256ArrayField{Len: length}
}

func (f *U256ArrayField) typ() string {
	return fmt.Sprintf("uint256[%d]", f.Len)
}

func (f *U256ArrayField) UnmarshalJSON(data []byte) error {
	var values []*hexutil.Big
	name, err := unmarshalField(data, f.typ(), &values)
	if err != nil {
		return err
	}
	if len(values) != f.Len {
		return fmt.Errorf("field %q has %v elements, expected %v", name, len(values), f.Len)
	}
	f.Name = name
	f.Value, err = toUint256s(name, values)
	return err
}

func (f U256ArrayField) MarshalJSON() ([]byte, error) {
	return marshalField(f.Name, f.typ(), fromUint256s(f.Value))
}

// At returns the i-th element, or zero when out of range.
func (f *U256ArrayField) At(i int) *uint256.Int {
	if i < 0 || i >= len(f.Value) || f.Value[i] == nil {
		return new(uint256.Int)
	}
	return f.Value[i]
}

type U256SliceField struct {
	Name  string
	Value []*uint256.Int
}

func (f *U256SliceField) UnmarshalJSON(data []byte) error {
	var values []*hexutil.Big
	name, err := unmarshalField(data, "uint256[]", &values)
	if err != nil {
		return err
	}
	f.Name = name
	f.Value, err = toUint256s(name, values)
	return err
}

func (f U256SliceField) MarshalJSON() ([]byte, error) {
	return marshalField(f.Name, "uint256[]", fromUint256s(f.Value))
}

type BoolArrayField struct {
	Name  string
	Value []bool
}

func (f *BoolArrayField) UnmarshalJSON(data []byte) (err error) {
	f.Name, err = unmarshalField(data, "bool[]", &f.Value)
	return
}

func (f BoolArrayField) MarshalJSON() ([]byte, error) {
	return marshalField(f.Name, "bool[]", f.Value)
}

type Bytes32ArrayField struct {
	Name  string
	Value []common.Hash
}

func (f *Bytes32ArrayField) UnmarshalJSON(data []byte) (err error) {
	f.Name, err = unmarshalField(data, "bytes32[]", &f.Value)
	return
}

func (f Bytes32ArrayField) MarshalJSON() ([]byte, error) {
	return marshalField(f.Name, "bytes32[]", f.Value)
}

// DecodeTuple decodes an encoded state into the given fields, in order.
// The number of elements must match the number of fields exactly.
func DecodeTuple(data string, fields ...json.Unmarshaler) error {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(data), &elements); err != nil {
		return err
	}
	if len(elements) != len(fields) {
		return fmt.Errorf("expected %v fields, got %v", len(fields), len(elements))
	}
	for i, element := range elements {
		if err := fields[i].UnmarshalJSON(element); err != nil {
			return fmt.Errorf("field %v: %w", i, err)
		}
	}
	return nil
}

// EncodeTuple is the inverse of DecodeTuple.
func EncodeTuple(fields ...json.Marshaler) (string, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
