// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package state

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EncodeOutputs renders unpacked contract call outputs as an encoded state,
// one typed field per output in declaration order.
func EncodeOutputs(args abi.Arguments, values []interface{}) (string, error) {
	if len(args) != len(values) {
		return "", fmt.Errorf("have %v values for %v outputs", len(values), len(args))
	}
	fields := make([]encodedField, len(args))
	for i, arg := range args {
		value, err := encodeValue(arg.Type, values[i])
		if err != nil {
			return "", fmt.Errorf("output %v (%v): %w", i, arg.Name, err)
		}
		fields[i] = encodedField{Name: arg.Name, Type: arg.Type.String(), Value: value}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func encodeValue(t abi.Type, v interface{}) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		address, ok := v.(common.Address)
		if !ok {
			return nil, fmt.Errorf("expected address, got %T", v)
		}
		return address, nil
	case abi.BoolTy:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		return b, nil
	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case abi.BytesTy:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("expected bytes, got %T", v)
		}
		return hexutil.Bytes(b), nil
	case abi.FixedBytesTy:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Array || rv.Type().Elem().Kind() != reflect.Uint8 {
			return nil, fmt.Errorf("expected fixed bytes, got %T", v)
		}
		b := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(b), rv)
		return hexutil.Bytes(b), nil
	case abi.UintTy, abi.IntTy:
		return encodeInteger(v)
	case abi.ArrayTy, abi.SliceTy:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Array && rv.Kind() != reflect.Slice {
			return nil, fmt.Errorf("expected %v, got %T", t, v)
		}
		result := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			element, err := encodeValue(*t.Elem, rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %v: %w", i, err)
			}
			result[i] = element
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported type %v", t)
	}
}

func encodeInteger(v interface{}) (interface{}, error) {
	if b, ok := v.(*big.Int); ok {
		if b == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return (*hexutil.Big)(b), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return (*hexutil.Big)(new(big.Int).SetUint64(rv.Uint())), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return (*hexutil.Big)(big.NewInt(rv.Int())), nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", v)
	}
}
