// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package hasher

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Word is one machine memory word, hex encoded on the wire.
type Word [WordSize]byte

func (w Word) MarshalText() ([]byte, error) {
	return hexutil.Bytes(w[:]).MarshalText()
}

func (w *Word) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Word", input, w[:])
}

func (w Word) String() string {
	return hexutil.Encode(w[:])
}

// Access is one memory access of a step. For reads Value is the value read;
// for writes it is the value overwritten by NewValue.
type Access struct {
	Write    bool
	Address  uint64
	Value    Word
	NewValue Word
	Proof    []common.Hash
}

type accessJSON struct {
	Write    bool           `json:"write"`
	Address  hexutil.Uint64 `json:"address"`
	Value    Word           `json:"value"`
	NewValue *Word          `json:"newValue,omitempty"`
	Proof    []common.Hash  `json:"proof"`
}

func (a Access) MarshalJSON() ([]byte, error) {
	enc := accessJSON{
		Write:   a.Write,
		Address: hexutil.Uint64(a.Address),
		Value:   a.Value,
		Proof:   a.Proof,
	}
	if a.Write {
		newValue := a.NewValue
		enc.NewValue = &newValue
	}
	return json.Marshal(enc)
}

func (a *Access) UnmarshalJSON(input []byte) error {
	var dec accessJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	if dec.Write && dec.NewValue == nil {
		return errors.New("write access without new value")
	}
	a.Write = dec.Write
	a.Address = uint64(dec.Address)
	a.Value = dec.Value
	a.NewValue = Word{}
	if dec.NewValue != nil {
		a.NewValue = *dec.NewValue
	}
	a.Proof = dec.Proof
	return nil
}

func (a Access) String() string {
	if a.Write {
		return fmt.Sprintf("write{address: %v, old: %v, new: %v}", a.Address, a.Value, a.NewValue)
	}
	return fmt.Sprintf("read{address: %v, value: %v}", a.Address, a.Value)
}
