// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

// Package hasher emulates the machine whose runs are disputed: it computes
// state hashes at given times and the memory accesses of single steps, and
// serves both over JSON-RPC.
package hasher

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	WordSize    = 8
	MemoryWords = 8
)

// Machine is a small deterministic machine identified by its run key.
// Step t reads word t+1 and rewrites word t, both modulo the memory size.
// Its state hash is the run key at time 0 and the memory merkle root after.
type Machine struct {
	key    common.Hash
	time   uint64
	memory [MemoryWords]Word
}

func NewMachine(key common.Hash) *Machine {
	m := &Machine{key: key}
	for i := range m.memory {
		copy(m.memory[i][:], crypto.Keccak256(key[:], []byte{byte(i)}))
	}
	return m
}

func (m *Machine) Time() uint64 {
	return m.time
}

func (m *Machine) Hash() common.Hash {
	if m.time == 0 {
		return m.key
	}
	return m.MemoryRoot()
}

func (m *Machine) Word(address uint64) (Word, error) {
	if address%WordSize != 0 || address/WordSize >= MemoryWords {
		return Word{}, fmt.Errorf("invalid address %v", address)
	}
	return m.memory[address/WordSize], nil
}

func leafHash(w Word) common.Hash {
	return crypto.Keccak256Hash(w[:])
}

func (m *Machine) layers() [][]common.Hash {
	layer := make([]common.Hash, MemoryWords)
	for i, w := range m.memory {
		layer[i] = leafHash(w)
	}
	layers := [][]common.Hash{layer}
	for len(layer) > 1 {
		next := make([]common.Hash, len(layer)/2)
		for i := range next {
			next[i] = crypto.Keccak256Hash(layer[2*i].Bytes(), layer[2*i+1].Bytes())
		}
		layers = append(layers, next)
		layer = next
	}
	return layers
}

func (m *Machine) MemoryRoot() common.Hash {
	layers := m.layers()
	return layers[len(layers)-1][0]
}

// proof lists the sibling hashes from the word's leaf up to the root.
func (m *Machine) proof(slot int) []common.Hash {
	layers := m.layers()
	proof := make([]common.Hash, 0, len(layers)-1)
	for _, layer := range layers[:len(layers)-1] {
		proof = append(proof, layer[slot^1])
		slot /= 2
	}
	return proof
}

func (m *Machine) RunTo(t uint64) error {
	if t < m.time {
		return fmt.Errorf("machine is at time %v, cannot run back to %v", m.time, t)
	}
	for m.time < t {
		m.Step()
	}
	return nil
}

// Step executes one instruction and returns its memory accesses, in order,
// with proofs against the memory before the step.
func (m *Machine) Step() []Access {
	t := m.time
	target := int(t % MemoryWords)
	source := (target + 1) % MemoryWords
	read := Access{
		Address: uint64(source * WordSize),
		Value:   m.memory[source],
		Proof:   m.proof(source),
	}
	old := m.memory[target]
	var updated Word
	copy(updated[:], crypto.Keccak256(old[:], read.Value[:], binary.BigEndian.AppendUint64(nil, t)))
	write := Access{
		Write:    true,
		Address:  uint64(target * WordSize),
		Value:    old,
		NewValue: updated,
		Proof:    m.proof(target),
	}
	m.memory[target] = updated
	m.time++
	return []Access{read, write}
}

// VerifyProof checks that value sits at address in the memory with the
// given merkle root.
func VerifyProof(root common.Hash, address uint64, value Word, proof []common.Hash) bool {
	slot := address / WordSize
	h := leafHash(value)
	for _, sibling := range proof {
		if slot%2 == 0 {
			h = crypto.Keccak256Hash(h.Bytes(), sibling.Bytes())
		} else {
			h = crypto.Keccak256Hash(sibling.Bytes(), h.Bytes())
		}
		slot /= 2
	}
	return h == root
}
