// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

// Package dispatcher drives protocol reactors against the chain. It defines
// what a reactor is (DApp), what it may answer (Reaction), the errors it may
// fail with, and the service that polls instances and carries out reactions.
package dispatcher

import (
	"fmt"

	"github.com/juztamau5/dispatcher/archive"
	"github.com/juztamau5/dispatcher/transaction"
)

// Reaction is the outcome of one evaluation of an instance: Idle,
// Transaction or Request.
type Reaction interface {
	isReaction()
	String() string
}

// Idle means no action is required this tick.
type Idle struct{}

// Transaction proposes a contract call to the transaction manager.
type Transaction struct {
	Request transaction.Request
}

// Request asks the archive for samples the reactor needs before it can
// decide; the instance is evaluated again on a later tick.
type Request struct {
	Request archive.Request
}

func (Idle) isReaction()        {}
func (Transaction) isReaction() {}
func (Request) isReaction()     {}

func (Idle) String() string {
	return "idle"
}

func (t Transaction) String() string {
	return fmt.Sprintf("transaction%v", t.Request)
}

func (r Request) String() string {
	return fmt.Sprintf("request %v", r.Request)
}

func NewTransaction(request transaction.Request) Reaction {
	return Transaction{Request: request}
}

func NewRequest(request archive.Request) Reaction {
	return Request{Request: request}
}
