// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package transaction

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/rpc"
	flag "github.com/spf13/pflag"

	"github.com/juztamau5/dispatcher/state"
	"github.com/juztamau5/dispatcher/util/stopwaiter"
)

var (
	sentCounter      = metrics.NewRegisteredCounter("dispatcher/transaction/sent", nil)
	duplicateCounter = metrics.NewRegisteredCounter("dispatcher/transaction/duplicate", nil)
	failedCounter    = metrics.NewRegisteredCounter("dispatcher/transaction/failed", nil)
	confirmedCounter = metrics.NewRegisteredCounter("dispatcher/transaction/confirmed", nil)
	revertedCounter  = metrics.NewRegisteredCounter("dispatcher/transaction/reverted", nil)
	droppedCounter   = metrics.NewRegisteredCounter("dispatcher/transaction/dropped", nil)
)

var (
	ErrWrongSender = errors.New("request user is not the wallet address")
	// ErrRejected means the contract would revert the transaction in the
	// current chain state.
	ErrRejected = errors.New("transaction rejected by contract")
)

// A regexp matching "execution reverted" errors returned from the node.
var executionRevertedRegexp = regexp.MustCompile(`(?i)execution reverted|VM execution error\.?`)

func isExecutionReverted(err error) bool {
	var rpcError rpc.Error
	if errors.As(err, &rpcError) && rpcError.ErrorCode() == 3 {
		return true
	}
	return err != nil && executionRevertedRegexp.MatchString(err.Error())
}

type Config struct {
	ReceiptInterval time.Duration `koanf:"receipt-interval"`
	PendingTimeout  time.Duration `koanf:"pending-timeout"`
	GasMargin       uint64        `koanf:"gas-margin"`
}

type ConfigFetcher func() *Config

var DefaultConfig = Config{
	ReceiptInterval: 5 * time.Second,
	PendingTimeout:  10 * time.Minute,
	GasMargin:       20,
}

var TestConfig = Config{
	ReceiptInterval: 10 * time.Millisecond,
	PendingTimeout:  time.Minute,
	GasMargin:       20,
}

func ConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.Duration(prefix+".receipt-interval", DefaultConfig.ReceiptInterval, "how often to poll receipts of pending transactions")
	f.Duration(prefix+".pending-timeout", DefaultConfig.PendingTimeout, "how long a transaction without receipt blocks identical requests")
	f.Uint64(prefix+".gas-margin", DefaultConfig.GasMargin, "percentage added to the gas estimate")
}

// Backend is what the manager needs from the chain; ethclient.Client and
// the simulated backend both satisfy it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type pendingTx struct {
	request Request
	tx      *types.Transaction
	sentAt  time.Time
}

// Manager encodes, signs and submits transaction requests and tracks them
// until they are mined. A request identical to one still pending is not
// sent again.
type Manager struct {
	stopwaiter.StopWaiter
	config  ConfigFetcher
	backend Backend
	abis    state.AbiSource
	auth    *bind.TransactOpts

	mutex     sync.Mutex
	pending   map[string]*pendingTx
	confirmed chan struct{}
}

func NewManager(config ConfigFetcher, backend Backend, abis state.AbiSource, auth *bind.TransactOpts) *Manager {
	return &Manager{
		config:    config,
		backend:   backend,
		abis:      abis,
		auth:      auth,
		pending:   make(map[string]*pendingTx),
		confirmed: make(chan struct{}, 1),
	}
}

func (m *Manager) Address() common.Address {
	return m.auth.From
}

// Confirmed is signalled whenever a tracked transaction gets a receipt.
func (m *Manager) Confirmed() <-chan struct{} {
	return m.confirmed
}

func (m *Manager) Pending() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.pending)
}

func (m *Manager) encode(request Request) (*abi.ABI, []byte, error) {
	parsed, err := m.abis.Abi(request.Concern.ContractAddress)
	if err != nil {
		return nil, nil, err
	}
	data, err := parsed.Pack(request.Function, request.Data...)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding %v: %w", request.Function, err)
	}
	return parsed, data, nil
}

// Send submits the request unless an identical one is still pending, in
// which case the pending transaction is returned.
func (m *Manager) Send(ctx context.Context, request Request) (*types.Transaction, error) {
	if request.Concern.UserAddress != m.auth.From {
		return nil, fmt.Errorf("%w: %v is not %v", ErrWrongSender, request.Concern.UserAddress, m.auth.From)
	}
	if request.Strategy != Simplest {
		return nil, fmt.Errorf("unsupported strategy %v", request.Strategy)
	}
	parsed, data, err := m.encode(request)
	if err != nil {
		return nil, err
	}
	key := string(request.Concern.Bytes()) + string(data)
	value := request.Value
	if value == nil {
		value = common.Big0
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if p, ok := m.pending[key]; ok {
		duplicateCounter.Inc(1)
		log.Debug("transaction already pending", "function", request.Function, "hash", p.tx.Hash())
		return p.tx, nil
	}

	to := request.Concern.ContractAddress
	gas, err := m.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  m.auth.From,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		failedCounter.Inc(1)
		if isExecutionReverted(err) {
			return nil, fmt.Errorf("%w: %v: %v", ErrRejected, request.Function, err)
		}
		return nil, fmt.Errorf("estimating gas of %v: %w", request.Function, err)
	}
	opts := *m.auth
	opts.Context = ctx
	opts.Value = new(big.Int).Set(value)
	opts.GasLimit = gas + gas*m.config().GasMargin/100
	contract := bind.NewBoundContract(to, *parsed, m.backend, m.backend, m.backend)
	tx, err := contract.RawTransact(&opts, data)
	if err != nil {
		failedCounter.Inc(1)
		return nil, fmt.Errorf("sending %v: %w", request.Function, err)
	}
	m.pending[key] = &pendingTx{request: request, tx: tx, sentAt: time.Now()}
	sentCounter.Inc(1)
	log.Info("sent transaction", "function", request.Function, "contract", to, "args", request.Data, "hash", tx.Hash(), "nonce", tx.Nonce(), "gas", tx.Gas())
	return tx, nil
}

func (m *Manager) notifyConfirmed() {
	select {
	case m.confirmed <- struct{}{}:
	default:
	}
}

// checkPending polls the receipts of pending transactions, forgetting the
// mined ones and those pending for longer than the timeout.
func (m *Manager) checkPending(ctx context.Context) {
	m.mutex.Lock()
	snapshot := make(map[string]*pendingTx, len(m.pending))
	for key, p := range m.pending {
		snapshot[key] = p
	}
	m.mutex.Unlock()

	timeout := m.config().PendingTimeout
	for key, p := range snapshot {
		receipt, err := m.backend.TransactionReceipt(ctx, p.tx.Hash())
		if err != nil {
			if !errors.Is(err, ethereum.NotFound) {
				log.Warn("error fetching transaction receipt", "hash", p.tx.Hash(), "err", err)
				continue
			}
			if time.Since(p.sentAt) > timeout {
				droppedCounter.Inc(1)
				log.Warn("transaction pending for too long, forgetting it", "function", p.request.Function, "hash", p.tx.Hash(), "sent", p.sentAt)
				m.forget(key)
			}
			continue
		}
		if receipt.Status == types.ReceiptStatusSuccessful {
			confirmedCounter.Inc(1)
			log.Info("transaction confirmed", "function", p.request.Function, "hash", p.tx.Hash(), "block", receipt.BlockNumber)
		} else {
			revertedCounter.Inc(1)
			log.Warn("transaction reverted", "function", p.request.Function, "hash", p.tx.Hash(), "block", receipt.BlockNumber)
		}
		m.forget(key)
		m.notifyConfirmed()
	}
}

func (m *Manager) forget(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.pending, key)
}

func (m *Manager) Start(ctxIn context.Context) {
	m.StopWaiter.Start(ctxIn, m)
	m.CallIteratively(func(ctx context.Context) time.Duration {
		m.checkPending(ctx)
		return m.config().ReceiptInterval
	})
}
