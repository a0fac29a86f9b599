// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package dispatcher

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	flag "github.com/spf13/pflag"

	"github.com/juztamau5/dispatcher/archive"
	"github.com/juztamau5/dispatcher/configuration"
	"github.com/juztamau5/dispatcher/state"
	"github.com/juztamau5/dispatcher/transaction"
	"github.com/juztamau5/dispatcher/util/stopwaiter"
)

var (
	tickCounter        = metrics.NewRegisteredCounter("dispatcher/ticks", nil)
	tickFailureCounter = metrics.NewRegisteredCounter("dispatcher/ticks/failed", nil)
	activeGauge        = metrics.NewRegisteredGauge("dispatcher/instances/active", nil)
	idleCounter        = metrics.NewRegisteredCounter("dispatcher/reactions/idle", nil)
	transactionCounter = metrics.NewRegisteredCounter("dispatcher/reactions/transaction", nil)
	requestCounter     = metrics.NewRegisteredCounter("dispatcher/reactions/request", nil)
	reactionErrors     = metrics.NewRegisteredCounter("dispatcher/reactions/error", nil)
	reactionTimer      = metrics.NewRegisteredTimer("dispatcher/reactions/duration", nil)
)

type Config struct {
	PollInterval time.Duration `koanf:"poll-interval"`
	MaxRequests  int           `koanf:"max-requests"`
}

type ConfigFetcher func() *Config

var DefaultConfig = Config{
	PollInterval: 6 * time.Second,
	MaxRequests:  4,
}

var TestConfig = Config{
	PollInterval: 10 * time.Millisecond,
	MaxRequests:  4,
}

func ConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.Duration(prefix+".poll-interval", DefaultConfig.PollInterval, "interval between two evaluations of the active instances")
	f.Int(prefix+".max-requests", DefaultConfig.MaxRequests, "archive requests fulfilled for one instance before moving to the next one within a tick")
}

func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.MaxRequests < 1 {
		return fmt.Errorf("max requests must be at least 1, got %v", c.MaxRequests)
	}
	return nil
}

// HeaderSource gives the latest healthy header of the node.
type HeaderSource interface {
	LastHeader(ctx context.Context) (*types.Header, error)
}

// InstanceSource lists and reads instances at a given block.
type InstanceSource interface {
	ActiveInstances(ctx context.Context, concern configuration.Concern, blockNumber *big.Int) ([]*big.Int, error)
	Instance(ctx context.Context, concern configuration.Concern, index *big.Int, blockNumber *big.Int) (*state.Instance, error)
}

// Sender submits transaction requests.
type Sender interface {
	Send(ctx context.Context, request transaction.Request) (*types.Transaction, error)
}

// Dispatcher evaluates every active instance of the main concern on each
// tick and carries out the resulting reactions.
type Dispatcher struct {
	stopwaiter.StopWaiter
	config    ConfigFetcher
	concern   configuration.Concern
	headers   HeaderSource
	instances InstanceSource
	archive   *archive.Archive
	sender    Sender
	dapp      DApp[struct{}]

	newHeaders    <-chan *types.Header
	confirmations <-chan struct{}
}

func New(
	config ConfigFetcher,
	concern configuration.Concern,
	headers HeaderSource,
	instances InstanceSource,
	samples *archive.Archive,
	sender Sender,
	dapp DApp[struct{}],
) *Dispatcher {
	return &Dispatcher{
		config:    config,
		concern:   concern,
		headers:   headers,
		instances: instances,
		archive:   samples,
		sender:    sender,
		dapp:      dapp,
	}
}

// TriggerOn makes new headers and transaction confirmations start a tick
// without waiting for the poll interval. Either channel may be nil.
func (d *Dispatcher) TriggerOn(newHeaders <-chan *types.Header, confirmations <-chan struct{}) {
	d.newHeaders = newHeaders
	d.confirmations = confirmations
}

// Tick evaluates all active instances once. Failures of single instances
// are logged and counted; only failing to read the chain fails the tick.
func (d *Dispatcher) Tick(ctx context.Context) error {
	tickCounter.Inc(1)
	header, err := d.headers.LastHeader(ctx)
	if err != nil {
		return fmt.Errorf("reading latest header: %w", err)
	}
	indices, err := d.instances.ActiveInstances(ctx, d.concern, header.Number)
	if err != nil {
		return fmt.Errorf("listing active instances at block %v: %w", header.Number, err)
	}
	activeGauge.Update(int64(len(indices)))
	log.Trace("dispatcher tick", "block", header.Number, "time", header.Time, "active", len(indices))
	for _, index := range indices {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := d.handle(ctx, header, index); err != nil {
			reactionErrors.Inc(1)
			log.Error("failed to react to instance", "concern", d.concern, "index", index, "block", header.Number, "err", err)
		}
	}
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, header *types.Header, index *big.Int) error {
	instance, err := d.instances.Instance(ctx, d.concern, index, header.Number)
	if err != nil {
		return err
	}
	for i := 0; i < d.config().MaxRequests; i++ {
		start := time.Now()
		reaction, err := d.dapp.React(instance, d.archive.Snapshot(header.Time), struct{}{})
		reactionTimer.UpdateSince(start)
		if err != nil {
			return err
		}
		switch r := reaction.(type) {
		case Idle:
			idleCounter.Inc(1)
			log.Trace("instance idle", "index", index)
			return nil
		case Transaction:
			transactionCounter.Inc(1)
			_, err := d.sender.Send(ctx, r.Request)
			return err
		case Request:
			requestCounter.Inc(1)
			log.Debug("fulfilling archive request", "index", index, "request", r.Request)
			if err := d.archive.Fulfill(ctx, r.Request); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown reaction %T", reaction)
		}
	}
	log.Debug("instance still requesting samples, continuing next tick", "index", index)
	return nil
}

func (d *Dispatcher) tick(ctx context.Context, _ struct{}) time.Duration {
	if err := d.Tick(ctx); err != nil && ctx.Err() == nil {
		tickFailureCounter.Inc(1)
		log.Warn("dispatcher tick failed", "err", err)
	}
	return d.config().PollInterval
}

func (d *Dispatcher) Start(ctxIn context.Context) {
	d.StopWaiter.Start(ctxIn, d)
	trigger := make(chan struct{}, 1)
	notify := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}
	d.LaunchThread(func(ctx context.Context) {
		newHeaders, confirmations := d.newHeaders, d.confirmations
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-newHeaders:
				if !ok {
					newHeaders = nil
					continue
				}
				notify()
			case _, ok := <-confirmations:
				if !ok {
					confirmations = nil
					continue
				}
				notify()
			}
		}
	})
	if err := stopwaiter.CallIterativelyWith(&d.StopWaiterSafe, d.tick, trigger); err != nil {
		panic(err)
	}
}
