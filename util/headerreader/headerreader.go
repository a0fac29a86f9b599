// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package headerreader

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	flag "github.com/spf13/pflag"

	"github.com/juztamau5/dispatcher/util/stopwaiter"
)

var ErrNodeBehind = errors.New("ethereum node is behind")

// HeaderSource is the part of an ethclient.Client the reader needs.
type HeaderSource interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

type Config struct {
	PollInterval time.Duration `koanf:"poll-interval"`
}

type ConfigFetcher func() *Config

var DefaultConfig = Config{
	PollInterval: 5 * time.Second,
}

var TestConfig = Config{
	PollInterval: 10 * time.Millisecond,
}

func ConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.Duration(prefix+".poll-interval", DefaultConfig.PollInterval, "interval when polling the Ethereum node for headers")
}

// Health bounds how old the node's latest block may be.
type Health struct {
	// Testing skips the delay checks.
	Testing   bool
	MaxDelay  time.Duration
	WarnDelay time.Duration
}

// CheckDelay fails when the header is older than MaxDelay and warns when
// it is older than WarnDelay.
func (h Health) CheckDelay(header *types.Header, now time.Time) error {
	if h.Testing {
		return nil
	}
	delay := now.Sub(time.Unix(int64(header.Time), 0))
	if delay > h.MaxDelay {
		return fmt.Errorf("%w: block %v is %v old, more than %v", ErrNodeBehind, header.Number, delay.Truncate(time.Second), h.MaxDelay)
	}
	if delay > h.WarnDelay {
		log.Warn("ethereum node's latest block is old", "number", header.Number, "delay", delay.Truncate(time.Second), "warnDelay", h.WarnDelay)
	}
	return nil
}

// HeaderReader polls the node's latest header and broadcasts new ones to
// subscribers. A subscriber that does not keep up is skipped until it
// reads again.
type HeaderReader struct {
	stopwaiter.StopWaiter
	config            ConfigFetcher
	client            HeaderSource
	health            Health
	outChannels       map[chan<- *types.Header]struct{}
	outChannelsBehind map[chan<- *types.Header]struct{}
	chanMutex         sync.Mutex

	lastBroadcastHash   common.Hash
	lastBroadcastHeader *types.Header
}

func New(client HeaderSource, config ConfigFetcher, health Health) *HeaderReader {
	return &HeaderReader{
		client:            client,
		config:            config,
		health:            health,
		outChannels:       make(map[chan<- *types.Header]struct{}),
		outChannelsBehind: make(map[chan<- *types.Header]struct{}),
	}
}

// TestConnection checks the node answers, runs the expected chain and is
// not behind.
func (s *HeaderReader) TestConnection(ctx context.Context, expectedChainID uint64) error {
	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("reading chain id: %w", err)
	}
	if expectedChainID != 0 && chainID.Uint64() != expectedChainID {
		return fmt.Errorf("node runs chain %v, expected %v", chainID, expectedChainID)
	}
	header, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("reading latest header: %w", err)
	}
	log.Info("connected to ethereum node", "chainId", chainID, "block", header.Number)
	return s.health.CheckDelay(header, time.Now())
}

func (s *HeaderReader) Subscribe() (<-chan *types.Header, func()) {
	s.chanMutex.Lock()
	defer s.chanMutex.Unlock()

	result := make(chan *types.Header)
	outchannel := (chan<- *types.Header)(result)
	s.outChannelsBehind[outchannel] = struct{}{}
	unsubscribeFunc := func() { s.unsubscribe(outchannel) }
	return result, unsubscribeFunc
}

func (s *HeaderReader) unsubscribe(from chan<- *types.Header) {
	s.chanMutex.Lock()
	defer s.chanMutex.Unlock()
	if _, ok := s.outChannels[from]; ok {
		delete(s.outChannels, from)
		close(from)
	}
	if _, ok := s.outChannelsBehind[from]; ok {
		delete(s.outChannelsBehind, from)
		close(from)
	}
}

func (s *HeaderReader) closeAll() {
	s.chanMutex.Lock()
	defer s.chanMutex.Unlock()

	for ch := range s.outChannels {
		delete(s.outChannels, ch)
		close(ch)
	}
	for ch := range s.outChannelsBehind {
		delete(s.outChannelsBehind, ch)
		close(ch)
	}
}

func (s *HeaderReader) possiblyBroadcast(h *types.Header) {
	s.chanMutex.Lock()
	defer s.chanMutex.Unlock()

	headerHash := h.Hash()

	if headerHash != s.lastBroadcastHash {
		for ch := range s.outChannels {
			select {
			case ch <- h:
			default:
				delete(s.outChannels, ch)
				s.outChannelsBehind[ch] = struct{}{}
			}
		}
		s.lastBroadcastHash = headerHash
		s.lastBroadcastHeader = h
	}

	for ch := range s.outChannelsBehind {
		select {
		case ch <- h:
			delete(s.outChannelsBehind, ch)
			s.outChannels[ch] = struct{}{}
		default:
		}
	}
}

func (s *HeaderReader) pollHeader(ctx context.Context) time.Duration {
	lastHeader, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		log.Warn("failed reading header", "err", err)
		return s.config().PollInterval
	}
	s.possiblyBroadcast(lastHeader)
	return s.config().PollInterval
}

// LastHeader returns the latest polled header, reading it from the node
// if none was polled yet, after checking it against the health bounds.
func (s *HeaderReader) LastHeader(ctx context.Context) (*types.Header, error) {
	s.chanMutex.Lock()
	header := s.lastBroadcastHeader
	s.chanMutex.Unlock()
	if header == nil {
		var err error
		header, err = s.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, err
		}
	}
	if err := s.health.CheckDelay(header, time.Now()); err != nil {
		return nil, err
	}
	return header, nil
}

func (s *HeaderReader) Start(ctxIn context.Context) {
	s.StopWaiter.Start(ctxIn, s)
	s.CallIteratively(s.pollHeader)
}

func (s *HeaderReader) StopAndWait() {
	s.StopWaiter.StopAndWait()
	s.closeAll()
}
