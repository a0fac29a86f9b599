// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package hasher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	flag "github.com/spf13/pflag"
)

type ClientConfig struct {
	URL            string        `koanf:"url"`
	Timeout        time.Duration `koanf:"timeout"`
	Retries        uint          `koanf:"retries"`
	ConnectionWait time.Duration `koanf:"connection-wait"`
	ArgLogLimit    uint          `koanf:"arg-log-limit"`
	RetryErrors    string        `koanf:"retry-errors"`
}

type ClientConfigFetcher func() *ClientConfig

var DefaultClientConfig = ClientConfig{
	URL:            "http://127.0.0.1:50051",
	Timeout:        time.Minute,
	Retries:        3,
	ConnectionWait: 0,
	ArgLogLimit:    2048,
	RetryErrors:    "",
}

func ClientConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".url", DefaultClientConfig.URL, "url of the hasher service")
	f.Duration(prefix+".timeout", DefaultClientConfig.Timeout, "per-response timeout (0-disabled)")
	f.Uint(prefix+".retries", DefaultClientConfig.Retries, "number of retries in case of failure(0 mean one attempt)")
	f.Duration(prefix+".connection-wait", DefaultClientConfig.ConnectionWait, "how long to wait for initial connection")
	f.Uint(prefix+".arg-log-limit", DefaultClientConfig.ArgLogLimit, "limit size of arguments in log entries")
	f.String(prefix+".retry-errors", DefaultClientConfig.RetryErrors, "Errors matching this regular expression are automatically retried")
}

// Client talks to a hasher service, retrying failed calls.
type Client struct {
	config ClientConfigFetcher
	client *rpc.Client
	logId  uint64
}

func NewClient(config ClientConfigFetcher) *Client {
	return &Client{config: config}
}

// NewClientFromRPC wraps an already connected client.
func NewClientFromRPC(config ClientConfigFetcher, client *rpc.Client) *Client {
	return &Client{config: config, client: client}
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func limitString(limit int, str string) string {
	if limit == 0 || len(str) <= limit {
		return str
	}
	prefix := str[:limit/2-1]
	postfix := str[len(str)-limit/2+1:]
	return fmt.Sprintf("%v..%v", prefix, postfix)
}

func logArgs(limit int, args ...interface{}) string {
	res := "["
	for i, arg := range args {
		marshalled, err := json.Marshal(arg)
		if err != nil {
			res += "\"CANNOT MARSHALL:" + limitString(limit, err.Error()) + "\""
		} else {
			res += limitString(limit, string(marshalled))
		}
		if i < len(args)-1 {
			res += ", "
		}
	}
	res += "]"
	return res
}

func (c *Client) Start(ctxIn context.Context) error {
	url := c.config().URL
	if url == "" {
		return errors.New("no url provided for the hasher")
	}
	connTimeout := time.After(c.config().ConnectionWait)
	for {
		var ctx context.Context
		var cancelCtx context.CancelFunc
		timeout := c.config().Timeout
		if timeout > 0 {
			ctx, cancelCtx = context.WithTimeout(ctxIn, timeout)
		} else {
			ctx, cancelCtx = context.WithCancel(ctxIn)
		}
		client, err := rpc.DialContext(ctx, url)
		cancelCtx()
		if err == nil {
			c.client = client
			return nil
		}
		if strings.Contains(err.Error(), "parse") ||
			strings.Contains(err.Error(), "malformed") {
			return fmt.Errorf("%w: url %s", err, url)
		}
		select {
		case <-connTimeout:
			return fmt.Errorf("timeout trying to connect lastError: %w", err)
		case <-time.After(time.Second):
		}
	}
}

func (c *Client) CallContext(ctxIn context.Context, result interface{}, method string, args ...interface{}) error {
	if c.client == nil {
		return errors.New("not connected")
	}
	logId := atomic.AddUint64(&c.logId, 1)
	log.Trace("sending hasher request", "method", method, "logId", logId, "args", logArgs(int(c.config().ArgLogLimit), args...))
	var err error
	for i := 0; i < int(c.config().Retries)+1; i++ {
		if ctxIn.Err() != nil {
			return ctxIn.Err()
		}
		var ctx context.Context
		var cancelCtx context.CancelFunc
		timeout := c.config().Timeout
		if timeout > 0 {
			ctx, cancelCtx = context.WithTimeout(ctxIn, timeout)
		} else {
			ctx, cancelCtx = context.WithCancel(ctxIn)
		}
		err = c.client.CallContext(ctx, result, method, args...)
		cancelCtx()
		if err == nil {
			log.Trace("hasher response", "method", method, "logId", logId, "attempt", i)
			return nil
		}
		log.Info("hasher request failed", "method", method, "logId", logId, "err", err, "attempt", i)
		if errors.Is(err, context.DeadlineExceeded) {
			continue
		}
		retryErrors := c.config().RetryErrors
		if retryErrors != "" {
			match, regexErr := regexp.MatchString(retryErrors, err.Error())
			if regexErr != nil {
				log.Warn("hasher client: bad value for retry-errors. Not retrying.", "err", regexErr, "value", retryErrors)
			}
			if match {
				continue
			}
		}
		return err
	}
	return err
}

// Run fetches the hashes of the run identified by key at the given times.
func (c *Client) Run(ctx context.Context, key common.Hash, times []uint64) ([]common.Hash, error) {
	encoded := make([]hexutil.Uint64, len(times))
	for i, t := range times {
		encoded[i] = hexutil.Uint64(t)
	}
	var hashes []common.Hash
	if err := c.CallContext(ctx, &hashes, Namespace+"_run", key, encoded); err != nil {
		return nil, err
	}
	if len(hashes) != len(times) {
		return nil, fmt.Errorf("hasher returned %v hashes for %v times", len(hashes), len(times))
	}
	return hashes, nil
}

// Step fetches the memory accesses of the step taken from hash at time.
func (c *Client) Step(ctx context.Context, hash common.Hash, time uint64) ([]Access, error) {
	var accesses []Access
	if err := c.CallContext(ctx, &accesses, Namespace+"_step", hash, hexutil.Uint64(time)); err != nil {
		return nil, err
	}
	return accesses, nil
}
