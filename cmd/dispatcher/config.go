// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package main

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/juztamau5/dispatcher/archive"
	"github.com/juztamau5/dispatcher/cmd/genericconf"
	"github.com/juztamau5/dispatcher/cmd/util"
	"github.com/juztamau5/dispatcher/cmd/util/confighelpers"
	"github.com/juztamau5/dispatcher/configuration"
	"github.com/juztamau5/dispatcher/dispatcher"
	"github.com/juztamau5/dispatcher/hasher"
	"github.com/juztamau5/dispatcher/transaction"
	"github.com/juztamau5/dispatcher/util/headerreader"
)

type DispatcherConfig struct {
	configuration.Config  `koanf:",squash"`
	util.MetricsPProfOpts `koanf:",squash"`

	Conf         genericconf.ConfConfig        `koanf:"conf"`
	LogLevel     string                        `koanf:"log-level"`
	LogType      string                        `koanf:"log-type"`
	FileLogging  genericconf.FileLoggingConfig `koanf:"file-logging"`
	Wallet       genericconf.WalletConfig      `koanf:"wallet"`
	Dispatcher   dispatcher.Config             `koanf:"dispatcher"`
	Transaction  transaction.Config            `koanf:"transaction"`
	HeaderReader headerreader.Config           `koanf:"header-reader"`
	Archive      archive.Config                `koanf:"archive"`
	Hasher       hasher.ClientConfig           `koanf:"hasher"`
}

var DispatcherConfigDefault = DispatcherConfig{
	Config:           configuration.ConfigDefault,
	MetricsPProfOpts: util.MetricsPProfOptsDefault,
	Conf:             genericconf.ConfConfigDefault,
	LogLevel:         "info",
	LogType:          "plaintext",
	FileLogging:      genericconf.DefaultFileLoggingConfig,
	Wallet:           genericconf.WalletConfigDefault,
	Dispatcher:       dispatcher.DefaultConfig,
	Transaction:      transaction.DefaultConfig,
	HeaderReader:     headerreader.DefaultConfig,
	Archive:          archive.DefaultConfig,
	Hasher:           hasher.DefaultClientConfig,
}

func DispatcherConfigAddOptions(f *flag.FlagSet) {
	configuration.ConfigAddOptions(f)
	util.MetricsPProfAddOptions(f)
	genericconf.ConfConfigAddOptions("conf", f)
	f.String("log-level", DispatcherConfigDefault.LogLevel, "log level: trace, debug, info, warn, error or crit")
	f.String("log-type", DispatcherConfigDefault.LogType, "log type (plaintext or json)")
	genericconf.FileLoggingConfigAddOptions("file-logging", f)
	genericconf.WalletConfigAddOptions("wallet", f, "")
	dispatcher.ConfigAddOptions("dispatcher", f)
	transaction.ConfigAddOptions("transaction", f)
	headerreader.ConfigAddOptions("header-reader", f)
	archive.ConfigAddOptions("archive", f)
	hasher.ClientConfigAddOptions("hasher", f)
}

func (c *DispatcherConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if err := c.Dispatcher.Validate(); err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	if err := c.Archive.Validate(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if c.Hasher.URL == "" {
		return fmt.Errorf("%w: need to provide the hasher url", configuration.ErrInvalidConfig)
	}
	return nil
}

func ParseDispatcher(args []string) (*DispatcherConfig, error) {
	f := flag.NewFlagSet("", flag.ContinueOnError)
	DispatcherConfigAddOptions(f)

	k, err := confighelpers.BeginCommonParse(f, args)
	if err != nil {
		return nil, err
	}
	var config DispatcherConfig
	if err := confighelpers.EndCommonParse(k, &config); err != nil {
		return nil, err
	}

	// Don't print wallet secrets
	if config.Conf.Dump {
		err = confighelpers.DumpConfig(k, map[string]interface{}{
			"wallet.password":    "",
			"wallet.private-key": "",
			"conf.s3.secret-key": "",
		})
		if err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
