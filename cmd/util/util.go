// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package util

import (
	"fmt"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/exp"
	flag "github.com/spf13/pflag"

	"github.com/juztamau5/dispatcher/cmd/genericconf"
)

type MetricsPProfOpts struct {
	Metrics       bool                            `koanf:"metrics"`
	MetricsServer genericconf.MetricsServerConfig `koanf:"metrics-server"`
	PProf         bool                            `koanf:"pprof"`
	PprofCfg      genericconf.PProf               `koanf:"pprof-cfg"`
}

var MetricsPProfOptsDefault = MetricsPProfOpts{
	Metrics:       false,
	MetricsServer: genericconf.MetricsServerConfigDefault,
	PProf:         false,
	PprofCfg:      genericconf.PProfDefault,
}

func MetricsPProfAddOptions(f *flag.FlagSet) {
	f.Bool("metrics", MetricsPProfOptsDefault.Metrics, "enable metrics")
	genericconf.MetricsServerAddOptions("metrics-server", f)
	f.Bool("pprof", MetricsPProfOptsDefault.PProf, "enable pprof")
	genericconf.PProfAddOptions("pprof-cfg", f)
}

// StartMetricsAndPProf starts whichever of the two servers is enabled.
// They may be toggled independently but cannot share an address.
func StartMetricsAndPProf(opts *MetricsPProfOpts) error {
	mAddr := fmt.Sprintf("%v:%v", opts.MetricsServer.Addr, opts.MetricsServer.Port)
	pAddr := fmt.Sprintf("%v:%v", opts.PprofCfg.Addr, opts.PprofCfg.Port)
	if opts.Metrics && !metrics.Enabled {
		return fmt.Errorf("metrics must be enabled via command line by adding --metrics, json config has no effect")
	}
	if opts.Metrics && opts.PProf && mAddr == pAddr {
		return fmt.Errorf("metrics and pprof cannot be enabled on the same address:port: %s", mAddr)
	}
	if opts.Metrics {
		go metrics.CollectProcessMetrics(opts.MetricsServer.UpdateInterval)
		exp.Setup(mAddr)
	}
	if opts.PProf {
		genericconf.StartPprof(pAddr)
	}
	return nil
}
