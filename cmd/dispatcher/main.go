// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/juztamau5/dispatcher/archive"
	"github.com/juztamau5/dispatcher/cmd/genericconf"
	"github.com/juztamau5/dispatcher/cmd/util"
	"github.com/juztamau5/dispatcher/cmd/util/confighelpers"
	"github.com/juztamau5/dispatcher/compute"
	"github.com/juztamau5/dispatcher/dispatcher"
	"github.com/juztamau5/dispatcher/hasher"
	"github.com/juztamau5/dispatcher/state"
	"github.com/juztamau5/dispatcher/transaction"
	"github.com/juztamau5/dispatcher/util/headerreader"
)

func printSampleUsage(name string) {
	fmt.Printf("Sample usage: %s --conf.file config.yaml\n", name)
	fmt.Printf("              %s --url ws://127.0.0.1:8545 --working-path /var/dispatcher --main-concern.contract 0x... --main-concern.user 0x... --main-concern.abi vg.json\n", name)
}

func main() {
	os.Exit(mainImpl())
}

// Returns the exit code
func mainImpl() int {
	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	config, err := ParseDispatcher(os.Args[1:])
	if err != nil {
		confighelpers.PrintErrorAndExit(err, printSampleUsage)
	}
	resolved, err := config.Resolve()
	if err != nil {
		confighelpers.PrintErrorAndExit(err, printSampleUsage)
	}
	if err := genericconf.InitLog(config.LogType, config.LogLevel, &config.FileLogging, genericconf.DefaultPathResolver(resolved.WorkingPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		return 1
	}
	vcsRevision, vcsTime := confighelpers.GetVersion()
	log.Info("Running dispatcher", "revision", vcsRevision, "vcs.time", vcsTime, "config", resolved)

	if err := util.StartMetricsAndPProf(&config.MetricsPProfOpts); err != nil {
		log.Error("failed to start metrics", "err", err)
		return 1
	}

	client, err := ethclient.DialContext(ctx, resolved.URL)
	if err != nil {
		log.Error("failed to connect to the Ethereum node", "url", resolved.URL, "err", err)
		return 1
	}
	defer client.Close()
	health := headerreader.Health{
		Testing:   resolved.Testing,
		MaxDelay:  resolved.MaxDelay,
		WarnDelay: resolved.WarnDelay,
	}
	reader := headerreader.New(client, func() *headerreader.Config { return &config.HeaderReader }, health)
	if err := reader.TestConnection(ctx, resolved.ChainID); err != nil {
		log.Error("Ethereum node is unusable", "url", resolved.URL, "err", err)
		return 1
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		log.Error("failed to read chain id", "err", err)
		return 1
	}

	config.Wallet.ResolveDirectoryNames(resolved.WorkingPath)
	auth, err := util.OpenWallet("dispatcher", &config.Wallet, chainID)
	if err != nil {
		log.Error("failed to open wallet", "err", err)
		return 1
	}
	if err := util.CheckWalletOwner(auth, resolved.MainConcern.UserAddress); err != nil {
		log.Error("wallet cannot act for the main concern", "err", err)
		return 1
	}

	abis := state.NewAbiLoader(resolved)
	if _, err := abis.Abi(resolved.MainConcern.ContractAddress); err != nil {
		log.Error("failed to load the main concern's abi", "err", err)
		return 1
	}
	instances := state.NewFetcher(client, abis)

	store, err := archive.OpenStore(&config.Archive, resolved.WorkingPath)
	if err != nil {
		log.Error("failed to open archive store", "store", config.Archive.Store, "err", err)
		return 1
	}
	hasherClient := hasher.NewClient(func() *hasher.ClientConfig { return &config.Hasher })
	if err := hasherClient.Start(ctx); err != nil {
		log.Error("failed to connect to the hasher", "url", config.Hasher.URL, "err", err)
		return 1
	}
	defer hasherClient.Close()
	samples, err := archive.New(hasherClient, store, config.Archive.CacheSize)
	if err != nil {
		log.Error("failed to create archive", "err", err)
		return 1
	}
	defer func() {
		if err := samples.Close(); err != nil {
			log.Warn("failed to close archive", "err", err)
		}
	}()

	manager := transaction.NewManager(func() *transaction.Config { return &config.Transaction }, client, abis, auth)
	newHeaders, unsubscribe := reader.Subscribe()
	defer unsubscribe()
	d := dispatcher.New(
		func() *dispatcher.Config { return &config.Dispatcher },
		resolved.MainConcern,
		reader,
		instances,
		samples,
		manager,
		compute.NewVG(),
	)
	d.TriggerOn(newHeaders, manager.Confirmed())

	reader.Start(ctx)
	defer reader.StopAndWait()
	manager.Start(ctx)
	defer manager.StopAndWait()
	d.Start(ctx)
	defer d.StopAndWait()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint
	log.Info("shutting down because of sigint")

	// cause future ctrl+c's to panic
	close(sigint)
	return 0
}
