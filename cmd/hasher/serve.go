// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/juztamau5/dispatcher/cmd/util"
	"github.com/juztamau5/dispatcher/hasher"
)

var (
	PortFlag = &cli.UintFlag{
		Name:  "port",
		Usage: "port to serve the hasher JSON-RPC API on",
		Value: 50051,
	}
	AddrFlag = &cli.StringFlag{
		Name:  "addr",
		Usage: "interface to serve the hasher JSON-RPC API on",
		Value: "127.0.0.1",
	}
	FakeFlag = &cli.BoolFlag{
		Name:  "fake",
		Usage: "corrupt hashes to play a dishonest party",
	}
	FakeFromFlag = &cli.Uint64Flag{
		Name:  "fake-from",
		Usage: "first machine time whose hash is corrupted when faking",
		Value: hasher.DefaultEmulatorConfig.FakeFrom,
	}
	MaxTimeFlag = &cli.Uint64Flag{
		Name:  "max-time",
		Usage: "largest machine time the emulator runs to",
		Value: hasher.DefaultEmulatorConfig.MaxTime,
	}
	IndexSizeFlag = &cli.IntFlag{
		Name:  "index-size",
		Usage: "number of produced hashes remembered for step requests",
		Value: hasher.DefaultEmulatorConfig.IndexSize,
	}
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "log level: trace, debug, info, warn, error or crit",
		Value: "info",
	}
	LogTypeFlag = &cli.StringFlag{
		Name:  "log-type",
		Usage: "log type (plaintext or json)",
		Value: "plaintext",
	}
	PProfCPUFlag = &cli.BoolFlag{
		Name:  "pprof.cpu",
		Usage: "enable pprof cpu profiling, written to the current directory",
	}
)

const shutdownTimeout = 5 * time.Second

func emulatorConfig(ctx *cli.Context) hasher.EmulatorConfig {
	return hasher.EmulatorConfig{
		Fake:      ctx.Bool(FakeFlag.Name),
		FakeFrom:  ctx.Uint64(FakeFromFlag.Name),
		MaxTime:   ctx.Uint64(MaxTimeFlag.Name),
		IndexSize: ctx.Int(IndexSizeFlag.Name),
	}
}

func Serve(ctx *cli.Context) error {
	if ctx.Bool(PProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}
	if err := util.SetLogger(ctx.String(LogLevelFlag.Name), ctx.String(LogTypeFlag.Name)); err != nil {
		return err
	}
	config := emulatorConfig(ctx)
	emulator, err := hasher.NewEmulator(config)
	if err != nil {
		return err
	}
	handler, err := hasher.NewServer(emulator)
	if err != nil {
		return err
	}
	defer handler.Stop()

	address := net.JoinHostPort(ctx.String(AddrFlag.Name), fmt.Sprint(ctx.Uint(PortFlag.Name)))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %v: %w", address, err)
	}
	return serve(ctx.Context, listener, handler, config)
}

func serve(ctx context.Context, listener net.Listener, handler http.Handler, config hasher.EmulatorConfig) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(listener)
	}()
	log.Info("hasher serving", "addr", listener.Addr(), "fake", config.Fake, "fake-from", config.FakeFrom)

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errChan; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("hasher stopped")
	return nil
}

var ServeCommand = &cli.Command{
	Name:        "serve",
	Usage:       "Serve the toy machine over JSON-RPC",
	Description: "Serve hasher_run and hasher_step for the dispatcher. With --fake, hashes from --fake-from on are corrupted.",
	Action:      Serve,
	Flags: []cli.Flag{
		PortFlag,
		AddrFlag,
		FakeFlag,
		FakeFromFlag,
		MaxTimeFlag,
		IndexSizeFlag,
		LogLevelFlag,
		LogTypeFlag,
		PProfCPUFlag,
	},
}
