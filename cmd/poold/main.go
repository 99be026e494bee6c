package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/consensys/gnark/frontend"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/tetsuo-ai/privacy-pool/api"
	"github.com/tetsuo-ai/privacy-pool/circuits/innocence"
	"github.com/tetsuo-ai/privacy-pool/circuits/withdraw"
	"github.com/tetsuo-ai/privacy-pool/pkg/setup"
	"github.com/tetsuo-ai/privacy-pool/pool"
)

var (
	host     string
	port     int
	keysDir  string
	stateDir string
	logLevel string
)

func main() {
	flag.StringVarP(&host, "host", "H", "0.0.0.0", "network host for the HTTP API")
	flag.IntVarP(&port, "port", "p", 9000, "network port for the HTTP API")
	flag.StringVarP(&keysDir, "keys", "k", "", "directory with ceremony keys (empty: unsafe dev setup)")
	flag.StringVarP(&stateDir, "state", "d", "", "directory for state snapshots on shutdown")
	flag.StringVarP(&logLevel, "loglevel", "l", "info", "log level (debug, info, warn, error)")
	flag.CommandLine.SortFlags = false
	flag.Parse()

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	p, err := buildPool(log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize pool")
	}

	if _, err := api.New(log, &api.Config{Host: host, Port: port, Pool: p}); err != nil {
		log.Fatal().Err(err).Msg("failed to start API")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	if stateDir != "" {
		if err := p.SaveState(stateDir); err != nil {
			log.Error().Err(err).Msg("failed to snapshot state")
		} else {
			log.Info().Str("dir", stateDir).Msg("state snapshot written")
		}
	}
	log.Info().Msg("shutting down")
}

func buildPool(log zerolog.Logger) (*pool.Pool, error) {
	if keysDir == "" {
		log.Warn().Msg("no keys directory given, using unsafe dev setup")
		return pool.NewDev(log)
	}

	withdrawKeys, err := loadCircuit(&withdraw.WithdrawCircuit{}, "withdraw")
	if err != nil {
		return nil, err
	}
	innocenceKeys, err := loadCircuit(&innocence.InnocenceCircuit{}, "innocence")
	if err != nil {
		return nil, err
	}
	log.Info().Str("dir", keysDir).Msg("ceremony keys loaded")
	return pool.New(log, withdrawKeys, innocenceKeys), nil
}

func loadCircuit(circuit frontend.Circuit, name string) (pool.CircuitKeys, error) {
	ccs, err := setup.CompileCircuit(circuit)
	if err != nil {
		return pool.CircuitKeys{}, err
	}
	pk, vk, err := setup.LoadKeys(keysDir, name)
	if err != nil {
		return pool.CircuitKeys{}, err
	}
	return pool.CircuitKeys{CCS: ccs, PK: pk, VK: vk}, nil
}
