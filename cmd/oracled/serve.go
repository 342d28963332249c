package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/urfave/cli.v1"

	"github.com/dirtybits/agent-reputation-oracle/internal/api"
	"github.com/dirtybits/agent-reputation-oracle/internal/common"
	"github.com/dirtybits/agent-reputation-oracle/internal/events"
	"github.com/dirtybits/agent-reputation-oracle/internal/host"
	"github.com/dirtybits/agent-reputation-oracle/internal/kvstore"
)

var (
	serveCommand = cli.Command{
		Action:      serve,
		Name:        "serve",
		Usage:       "Run the HTTP API over a local ledger",
		Description: `The serve command opens the ledger database and serves the instruction, account and event APIs.`,
	}

	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[file]",
		Description: `The dumpconfig command shows configuration values.`,
	}
)

func loadConfig(ctx *cli.Context) (*common.Config, error) {
	return common.LoadConfig(ctx.GlobalString(configFileFlag.Name))
}

func serve(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	store, err := kvstore.Open(cfg.DBPath, cfg.CacheSize)
	if err != nil {
		return err
	}
	defer store.Close()

	hub := events.NewHub()
	pubs := events.Multi{hub}
	if cfg.NATSURL != "" {
		nc, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return err
		}
		pubs = append(pubs, nc)
	}
	defer pubs.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(host.New(store, pubs), hub).Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	errs := make(chan error, 1)
	go func() {
		common.Log.Debugf("oracled listening on %s; ledger at %s", cfg.ListenAddr, cfg.DBPath)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-sigs:
		common.Log.Debugf("received %s; shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Close()
	return srv.Shutdown(shutdownCtx)
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	out, err := common.MarshalConfig(cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	_, err = dump.Write(out)
	return err
}
