// oracled runs the reputation ledger as a standalone service.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	urlFlag = cli.StringFlag{
		Name:  "url",
		Usage: "oracled API base URL",
		Value: "http://127.0.0.1:8080",
	}
	keyFlag = cli.StringFlag{
		Name:  "key",
		Usage: "file holding the hex-encoded ed25519 seed written by keygen",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "oracled"
	app.Usage = "stake-backed agent reputation ledger"
	app.Flags = []cli.Flag{configFileFlag}
	app.Commands = []cli.Command{
		serveCommand,
		dumpConfigCommand,
		accountsCommand,
		keygenCommand,
		submitCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
