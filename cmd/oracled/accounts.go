package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/dirtybits/agent-reputation-oracle/internal/api"
	"github.com/dirtybits/agent-reputation-oracle/internal/host"
	"github.com/dirtybits/agent-reputation-oracle/internal/kvstore"
	"github.com/dirtybits/agent-reputation-oracle/internal/ledger"
)

var (
	accountsCommand = cli.Command{
		Action:    listAccounts,
		Name:      "accounts",
		Usage:     "Print the accounts of one kind from the local ledger",
		ArgsUsage: "<kind> [field=value...]",
		Description: `The accounts command scans the ledger database for every account of the
given kind and prints those matching all field=value filters as a table.`,
	}

	keygenCommand = cli.Command{
		Action:    keygen,
		Name:      "keygen",
		Usage:     "Generate an agent signing key",
		ArgsUsage: "<file>",
	}

	submitCommand = cli.Command{
		Action:    submit,
		Name:      "submit",
		Usage:     "Sign and submit an instruction to a running oracled",
		ArgsUsage: "<instruction> <json args>",
		Flags:     []cli.Flag{urlFlag, keyFlag},
	}
)

func listAccounts(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return fmt.Errorf("usage: oracled accounts %s", ctx.Command.ArgsUsage)
	}
	kind, ok := ledger.ParseKind(ctx.Args().First())
	if !ok {
		return fmt.Errorf("unknown account kind %q", ctx.Args().First())
	}
	var filters []ledger.Filter
	for _, arg := range ctx.Args().Tail() {
		field, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("filter %q is not field=value", arg)
		}
		filters = append(filters, ledger.Filter{Field: field, Value: value})
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	store, err := kvstore.Open(cfg.DBPath, cfg.CacheSize)
	if err != nil {
		return err
	}
	defer store.Close()

	accounts, err := host.New(store, nil).List(kind, filters...)
	if err != nil {
		return err
	}
	return renderAccounts(os.Stdout, accounts)
}

// renderAccounts prints one row per account with a column per field.
func renderAccounts(w io.Writer, accounts []json.RawMessage) error {
	rows := make([]map[string]interface{}, 0, len(accounts))
	columns := map[string]struct{}{}
	for _, raw := range accounts {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var row map[string]interface{}
		if err := dec.Decode(&row); err != nil {
			return err
		}
		for k := range row {
			columns[k] = struct{}{}
		}
		rows = append(rows, row)
	}
	header := make([]string, 0, len(columns))
	for k := range columns {
		if k != "address" {
			header = append(header, k)
		}
	}
	sort.Strings(header)
	header = append([]string{"address"}, header...)

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	for _, row := range rows {
		cells := make([]string, len(header))
		for i, col := range header {
			if v, ok := row[col]; ok {
				cells[i] = fmt.Sprint(v)
			}
		}
		table.Append(cells)
	}
	table.Render()
	return nil
}

func keygen(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: oracled keygen %s", ctx.Command.ArgsUsage)
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	if err := os.WriteFile(ctx.Args().First(), []byte(hex.EncodeToString(priv.Seed())+"\n"), 0600); err != nil {
		return err
	}
	fmt.Println(api.IdentityFromPublicKey(pub))
	return nil
}

func readKey(file string) (ed25519.PrivateKey, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(b)))
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%s does not hold a hex-encoded ed25519 seed", file)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func submit(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return fmt.Errorf("usage: oracled submit %s", ctx.Command.ArgsUsage)
	}
	if ctx.String(keyFlag.Name) == "" {
		return fmt.Errorf("--%s is required", keyFlag.Name)
	}
	key, err := readKey(ctx.String(keyFlag.Name))
	if err != nil {
		return err
	}
	body := []byte(ctx.Args().Get(1))
	if len(body) == 0 {
		body = []byte("{}")
	}

	url := strings.TrimRight(ctx.String(urlFlag.Name), "/") + "/api/v1/instructions/" + ctx.Args().First()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	api.SignRequest(req, key, body, time.Now())

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s rejected: %s", ctx.Args().First(), resp.Status)
	}
	return nil
}
