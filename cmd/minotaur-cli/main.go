// minotaur-cli is a command-line client for a running minotaurd.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/omahs/minotaur-wallet/internal/rpc"
	"github.com/omahs/minotaur-wallet/internal/rpcclient"
	"golang.org/x/term"
)

// Default RPC endpoints per network, matching minotaurd's defaults.
const (
	mainnetRPC = "http://127.0.0.1:9540"
	testnetRPC = "http://127.0.0.1:9541"
)

// ergDecimals is the number of fractional digits of one ERG in nanoERG.
const ergDecimals = 9

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := ""
	network := "mainnet"
	timeout := 2 * time.Minute

	// Scan for global flags before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		case strings.HasPrefix(args[0], "--timeout="):
			d, err := time.ParseDuration(args[0][len("--timeout="):])
			if err != nil {
				fatal("invalid --timeout: %v", err)
			}
			timeout = d
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}
	if rpcURL == "" {
		rpcURL = mainnetRPC
		if network == "testnet" {
			rpcURL = testnetRPC
		}
	}

	client := rpcclient.NewWithTimeout(rpcURL, timeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(ctx, client)
	case "add":
		cmdAdd(ctx, client, cmdArgs)
	case "list":
		cmdList(ctx, client)
	case "sync":
		cmdSync(ctx, client, cmdArgs)
	case "verify":
		cmdVerify(ctx, client, cmdArgs)
	case "balance":
		cmdBalance(ctx, client, cmdArgs)
	case "boxes":
		cmdBoxes(ctx, client, cmdArgs)
	case "tx":
		cmdTx(ctx, client, cmdArgs)
	case "headers":
		cmdHeaders(ctx, client, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: minotaur-cli [global flags] <command> [args]

Global flags:
  --rpc <url>         RPC endpoint (default: %s, testnet %s)
  --network <net>     mainnet (default) or testnet
  --timeout=<dur>     Request timeout (default: 2m)

Commands:
  status                        Daemon and upstream node status
  add <address> [--height N]    Track an address, scanning from height N
  list                          List tracked addresses
  sync <address> [--from N]     Run one sync cycle now
  verify <address>              Compare the local balance with the explorer
  balance <address>             Locally derived balance
  boxes <address> [--unspent]   Stored boxes of an address
  tx <tx-id>                    Stored transaction
  headers [--from N] [--limit N] Stored block headers
`, mainnetRPC, testnetRPC)
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(ctx context.Context, client *rpcclient.Client) {
	info, err := client.NodeInfo(ctx)
	if err != nil {
		fatal("node_getInfo: %v", err)
	}

	fmt.Printf("Network:    %s\n", info.Network)
	fmt.Printf("Daemon:     %s\n", info.Version)
	fmt.Printf("Addresses:  %d\n", info.Addresses)
	fmt.Printf("Headers:    %d\n", info.HeaderHeight)
	if info.NodeError != "" {
		fmt.Printf("Node:       %s\n", colorize(red, "unreachable: "+info.NodeError))
		return
	}
	fmt.Printf("Node:       %s %s\n", info.NodeName, info.NodeVersion)
	fmt.Printf("Node tip:   %d\n", info.NodeHeight)
}

// ── address ─────────────────────────────────────────────────────────────

func cmdAdd(ctx context.Context, client *rpcclient.Client, args []string) {
	address, rest := splitAddress(args, "Usage: minotaur-cli add <address> [--height N]")
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	height := fs.Uint64("height", 0, "Height to start scanning from")
	fs.Parse(rest)

	res, err := client.AddAddress(ctx, address, *height)
	if err != nil {
		fatal("address_add: %v", err)
	}
	fmt.Printf("ID:       %s\n", res.ID)
	fmt.Printf("Address:  %s\n", res.Address)
	fmt.Printf("Cursor:   %d\n", res.Height)
}

func cmdList(ctx context.Context, client *rpcclient.Client) {
	list, err := client.ListAddresses(ctx)
	if err != nil {
		fatal("address_list: %v", err)
	}
	if len(list) == 0 {
		fmt.Println("No tracked addresses.")
		return
	}
	fmt.Printf("%-10s  %-10s  %s\n", "CURSOR", "ADDED", "ADDRESS")
	for _, a := range list {
		added := time.Unix(a.CreatedAt, 0).Format("2006-01-02")
		fmt.Printf("%-10d  %-10s  %s\n", a.Height, added, a.Address)
	}
}

// ── sync ────────────────────────────────────────────────────────────────

func cmdSync(ctx context.Context, client *rpcclient.Client, args []string) {
	address, rest := splitAddress(args, "Usage: minotaur-cli sync <address> [--from N]")
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	from := fs.String("from", "", "Rescan from this height instead of the stored cursor")
	fs.Parse(rest)

	var fromHeight *uint64
	if *from != "" {
		h, err := strconv.ParseUint(*from, 10, 64)
		if err != nil {
			fatal("invalid --from: %v", err)
		}
		fromHeight = &h
	}

	res, err := client.SyncAddress(ctx, address, fromHeight)
	if err != nil {
		fatalRPC("sync_address", err)
	}

	fmt.Printf("Status:   %s\n", res.Status)
	fmt.Printf("Cursor:   %d\n", res.Height)
	fmt.Printf("Windows:  %d\n", res.Windows)
	fmt.Printf("Txs:      %d\n", res.Txs)
	if res.Fork != nil {
		fmt.Println(colorize(yellow, fmt.Sprintf("Fork at %d, rolled back to %d", res.Fork.Height, res.Fork.Rollback)))
		fmt.Printf("  local:  %s\n", res.Fork.LocalID)
		fmt.Printf("  remote: %s\n", res.Fork.RemoteID)
	}
}

func cmdVerify(ctx context.Context, client *rpcclient.Client, args []string) {
	address, _ := splitAddress(args, "Usage: minotaur-cli verify <address>")

	res, err := client.VerifyBalance(ctx, address)
	if err != nil {
		fatalRPC("sync_verifyBalance", err)
	}
	r := res.Report

	fmt.Printf("Height:   %d\n", r.Height)
	fmt.Printf("Local:    %s ERG\n", formatErg(r.LocalErg))
	fmt.Printf("Explorer: %s ERG\n", formatErg(r.RemoteErg))
	for _, t := range r.LocalOnly {
		fmt.Printf("  local only:    %s %s\n", t.Amount, t.TokenID)
	}
	for _, t := range r.RemoteOnly {
		fmt.Printf("  explorer only: %s %s\n", t.Amount, t.TokenID)
	}
	if res.Match {
		fmt.Println(colorize(green, "Balances match"))
		return
	}
	fmt.Println(colorize(red, "Balances differ"))
	os.Exit(2)
}

// ── queries ─────────────────────────────────────────────────────────────

func cmdBalance(ctx context.Context, client *rpcclient.Client, args []string) {
	address, _ := splitAddress(args, "Usage: minotaur-cli balance <address>")

	bal, err := client.Balance(ctx, address)
	if err != nil {
		fatal("address_getBalance: %v", err)
	}
	fmt.Printf("Address:  %s\n", bal.Address)
	fmt.Printf("Cursor:   %d\n", bal.Height)
	fmt.Printf("Balance:  %s ERG\n", formatErg(bal.NanoErgs))
	fmt.Printf("Boxes:    %d\n", bal.Boxes)
	for _, t := range bal.Tokens {
		fmt.Printf("  %s  %s\n", t.TokenID, t.Amount)
	}
}

func cmdBoxes(ctx context.Context, client *rpcclient.Client, args []string) {
	address, rest := splitAddress(args, "Usage: minotaur-cli boxes <address> [--unspent]")
	fs := flag.NewFlagSet("boxes", flag.ExitOnError)
	unspent := fs.Bool("unspent", false, "Only list unspent boxes")
	fs.Parse(rest)

	boxes, err := client.Boxes(ctx, address, *unspent)
	if err != nil {
		fatal("box_list: %v", err)
	}
	if len(boxes) == 0 {
		fmt.Println("No boxes.")
		return
	}
	for _, b := range boxes {
		state := "unspent"
		if b.Spent {
			state = fmt.Sprintf("spent at %d", b.SpendHeight)
		}
		fmt.Printf("%s  %8d  %18s ERG  %s\n", b.BoxID, b.Height, formatErg(b.Value), state)
		for _, a := range b.Assets {
			fmt.Printf("    %s  %s\n", a.TokenID, a.Amount)
		}
	}
}

func cmdTx(ctx context.Context, client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: minotaur-cli tx <tx-id>")
	}
	var res rpc.TxResult
	if err := client.CallContext(ctx, "tx_get", rpc.TxParam{TxID: args[0]}, &res); err != nil {
		fatal("tx_get: %v", err)
	}
	printJSON(res)
}

func cmdHeaders(ctx context.Context, client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("headers", flag.ExitOnError)
	from := fs.Uint64("from", 0, "Lowest height to return")
	limit := fs.Int("limit", 20, "Maximum headers to return")
	fs.Parse(args)

	var res []rpc.HeaderResult
	if err := client.CallContext(ctx, "chain_getHeaders", rpc.HeadersParam{FromHeight: *from, Limit: *limit}, &res); err != nil {
		fatal("chain_getHeaders: %v", err)
	}
	for _, h := range res {
		fmt.Printf("%8d  %s\n", h.Height, h.ID)
	}
}

// ── helpers ─────────────────────────────────────────────────────────────

// splitAddress returns the leading positional address and the remaining
// flag arguments.
func splitAddress(args []string, usageLine string) (string, []string) {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		fatal("%s", usageLine)
	}
	return args[0], args[1:]
}

// formatErg renders a nanoERG amount as a decimal ERG string. Values that do
// not parse are returned unchanged.
func formatErg(nanoErgs string) string {
	n, err := strconv.ParseUint(nanoErgs, 10, 64)
	if err != nil {
		return nanoErgs
	}
	const unit = 1_000_000_000
	return fmt.Sprintf("%d.%0*d", n/unit, ergDecimals, n%unit)
}

const (
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	reset  = "\033[0m"
)

// colorize wraps s in an ANSI color when stdout is a terminal.
func colorize(color, s string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return s
	}
	return color + s + reset
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("marshal result: %v", err)
	}
	fmt.Println(string(data))
}

// fatalRPC reports an RPC failure, including integrity details when the
// daemon attached them.
func fatalRPC(method string, err error) {
	var rpcErr *rpcclient.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == rpc.CodeIntegrity && len(rpcErr.Data) > 0 {
		var data rpc.IntegrityData
		if json.Unmarshal(rpcErr.Data, &data) == nil {
			fmt.Fprintln(os.Stderr, colorize(red, fmt.Sprintf("Integrity failure (%s) at height %d", data.Kind, data.Height)))
			if data.BoxID != "" {
				fmt.Fprintf(os.Stderr, "  box: %s\n", data.BoxID)
			}
			if data.TxID != "" {
				fmt.Fprintf(os.Stderr, "  tx:  %s\n", data.TxID)
			}
		}
	}
	fatal("%s: %v", method, err)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
