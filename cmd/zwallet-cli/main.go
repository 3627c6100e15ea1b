// zwallet-cli is a command-line client for a zwalletd daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Klingon-tech/zwalletd/config"
	"github.com/Klingon-tech/zwalletd/internal/rpc"
	"github.com/Klingon-tech/zwalletd/internal/rpcclient"
	"github.com/Klingon-tech/zwalletd/internal/wallet"
	"github.com/Klingon-tech/zwalletd/pkg/address"
	"github.com/Klingon-tech/zwalletd/pkg/types"
	"golang.org/x/term"
)

const callTimeout = 30 * time.Second

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := ""
	dataDir := config.DefaultDataDir()
	network := "mainnet"

	// Scan for --rpc, --datadir and --network before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
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

	params, err := types.ParseNetwork(network)
	if err != nil {
		fatal("%v", err)
	}
	cfg := config.Default(params.Type)
	cfg.DataDir = dataDir
	if rpcURL == "" {
		rpcURL = "http://" + cfg.RPCListenAddr()
	}

	client := rpcclient.New(rpcURL, rpcclient.WithTimeout(callTimeout))
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "init":
		cmdInit(cmdArgs, cfg, params)
	case "info":
		cmdInfo(cfg)
	case "status":
		cmdStatus(client)
	case "height":
		cmdHeight(client)
	case "fee":
		cmdFee(client)
	case "account":
		cmdAccount(client, cmdArgs, cfg, params)
	case "address":
		cmdAddress(client, cmdArgs)
	case "validate":
		cmdValidate(client, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: zwallet-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         Daemon API endpoint (default: per network)
  --datadir <path>    Data directory (default: ~/.zwalletd)
  --network <net>     mainnet (default), testnet or regtest

Keystore:
  init [--mnemonic "..."] [--words 24] [--passphrase ...]
                      Create the wallet file
  info                Show wallet file metadata

Daemon:
  status              Chain sync status
  height              Chain node block height
  fee                 Fee estimate for a standard transaction

  account new [--label <label>]
  account list [--tag <label>]
  account export-vk [--accounts <n>]
                      Print unified full viewing keys for watch-only mode

  address new --account <n> [--family unified|sapling] [--label <label>]
  address get --account <n> --index <i>
  address list --account <n>

  validate <address>
`)
}

// call performs one JSON-RPC call against the daemon.
func call(client *rpcclient.Client, method string, params, result interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := client.Call(ctx, method, params, result); err != nil {
		fatal("%s: %v", method, err)
	}
}

// ── init ────────────────────────────────────────────────────────────────

func cmdInit(args []string, cfg *config.Config, params *types.Network) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	mnemonic := fs.String("mnemonic", "", "Existing BIP-39 mnemonic to restore")
	words := fs.Int("words", wallet.DefaultMnemonicWords, "Mnemonic length when generating")
	passphrase := fs.String("passphrase", "", "Optional BIP-39 passphrase")
	file := fs.String("file", "", "Wallet file (default: <datadir>/<network>/wallet.keys)")
	fs.Parse(args)

	if *file != "" {
		cfg.Wallet.FilePath = *file
	}
	ks, err := wallet.NewKeystore(cfg.KeystorePath())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if ks.Exists() {
		fatal("wallet already exists at %s", ks.Path())
	}

	phrase := *mnemonic
	if phrase == "" {
		phrase, err = wallet.GenerateMnemonic(*words)
		if err != nil {
			fatal("generate mnemonic: %v", err)
		}
		fmt.Println("Mnemonic (write this down!):")
		fmt.Printf("  %s\n\n", phrase)
	} else if !wallet.ValidateMnemonic(phrase) {
		fatal("invalid mnemonic")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	if len(password) == 0 {
		fatal("password must not be empty")
	}

	seed, err := wallet.SeedFromMnemonic(phrase, *passphrase)
	if err != nil {
		fatal("derive seed: %v", err)
	}
	defer wallet.Zero(seed)

	if err := ks.Create(seed, password, params, wallet.DefaultParams()); err != nil {
		fatal("create wallet: %v", err)
	}
	wallet.Zero(password)

	info, err := ks.Info()
	if err != nil {
		fatal("read wallet: %v", err)
	}
	fmt.Printf("Wallet created: %s\n", ks.Path())
	fmt.Printf("Network:        %s\n", info.Network)
	fmt.Printf("Fingerprint:    %s\n", info.Fingerprint)
}

func cmdInfo(cfg *config.Config) {
	ks, err := wallet.NewKeystore(cfg.KeystorePath())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	info, err := ks.Info()
	if err != nil {
		fatal("read wallet: %v", err)
	}
	fmt.Printf("File:        %s\n", ks.Path())
	fmt.Printf("Network:     %s\n", info.Network)
	fmt.Printf("Fingerprint: %s\n", info.Fingerprint)
	fmt.Printf("Created:     %s\n", info.CreatedAt.Format(time.RFC3339))
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	var res rpc.SyncInfoResult
	call(client, "sync_info", nil, &res)

	state := "syncing"
	if res.Synced {
		state = "synced"
	}
	fmt.Printf("Height:  %d\n", res.Height)
	fmt.Printf("Target:  %d\n", res.TargetHeight)
	fmt.Printf("State:   %s\n", state)
}

func cmdHeight(client *rpcclient.Client) {
	var res rpc.HeightResult
	call(client, "get_height", nil, &res)
	fmt.Println(res.Height)
}

func cmdFee(client *rpcclient.Client) {
	var res rpc.FeeEstimateResult
	call(client, "get_fee_estimate", nil, &res)
	fmt.Println(res.Fee)
}

// ── account ─────────────────────────────────────────────────────────────

func cmdAccount(client *rpcclient.Client, args []string, cfg *config.Config, params *types.Network) {
	if len(args) < 1 {
		fatal("Usage: zwallet-cli account <new|list|export-vk> [flags]")
	}

	switch args[0] {
	case "new":
		fs := flag.NewFlagSet("account new", flag.ExitOnError)
		label := fs.String("label", "", "Account label")
		fs.Parse(args[1:])

		var res rpc.CreateAccountResult
		call(client, "create_account", rpc.CreateAccountParam{Label: *label}, &res)
		fmt.Printf("Account: %d\n", res.AccountIndex)
		fmt.Printf("Address: %s\n", res.Address)

	case "list":
		fs := flag.NewFlagSet("account list", flag.ExitOnError)
		tag := fs.String("tag", "", "Only accounts with this label")
		fs.Parse(args[1:])

		var res rpc.GetAccountsResult
		call(client, "get_accounts", rpc.GetAccountsParam{Tag: *tag}, &res)
		if len(res.SubaddressAccounts) == 0 {
			fmt.Println("No accounts.")
			return
		}
		fmt.Printf("%-6s  %-16s  %-9s  %s\n", "INDEX", "LABEL", "ADDRESSES", "BASE ADDRESS")
		for _, a := range res.SubaddressAccounts {
			fmt.Printf("%-6d  %-16s  %-9d  %s\n", a.AccountIndex, a.Label, a.AddressCount, a.BaseAddress)
		}

	case "export-vk":
		fs := flag.NewFlagSet("account export-vk", flag.ExitOnError)
		n := fs.Int("accounts", 1, "Number of accounts to export, starting at 0")
		file := fs.String("file", "", "Wallet file (default: <datadir>/<network>/wallet.keys)")
		fs.Parse(args[1:])

		if *file != "" {
			cfg.Wallet.FilePath = *file
		}
		ks, err := wallet.NewKeystore(cfg.KeystorePath())
		if err != nil {
			fatal("open keystore: %v", err)
		}
		password, err := readPassword("Enter password: ")
		if err != nil {
			fatal("read password: %v", err)
		}
		keys, err := exportViewingKeys(ks, password, params, *n)
		wallet.Zero(password)
		if err != nil {
			fatal("%v", err)
		}
		for i, k := range keys {
			fmt.Printf("Account %d: %s\n", i, k)
		}
		fmt.Printf("\nwallet.viewing_key = %s\n", strings.Join(keys, ","))

	default:
		fatal("Unknown account command: %s", args[0])
	}
}

// exportViewingKeys decrypts ks and encodes the unified full viewing keys of
// accounts 0 through n-1.
func exportViewingKeys(ks *wallet.Keystore, password []byte, params *types.Network, n int) ([]string, error) {
	if n < 1 || uint64(n) > uint64(wallet.MaxIndex)+1 {
		return nil, fmt.Errorf("--accounts must be between 1 and %d", uint64(wallet.MaxIndex)+1)
	}
	info, err := ks.Info()
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	if info.Network != params.String() {
		return nil, fmt.Errorf("wallet %s belongs to %s, not %s", ks.Path(), info.Network, params)
	}
	seed, err := ks.Load(password)
	if err != nil {
		return nil, err
	}
	defer wallet.Zero(seed)

	engine, err := wallet.NewEngine(seed, params)
	if err != nil {
		return nil, err
	}
	enc := address.NewEncoder(params)
	keys := make([]string, n)
	for i := range keys {
		acct, err := engine.DeriveAccount(uint32(i))
		if err != nil {
			return nil, err
		}
		if keys[i], err = enc.EncodeViewingKey(acct.FullViewingKey()); err != nil {
			return nil, fmt.Errorf("encode account %d: %w", i, err)
		}
	}
	return keys, nil
}

// ── address ─────────────────────────────────────────────────────────────

func cmdAddress(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: zwallet-cli address <new|get|list> [flags]")
	}

	fs := flag.NewFlagSet("address "+args[0], flag.ExitOnError)
	account := fs.Int("account", -1, "Account index")
	index := fs.Int("index", -1, "Address index")
	family := fs.String("family", "unified", "Address family: unified or sapling")
	label := fs.String("label", "", "Address label")
	fs.Parse(args[1:])

	if *account < 0 {
		fatal("--account is required")
	}
	acct := uint32(*account)

	switch args[0] {
	case "new":
		var res rpc.CreateAddressResult
		call(client, "create_address", rpc.CreateAddressParam{
			AccountIndex: &acct,
			Family:       *family,
			Label:        *label,
		}, &res)
		fmt.Printf("Index:   %d\n", res.AddressIndex)
		fmt.Printf("Family:  %s\n", res.Family)
		fmt.Printf("Address: %s\n", res.Address)

	case "get":
		if *index < 0 {
			fatal("--index is required")
		}
		idx := uint32(*index)
		var res rpc.AddressResult
		call(client, "get_address", rpc.GetAddressParam{AccountIndex: &acct, AddressIndex: &idx}, &res)
		printAddress(&res)

	case "list":
		var res rpc.ListAddressesResult
		call(client, "get_addresses", rpc.ListAddressesParam{AccountIndex: &acct}, &res)
		for _, a := range res.Addresses {
			fmt.Printf("%-6d  %-8s  %s\n", a.AddressIndex, a.Family, a.Address)
		}

	default:
		fatal("Unknown address command: %s", args[0])
	}
}

func printAddress(a *rpc.AddressResult) {
	fmt.Printf("Account:     %d\n", a.AccountIndex)
	fmt.Printf("Index:       %d\n", a.AddressIndex)
	fmt.Printf("Family:      %s\n", a.Family)
	fmt.Printf("Address:     %s\n", a.Address)
	if a.Label != "" {
		fmt.Printf("Label:       %s\n", a.Label)
	}
	if a.Transparent != "" {
		fmt.Printf("Transparent: %s\n", a.Transparent)
	}
	if a.Sapling != "" {
		fmt.Printf("Sapling:     %s\n", a.Sapling)
	}
}

// ── validate ────────────────────────────────────────────────────────────

func cmdValidate(client *rpcclient.Client, args []string) {
	if len(args) != 1 {
		fatal("Usage: zwallet-cli validate <address>")
	}
	var res rpc.ValidateAddressResult
	call(client, "validate_address", rpc.AddressParam{Address: args[0]}, &res)

	if !res.Valid {
		fmt.Printf("Invalid: %s\n", res.Error)
		os.Exit(1)
	}
	fmt.Printf("Kind:    %s\n", res.Kind)
	fmt.Printf("Family:  %s\n", res.Family)
	fmt.Printf("Network: %s\n", res.Network)
	fmt.Printf("Mine:    %t\n", res.IsMine)
	if res.IsMine && res.AccountIndex != nil && res.AddressIndex != nil {
		fmt.Printf("Account: %d\n", *res.AccountIndex)
		fmt.Printf("Index:   %d\n", *res.AddressIndex)
	}
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
