package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/mpalomar/rescata/client"
	"github.com/urfave/cli/v2"
)

func clientCommands() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "HTTP client commands for interacting with the rescata service",
		Subcommands: []*cli.Command{
			createContractCommand(),
			getContractsCommand(),
			createTransactionCommand(),
			getTransactionsCommand(),
			createRescueCommand(),
			getRescuesCommand(),
		},
	}
}

func createContractCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-contract",
		Usage: "Register a new contract",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Required: true, Usage: "Contract address"},
			&cli.StringFlag{Name: "token", Required: true, Usage: "Token symbol or address"},
			&cli.StringSliceFlag{Name: "wallet", Required: true, Usage: "Wallet address (can be specified multiple times)"},
			&cli.StringFlag{Name: "owner", Required: true, Usage: "Owner address"},
		},
		Action: func(c *cli.Context) error {
			cl := newClient(c)
			err := cl.CreateContract(context.Background(), client.CreateContractRequest{
				Address: c.String("address"),
				Token:   c.String("token"),
				Wallets: c.StringSlice("wallet"),
				Owner:   c.String("owner"),
			})
			if err != nil {
				return fmt.Errorf("failed to create contract: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Contract %s registered\n", c.String("address"))
			return nil
		},
	}
}

func getContractsCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-contracts",
		Usage:     "List contracts for an owner",
		ArgsUsage: "<owner>",
		Flags:     []cli.Flag{jqFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: owner")
			}
			cl := newClient(c)
			contracts, err := cl.ListContracts(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to list contracts: %w", err)
			}
			return outputFiltered(c, contracts)
		},
	}
}

func createTransactionCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-transaction",
		Usage: "Record a transaction for a contract",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "contract", Required: true, Usage: "Contract address"},
			&cli.StringFlag{Name: "type", Required: true, Usage: "Transaction type"},
			&cli.StringFlag{Name: "details", Usage: "Opaque details blob"},
			&cli.StringFlag{Name: "timestamp", Usage: "Caller-supplied timestamp"},
		},
		Action: func(c *cli.Context) error {
			cl := newClient(c)
			err := cl.CreateTransaction(context.Background(), client.CreateTransactionRequest{
				ContractAddress: c.String("contract"),
				Type:            c.String("type"),
				Details:         c.String("details"),
				Timestamp:       c.String("timestamp"),
			})
			if err != nil {
				return fmt.Errorf("failed to create transaction: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Transaction recorded for %s\n", c.String("contract"))
			return nil
		},
	}
}

func getTransactionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-transactions",
		Usage:     "List transactions for a contract address",
		ArgsUsage: "<contract-address>",
		Flags:     []cli.Flag{jqFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: contract address")
			}
			cl := newClient(c)
			transactions, err := cl.ListTransactions(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}
			return outputFiltered(c, transactions)
		},
	}
}

func createRescueCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-rescue",
		Usage: "Record a rescue operation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "owner", Required: true, Usage: "Owner address"},
			&cli.StringFlag{Name: "type", Required: true, Usage: "Rescue type"},
			&cli.StringFlag{Name: "contract", Required: true, Usage: "Contract address"},
			&cli.Float64Flag{Name: "amount", Required: true, Usage: "Rescued amount"},
			&cli.Int64SliceFlag{Name: "token-id", Usage: "Token id (can be specified multiple times; omit for fungible rescues)"},
			&cli.StringFlag{Name: "timestamp", Usage: "Caller-supplied timestamp"},
		},
		Action: func(c *cli.Context) error {
			cl := newClient(c)
			req := client.CreateRescueRequest{
				Owner:           c.String("owner"),
				Type:            c.String("type"),
				ContractAddress: c.String("contract"),
				Amount:          c.Float64("amount"),
				Timestamp:       c.String("timestamp"),
			}
			if c.IsSet("token-id") {
				req.TokenIDs = c.Int64Slice("token-id")
			}
			if err := cl.CreateRescue(context.Background(), req); err != nil {
				return fmt.Errorf("failed to create rescue: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Rescue recorded for %s\n", c.String("owner"))
			return nil
		},
	}
}

func getRescuesCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-rescues",
		Usage:     "List rescues for an owner",
		ArgsUsage: "<owner>",
		Flags:     []cli.Flag{jqFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: owner")
			}
			cl := newClient(c)
			rescues, err := cl.ListRescues(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to list rescues: %w", err)
			}
			return outputFiltered(c, rescues)
		},
	}
}

func jqFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "must-jq",
		Aliases: []string{"jq"},
		Usage:   "jq filter expression; only rows for which it evaluates truthy are printed",
	}
}

func newClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))
	serverURL := strings.TrimRight(c.String("server-url"), "/")
	return client.NewClient(serverURL, nil, logger)
}

// outputFiltered prints rows as indented JSON, applying the --must-jq filter
// when one was given.
func outputFiltered(c *cli.Context, rows interface{}) error {
	filter := c.String("must-jq")
	if filter == "" {
		return outputJSON(rows)
	}

	code, err := compileJQFilter(filter)
	if err != nil {
		return err
	}

	// Round-trip through JSON so gojq sees plain maps and slices.
	var generic []interface{}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to unmarshal rows: %w", err)
	}

	matched := make([]interface{}, 0)
	for _, row := range generic {
		if jqMatches(code, row) {
			matched = append(matched, row)
		}
	}

	return outputJSON(matched)
}

// compileJQFilter parses and compiles a jq expression.
func compileJQFilter(filter string) (*gojq.Code, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}
	return code, nil
}

// jqMatches reports whether the compiled filter evaluates truthy for v.
func jqMatches(code *gojq.Code, v interface{}) bool {
	iter := code.Run(v)
	result, ok := iter.Next()
	if !ok {
		return false
	}
	if _, isErr := result.(error); isErr {
		return false
	}
	return isTruthy(result)
}

// isTruthy follows jq semantics: false and null are falsy, everything else
// is truthy.
func isTruthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	default:
		return true
	}
}
