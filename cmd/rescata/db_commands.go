package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mpalomar/rescata/service/db"
	"github.com/urfave/cli/v2"
)

func listContractsCommand() *cli.Command {
	return &cli.Command{
		Name:      "list-contracts",
		Usage:     "List contracts registered for an owner",
		Aliases:   []string{"contracts"},
		ArgsUsage: "<owner>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: owner")
			}

			owner := c.Args().First()
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			contracts, err := store.ListContractsByOwner(context.Background(), owner)
			if err != nil {
				return fmt.Errorf("failed to list contracts: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(contracts)
			}

			// Pretty table output
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tTOKEN\tWALLETS\tOWNER")
			for _, contract := range contracts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					contract.Address,
					contract.Token,
					strings.Join(contract.Wallets, ","),
					contract.Owner,
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d contracts\n", len(contracts))
			return nil
		},
	}
}

func listTransactionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "list-transactions",
		Usage:     "List transactions recorded for a contract address",
		Aliases:   []string{"txs"},
		ArgsUsage: "<contract-address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: contract address")
			}

			contractAddress := c.Args().First()
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			transactions, err := store.ListTransactionsByContract(context.Background(), contractAddress)
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(transactions)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CONTRACT\tTYPE\tTIMESTAMP\tDETAILS")
			for _, tx := range transactions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					tx.ContractAddress,
					tx.Type,
					tx.Timestamp,
					truncate(tx.Details, 60),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d transactions\n", len(transactions))
			return nil
		},
	}
}

func listRescuesCommand() *cli.Command {
	return &cli.Command{
		Name:      "list-rescues",
		Usage:     "List rescues recorded for an owner",
		Aliases:   []string{"rescues"},
		ArgsUsage: "<owner>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: owner")
			}

			owner := c.Args().First()
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			rescues, err := store.ListRescuesByOwner(context.Background(), owner)
			if err != nil {
				return fmt.Errorf("failed to list rescues: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(rescues)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "OWNER\tTYPE\tCONTRACT\tAMOUNT\tTOKEN IDS\tTIMESTAMP")
			for _, rescue := range rescues {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\n",
					rescue.Owner,
					rescue.Type,
					rescue.ContractAddress,
					rescue.Amount,
					formatTokenIDs(rescue.TokenIDs),
					rescue.Timestamp,
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d rescues\n", len(rescues))
			return nil
		},
	}
}

// Helper function to connect to database
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := db.NewStore(pool)
	closer := func() { pool.Close() }

	return store, closer, nil
}

// Helper function to output JSON
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTokenIDs(ids []int64) string {
	if ids == nil {
		return "(none)"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
