package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/aristath/holdings/internal/config"
	"github.com/aristath/holdings/internal/di"
	"github.com/aristath/holdings/internal/domain"
)

// seedFile is the YAML layout accepted by the seed command:
//
//	positions:
//	  - asset_type: jp_stock
//	    symbol: "7203"
//	    quantity: 100
//	    avg_cost: 2000
type seedFile struct {
	Positions []seedPosition `yaml:"positions"`
}

type seedPosition struct {
	Class    string          `yaml:"asset_type"`
	Symbol   string          `yaml:"symbol"`
	Name     string          `yaml:"name"`
	Quantity decimal.Decimal `yaml:"quantity"`
	Price    decimal.Decimal `yaml:"price"`
	AvgCost  decimal.Decimal `yaml:"avg_cost"`
}

// parseSeed decodes and validates a seed file into positions for userID.
func parseSeed(r io.Reader, userID int64) ([]domain.Position, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("seed file is empty")
		}
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	positions := make([]domain.Position, 0, len(file.Positions))
	for i, p := range file.Positions {
		class, err := domain.ParseAssetClass(p.Class)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i+1, err)
		}
		symbol := strings.TrimSpace(p.Symbol)
		if symbol == "" {
			return nil, fmt.Errorf("position %d: symbol is required", i+1)
		}
		if p.Quantity.IsNegative() {
			return nil, fmt.Errorf("position %d: quantity must not be negative", i+1)
		}
		positions = append(positions, domain.Position{
			UserID:   userID,
			Class:    class,
			Symbol:   symbol,
			Name:     p.Name,
			Quantity: p.Quantity,
			Price:    p.Price,
			AvgCost:  p.AvgCost,
		})
	}
	return positions, nil
}

type seedCmd struct{}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "create a user and load positions from YAML" }
func (*seedCmd) Usage() string {
	return `holdingsctl seed <username> <file.yaml>

  Creates the user if needed and inserts every position listed in the file.
`
}
func (*seedCmd) SetFlags(*flag.FlagSet) {}

func (*seedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	username, path := f.Arg(0), f.Arg(1)

	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer file.Close()

	return withContainer(ctx, func(c *di.Container, _ *config.Config) error {
		userID, err := c.Store.AddUser(ctx, username)
		if err != nil {
			return err
		}
		positions, err := parseSeed(file, userID)
		if err != nil {
			return err
		}
		for _, p := range positions {
			if _, err := c.Store.AddPosition(ctx, p); err != nil {
				return fmt.Errorf("failed to add %s %s: %w", p.Class, p.Symbol, err)
			}
		}
		fmt.Printf("user %s (id %d): %d positions added\n", username, userID, len(positions))
		return nil
	})
}
