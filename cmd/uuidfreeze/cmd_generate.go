package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"uuidfreeze/pkg/uuidfreeze"
)

var (
	genSeed    int64
	genNode    string
	genCount   int
	genVersion int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print the identifiers a seeded scope produces",
	Long: `Print the first identifiers a scope created with Seed(--seed) or
SeedFromNode() for --node would hand out, in order.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

// producers maps a version to the public producer serving it.
var producers = map[int]func() (uuid.UUID, error){
	1: uuidfreeze.NewUUID,
	4: uuidfreeze.NewRandom,
	6: uuidfreeze.NewV6,
	7: uuidfreeze.NewV7,
	8: uuidfreeze.NewV8,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if genCount < 0 {
		return fmt.Errorf("--count must not be negative, got %d", genCount)
	}
	produce, ok := producers[genVersion]
	if !ok {
		return fmt.Errorf("unsupported --version %d (valid: 1, 4, 6, 7, 8)", genVersion)
	}

	seed := genSeed
	if genNode != "" {
		seed = uuidfreeze.NodeSeed(genNode)
	}
	f, err := uuidfreeze.Freeze(uuidfreeze.Seed(seed), uuidfreeze.Version(genVersion))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if genNode != "" {
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("# node %q -> seed %d", genNode, seed)))
	}
	err = f.RunE(func() error {
		for i := 0; i < genCount; i++ {
			u, err := produce()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, u.String())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to generate: %w", err)
	}
	cliLogger().Debug("generated identifiers",
		zap.Int64("seed", seed),
		zap.Int("version", genVersion),
		zap.Int("count", f.CallCount()))
	return nil
}
