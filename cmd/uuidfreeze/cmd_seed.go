package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"uuidfreeze/pkg/uuidfreeze"
)

var seedCmd = &cobra.Command{
	Use:   "seed <node-id>",
	Short: "Print the seed SeedFromNode derives for a test",
	Long: `Print the seed a test gets from SeedFromNode. The node id is the test's
t.Name(), for example "TestCheckout/happy_path".`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	node := strings.TrimSpace(args[0])
	if node == "" {
		return fmt.Errorf("node id must not be empty")
	}
	seed := uuidfreeze.NodeSeed(node)
	cliLogger().Debug("derived node seed", zap.String("node", node), zap.Int64("seed", seed))
	fmt.Fprintln(cmd.OutOrStdout(), field("node", node))
	fmt.Fprintln(cmd.OutOrStdout(), field("seed", seed))
	return nil
}

func fmtValue(v any) string {
	return fmt.Sprint(v)
}
