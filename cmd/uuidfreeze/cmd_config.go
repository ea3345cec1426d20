package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"uuidfreeze/internal/config"
	"uuidfreeze/internal/logging"
)

var (
	configFile string
	initFormat string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective uuidfreeze configuration",
	Long: `Load the uuidfreeze section of a project file (YAML or TOML), apply
environment overrides and print the result as YAML.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func resolveConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return config.Discover(cwd), nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	source := "defaults"
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		source = path
	}
	cliLogger().Debug("resolved config", zap.String("source", source))

	data, err := yaml.Marshal(map[string]*config.Config{config.Section: cfg})
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, dimStyle.Render("# source: "+source))
	fmt.Fprint(out, string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	var ext string
	switch strings.ToLower(initFormat) {
	case "yaml", "yml":
		ext = ".yaml"
	case "toml":
		ext = ".toml"
	default:
		return fmt.Errorf("unsupported --format %q (use yaml or toml)", initFormat)
	}

	path := "uuidfreeze" + ext
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	abs, _ := filepath.Abs(path)
	logging.Get(logging.CategoryCLI).Info("wrote default config to %s", abs)
	fmt.Fprintln(cmd.OutOrStdout(), field("wrote", abs))
	return nil
}
