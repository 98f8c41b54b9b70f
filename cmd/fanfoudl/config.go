package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"fanfoudl/pkg/config"
	"fanfoudl/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage fanfoudl configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (FANFOUDL_*, also read from .env)
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file containing every option at its default value.

The file is created as 'fanfoudl.yaml' in the current directory unless
--config names another path. An existing file is never overwritten.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file for errors",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = "fanfoudl.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Adjust output.base_directory and the crawl pauses")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Run 'fanfoudl config validate'")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Save your session with 'fanfoudl auth save <name>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags(cmd))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none found)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nConfiguration file: %s\n", source)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		return fmt.Errorf("no configuration file found; specify one with --config")
	}

	ui.PrintInfo("Validating configuration", path)

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration has errors:\n%w", err)
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Fprintln(cmd.OutOrStdout(), "\nConfiguration summary:")
	fmt.Fprintf(cmd.OutOrStdout(), "  Album prefix: %s\n", cfg.Site.AlbumPrefix)
	fmt.Fprintf(cmd.OutOrStdout(), "  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Fprintf(cmd.OutOrStdout(), "  Log directory: %s\n", cfg.Output.LogDirectory)
	fmt.Fprintf(cmd.OutOrStdout(), "  Page pause: up to %s\n", cfg.Crawl.PagePause)
	fmt.Fprintf(cmd.OutOrStdout(), "  Download pause: up to %s\n", cfg.Crawl.DownloadPause)
	fmt.Fprintf(cmd.OutOrStdout(), "  Max attempts: %d\n", cfg.Retry.MaxAttempts)
	return nil
}
