package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	godbf "github.com/Ulysses-Xu/dbfcodec"
	"github.com/Ulysses-Xu/dbfcodec/internal/config"
)

// NewRootCmd builds the command tree. Every call returns a fresh tree so
// flags never leak between invocations.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dbfcodec",
		Short: "Read, rewrite and serve dBase (.dbf) tables",
		Long: `dbfcodec decodes dBase (.dbf) tables into typed rows and encodes them back.

Settings come from a YAML config file (--config, or the default path when it
exists) and can be overridden with flags.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().String("encoding", "", "Code page of text fields, e.g. windows-1252 (default: from the file header)")
	rootCmd.PersistentFlags().Bool("strict", false, "Fail on unparseable fields and truncated records instead of recovering")
	rootCmd.PersistentFlags().Int("workers", 1, "Number of goroutines decoding records")

	rootCmd.AddCommand(
		newInspectCmd(),
		newRowsCmd(),
		newRewriteCmd(),
		newAppendCmd(),
		newWatchCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if def := config.GetDefaultConfigPath(); config.ConfigExists(def) {
			path = def
		}
	}

	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("encoding") {
		cfg.Codec.Encoding, _ = flags.GetString("encoding")
	}
	if flags.Changed("strict") {
		cfg.Codec.Strict, _ = flags.GetBool("strict")
	}
	if flags.Changed("workers") {
		cfg.Codec.Workers, _ = flags.GetInt("workers")
	}
	return cfg, cfg.Validate()
}

func newCodec(cmd *cobra.Command) (*godbf.Codec, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	codec, err := godbf.NewCodec(cfg.CodecOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}
	return codec, nil
}

func openTable(cmd *cobra.Command, path string) (*godbf.DBFHandler, error) {
	codec, err := newCodec(cmd)
	if err != nil {
		return nil, err
	}
	dbf, err := godbf.NewDBFFromFile(path, codec)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return dbf, nil
}
