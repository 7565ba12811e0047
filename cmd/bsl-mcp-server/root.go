package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	bslmcp "github.com/wagiedev/bsl-mcp-server"
	"github.com/wagiedev/bsl-mcp-server/internal/config"
)

// app carries the configuration shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "bsl-mcp-server",
		Short: "MCP bridge to the BSL Language Server",
		Long: "bsl-mcp-server exposes analysis, formatting and persistent sessions of the " +
			"BSL Language Server to MCP clients over stdio, HTTP, SSE or NDJSON.",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ./bsl-mcp-server.toml)")
	flags.String("jar", config.DefaultJarPath, "BSL Language Server jar")
	flags.String("java", config.DefaultJavaPath, "Java runtime path or command name")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")

	a.bind(rootCmd, map[string]string{
		config.KeyJarPath:   "jar",
		config.KeyJavaPath:  "java",
		config.KeyLogLevel:  "log-level",
		config.KeyLogFormat: "log-format",
	}, true)

	rootCmd.AddCommand(
		newServeCmd(a),
		newAnalyzeCmd(a),
		newFormatCmd(a),
		newVersionCmd(),
	)

	return rootCmd
}

// bind attaches flags to configuration keys. Flag values only override the
// file and environment when set explicitly.
func (a *app) bind(cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}

	for key, name := range keys {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// load resolves the options and the stderr logger.
func (a *app) load() (*config.Options, error) {
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	}

	opts, err := config.Load(a.v)
	if err != nil {
		return nil, err
	}

	log, err := bslmcp.NewLogger(os.Stderr, opts.LogLevel, opts.LogFormat)
	if err != nil {
		return nil, err
	}

	opts.Logger = log

	return opts, nil
}
