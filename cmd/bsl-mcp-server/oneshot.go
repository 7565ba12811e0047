package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	bslmcp "github.com/wagiedev/bsl-mcp-server"
	"github.com/wagiedev/bsl-mcp-server/internal/config"
	"github.com/wagiedev/bsl-mcp-server/internal/protocol"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		reporters []string
		language  string
	)

	cmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "Analyze a BSL source directory and print the report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"reporters": reporters, "language": language}

			return a.callOnce(cmd.Context(), cmd.OutOrStdout(), protocol.MethodAnalyze, args[0], params)
		},
	}

	cmd.Flags().StringSliceVar(&reporters, "reporter", []string{"json"}, "reporters to run")
	cmd.Flags().StringVar(&language, "language", config.DefaultLanguage, "diagnostic language: ru or en")

	return cmd
}

func newFormatCmd(a *app) *cobra.Command {
	var inPlace bool

	cmd := &cobra.Command{
		Use:   "format <path>",
		Short: "Format a BSL file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.callOnce(cmd.Context(), cmd.OutOrStdout(), protocol.MethodFormat, args[0], map[string]any{"inPlace": inPlace})
		},
	}

	cmd.Flags().BoolVar(&inPlace, "in-place", true, "rewrite the source instead of printing the result")

	return cmd
}

// callOnce runs one catalogue method against a local path and prints the
// result. Without a configured host root, local paths are used as they are.
func (a *app) callOnce(ctx context.Context, out io.Writer, method, path string, params map[string]any) error {
	opts, err := a.load()
	if err != nil {
		return err
	}

	if opts.HostRoot == "" {
		opts.HostRoot, opts.ContainerRoot = "/", "/"

		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}

		path = abs
	}

	params["sourcePath"] = path

	return bslmcp.WithServer(ctx, func(s *bslmcp.Server) error {
		result, err := s.Call(ctx, method, params)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(result)
	}, bslmcp.WithOptions(opts))
}
