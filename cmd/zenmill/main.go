package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpotapov/zenmill"
)

var rootCmd = &cobra.Command{
	Use:   "zenmill",
	Short: "Compile and render ZenMill templates",
	Long: `zenmill compiles a root template and every template it transitively
includes from a directory on disk, then renders it against a JSON data
document.`,
}

func init() {
	rootCmd.AddCommand(renderCmd)
}

var (
	renderRoot      string
	renderDataFile  string
	renderStripCmts bool
)

var renderCmd = &cobra.Command{
	Use:   "render <template>",
	Short: "Render a template to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderRoot, "root", ".", "directory templates are loaded from")
	renderCmd.Flags().StringVar(&renderDataFile, "data", "", "JSON file supplying the render data (default: read stdin until EOF; empty input means {})")
	renderCmd.Flags().BoolVar(&renderStripCmts, "strip-comments", false, "drop <!-- --> comments from the output")
}

func runRender(cmd *cobra.Command, args []string) error {
	path := args[0]

	data, err := loadRenderData(renderDataFile)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	loader := zenmill.FSLoader(os.DirFS(renderRoot))
	compiler, err := zenmill.NewCompiler(loader, zenmill.Options{StripComments: renderStripCmts})
	if err != nil {
		return err
	}

	out, err := compiler.Render(cmd.Context(), path, data)
	if err != nil {
		slog.Error("render failed", "template", path, "error", err)
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// loadRenderData reads the render data document from path, or from stdin when
// path is empty. An empty document (no --data given and nothing piped on
// stdin) renders against {}, but an explicitly named --data file that cannot
// be read is a real error, not empty data.
func loadRenderData(path string) (map[string]any, error) {
	var raw []byte
	if path == "" {
		var err error
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return map[string]any{}, nil
		}
	} else {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
