// Command contractctl is a thin CLI wrapper over package contractos — every
// subcommand does nothing but parse flags, call one App method, and print
// the result as JSON (spec §6: "Any adapter (REST, IDE plugin protocol,
// CLI) is a thin wrapper").
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	contractos "github.com/sohamzycus/contractos"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	storagePath string
	configPath  string
	logLevel    string
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "contractctl",
		Short:   "contractctl drives ContractOS's contract intelligence engine from the command line",
		Version: version,
	}
	root.PersistentFlags().StringVar(&storagePath, "storage", "", "override the TrustGraph database path")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a contractos.toml config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")

	root.AddCommand(
		newUploadCmd(),
		newListContractsCmd(),
		newGetContractCmd(),
		newFactsCmd(),
		newClausesCmd(),
		newBindingsCmd(),
		newGapsCmd(),
		newGraphCmd(),
		newDeleteCmd(),
		newClearAllCmd(),
		newAskCmd(),
		newSessionsCmd(),
		newClearSessionsCmd(),
		newWorkspaceCmd(),
		newCheckChangeCmd(),
		newDiscoverCmd(),
	)
	return root
}

func openApp() (*contractos.App, error) {
	opts := []contractos.Option{
		contractos.WithVersion(version),
		contractos.WithLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(logLevel)}))),
	}
	if storagePath != "" {
		opts = append(opts, contractos.WithStoragePath(storagePath))
	}
	if configPath != "" {
		opts = append(opts, contractos.WithConfigFile(configPath))
	}
	return contractos.New(opts...)
}

func withApp(fn func(ctx context.Context, app *contractos.App) (any, error)) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())

		result, err := fn(cmd.Context(), app)
		if err != nil {
			return err
		}
		return printJSON(result)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
