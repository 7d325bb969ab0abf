package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	contractos "github.com/sohamzycus/contractos"
)

func newUploadCmd() *cobra.Command {
	var title, partiesRaw, format string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Parse, extract, and index a contract file (docx or pdf)",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&title, "title", "", "contract title (defaults to the file name)")
	cmd.Flags().StringVar(&partiesRaw, "parties", "", "comma-separated party names")
	cmd.Flags().StringVar(&format, "format", "", "docx|pdf (defaults to the file extension)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if format == "" {
			format = detectFormat(path)
		}
		if title == "" {
			title = path
		}
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())

		contract, err := app.Upload(cmd.Context(), data, format, title, splitCSV(partiesRaw), nil)
		if err != nil {
			return err
		}
		return printJSON(contract)
	}
	return cmd
}

func newListContractsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every indexed contract",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, app *contractos.App) (any, error) {
			return app.ListContracts(ctx)
		}),
	}
}

func newGetContractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <document-id>",
		Short: "Fetch a single contract",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = docIDCommand(cmd, func(ctx context.Context, app *contractos.App, docID contractos.DocumentID) (any, error) {
		return app.GetContract(ctx, docID)
	})
	return cmd
}

func newFactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts <document-id>",
		Short: "List every fact extracted from a document",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = docIDCommand(cmd, func(ctx context.Context, app *contractos.App, docID contractos.DocumentID) (any, error) {
		return app.GetFacts(ctx, docID)
	})
	return cmd
}

func newClausesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clauses <document-id>",
		Short: "List every classified clause for a document",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = docIDCommand(cmd, func(ctx context.Context, app *contractos.App, docID contractos.DocumentID) (any, error) {
		return app.GetClauses(ctx, docID)
	})
	return cmd
}

func newBindingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bindings <document-id>",
		Short: "List every binding resolved for a document",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = docIDCommand(cmd, func(ctx context.Context, app *contractos.App, docID contractos.DocumentID) (any, error) {
		return app.GetBindings(ctx, docID)
	})
	return cmd
}

func newGapsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gaps <document-id>",
		Short: "List unfilled mandatory/optional clause fact slots",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = docIDCommand(cmd, func(ctx context.Context, app *contractos.App, docID contractos.DocumentID) (any, error) {
		return app.GetClauseGaps(ctx, docID)
	})
	return cmd
}

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <document-id>",
		Short: "Render a document's TrustGraph as nodes and edges",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = docIDCommand(cmd, func(ctx context.Context, app *contractos.App, docID contractos.DocumentID) (any, error) {
		return app.GetGraph(ctx, docID)
	})
	return cmd
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a contract and everything derived from it",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = docIDCommand(cmd, func(ctx context.Context, app *contractos.App, docID contractos.DocumentID) (any, error) {
		return nil, app.DeleteContract(ctx, docID)
	})
	return cmd
}

func newClearAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-all",
		Short: "Wipe every contract, fact, clause, binding, workspace, and session",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, app *contractos.App) (any, error) {
			return nil, app.ClearAll(ctx)
		}),
	}
}

func newCheckChangeCmd() *cobra.Command {
	var currentHash string
	cmd := &cobra.Command{
		Use:   "check-change <document-id>",
		Short: "Compare a locally computed file hash against the one stored at upload time",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&currentHash, "hash", "", "sha256 hex hash of the caller's current copy of the file (required)")
	_ = cmd.MarkFlagRequired("hash")
	cmd.RunE = docIDCommand(cmd, func(ctx context.Context, app *contractos.App, docID contractos.DocumentID) (any, error) {
		return app.CheckChange(ctx, docID, currentHash)
	})
	return cmd
}

func newDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover <document-id>",
		Short: "Run an LM discovery pass surfacing implicit obligations and ambiguous terms",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = docIDCommand(cmd, func(ctx context.Context, app *contractos.App, docID contractos.DocumentID) (any, error) {
		return app.Discover(ctx, docID)
	})
	return cmd
}

// docIDCommand adapts a function taking the first positional arg as a
// DocumentID into a cobra RunE, wiring App construction/close the same way
// every other subcommand does.
func docIDCommand(cmd *cobra.Command, fn func(ctx context.Context, app *contractos.App, docID contractos.DocumentID) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())
		result, err := fn(cmd.Context(), app, contractos.DocumentID(args[0]))
		if err != nil {
			return err
		}
		return printJSON(result)
	}
}
