package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	contractos "github.com/sohamzycus/contractos"
)

func newAskCmd() *cobra.Command {
	var workspaceID, documentsRaw, sessionID string
	cmd := &cobra.Command{
		Use:   "ask <query text>",
		Short: "Ask a natural language question against one or more documents",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace ID to record the session under (required)")
	cmd.Flags().StringVar(&documentsRaw, "documents", "", "comma-separated document IDs to query (required)")
	cmd.Flags().StringVar(&sessionID, "session", "", "prior session ID to continue as conversation history")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("documents")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())

		var prior *contractos.SessionID
		if sessionID != "" {
			sid := contractos.SessionID(sessionID)
			prior = &sid
		}

		result, err := app.Ask(cmd.Context(), contractos.WorkspaceID(workspaceID), args[0],
			docIDs(strings.Split(documentsRaw, ",")), prior)
		if err != nil {
			return err
		}
		return printJSON(result)
	}
	return cmd
}

func newSessionsCmd() *cobra.Command {
	var workspaceID string
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List a workspace's recorded query sessions",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace ID (required)")
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")
	cmd.Flags().IntVar(&limit, "limit", 0, "pagination limit (defaults to 20)")
	_ = cmd.MarkFlagRequired("workspace")

	cmd.RunE = withApp(func(ctx context.Context, app *contractos.App) (any, error) {
		return app.ListSessions(ctx, contractos.WorkspaceID(workspaceID), offset, limit)
	})
	return cmd
}

func newClearSessionsCmd() *cobra.Command {
	var workspaceID string
	cmd := &cobra.Command{
		Use:   "clear-sessions",
		Short: "Delete every session for a workspace",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace ID (required)")
	_ = cmd.MarkFlagRequired("workspace")

	cmd.RunE = withApp(func(ctx context.Context, app *contractos.App) (any, error) {
		return nil, app.ClearSessions(ctx, contractos.WorkspaceID(workspaceID))
	})
	return cmd
}

func newWorkspaceCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces: groups of contracts queried together",
	}
	root.AddCommand(newWorkspaceCreateCmd(), newWorkspaceAddDocCmd(), newWorkspaceRemoveDocCmd())
	return root
}

func newWorkspaceCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new, empty workspace",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())
		w, err := app.CreateWorkspace(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(w)
	}
	return cmd
}

func newWorkspaceAddDocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-document <workspace-id> <document-id>",
		Short: "Reference a contract from a workspace",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())
		w, err := app.AddDocument(cmd.Context(), contractos.WorkspaceID(args[0]), contractos.DocumentID(args[1]))
		if err != nil {
			return err
		}
		return printJSON(w)
	}
	return cmd
}

func newWorkspaceRemoveDocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-document <workspace-id> <document-id>",
		Short: "Drop a contract reference from a workspace",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())
		w, err := app.RemoveDocument(cmd.Context(), contractos.WorkspaceID(args[0]), contractos.DocumentID(args[1]))
		if err != nil {
			return err
		}
		return printJSON(w)
	}
	return cmd
}
