package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophvault/internal/buildinfo"
	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the gophvault command tree reading from in and writing
// to out.
func NewRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "gophvault",
		Short: "gophvault is an encrypted local vault",
		Long: `gophvault keeps passwords, notes and files encrypted on this device.
Item names and tags stay readable so a locked vault can be listed and searched.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)
	config.RegisterFlags(root.PersistentFlags())

	// withApp opens the vault for the duration of one command.
	withApp := func(fn func(ctx context.Context, a *App, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := NewApp(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := fn(ctx, app, args); err != nil {
				app.log.Debug(ctx, "command failed", "command", cmd.Name(), "error", err)
				return &commandError{err: err}
			}
			return nil
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List items without decrypting them",
		Args:    cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.List(ctx)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Find items by name or tag, ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *App, args []string) error {
			return a.Search(ctx, args[0])
		}),
	})

	var (
		addKind string
		addOpts AddOptions
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item; the payload is prompted for",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *App, _ []string) error {
			_, err := a.Add(ctx, models.Kind(addKind), addOpts)
			return err
		}),
	}
	addCmd.Flags().StringVarP(&addKind, "kind", "k", string(models.KindPassword), "item kind: "+kindNames(", "))
	addCmd.Flags().StringVarP(&addOpts.Name, "name", "n", "", "item name (prompted if empty)")
	addCmd.Flags().StringSliceVarP(&addOpts.Tags, "tag", "t", nil, "tag, repeatable or comma separated")
	addCmd.Flags().StringVarP(&addOpts.File, "file", "f", "", "file to store for kind=file")
	root.AddCommand(addCmd)

	var exportDir string
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Decrypt and print an item",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *App, args []string) error {
			return a.Show(ctx, args[0], exportDir)
		}),
	}
	showCmd.Flags().StringVarP(&exportDir, "export", "o", "", "write file items into this directory")
	root.AddCommand(showCmd)

	var updateFile string
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace an item's payload",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *App, args []string) error {
			return a.Update(ctx, args[0], updateFile)
		}),
	}
	updateCmd.Flags().StringVarP(&updateFile, "file", "f", "", "new file content for file items")
	root.AddCommand(updateCmd)

	root.AddCommand(&cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *App, args []string) error {
			return a.Delete(ctx, args[0])
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "passwd",
		Short: "Change the vault passphrase",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Passwd(ctx)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *App, _ []string) error {
			a.Shell(ctx)
			return nil
		}),
	})

	return root
}

// Execute runs the command tree against the process arguments and returns
// the exit code.
func Execute(ctx context.Context, in io.Reader, out, errOut io.Writer) int {
	root := NewRootCmd(in, out)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, "Error:", err)
		return 1
	}
	return 0
}
