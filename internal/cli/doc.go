package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/keeper/internal/documents"
)

// NewDocCommand creates the doc command group.
func NewDocCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Store, list, fetch and delete documents",
	}
	cmd.AddCommand(newDocPutCommand(rootOpts))
	cmd.AddCommand(newDocListCommand(rootOpts))
	cmd.AddCommand(newDocGetCommand(rootOpts))
	cmd.AddCommand(newDocUpdateCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <document-id>",
		Short: "Delete a document with its permits",
		Args:  cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			if err := a.documents.Delete(ctx, args[0]); err != nil {
				return err
			}
			return f.Success(MessageView{Message: fmt.Sprintf("deleted document %s", args[0])})
		}),
	})
	cmd.AddCommand(newDocCheckCommand(rootOpts))
	return cmd
}

// requireAs marks the --as flag every read command takes.
func requireAs(cmd *cobra.Command, as *string) {
	cmd.Flags().StringVar(as, "as", "", "id of the requesting user (required)")
	_ = cmd.MarkFlagRequired("as")
}

func newDocPutCommand(rootOpts *RootOptions) *cobra.Command {
	var as, name, contentType, description, category string

	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Store a file as a new document",
		Long: `Store a file as a new document posted by --as.

The filename defaults to the file's base name and the content type to the
type registered for its extension.

Example:
  keeper doc put ./q3.pdf --as alice-id --category finance`,
		Args: cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read file", err)
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(name))
			}

			k, err := a.documents.Create(ctx, documents.NewDocument{
				Filename:    name,
				ContentType: contentType,
				Description: description,
				Category:    category,
				PostedBy:    as,
				Data:        data,
			})
			if err != nil {
				return err
			}
			f.VerboseLog("stored %d bytes as %s", len(data), k.ID)
			return f.Success(newDocumentView(k))
		}),
	}

	requireAs(cmd, &as)
	cmd.Flags().StringVar(&name, "name", "", "document filename (default: base name of <file>)")
	cmd.Flags().StringVar(&contentType, "type", "", "content type (default: from extension)")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	cmd.Flags().StringVar(&category, "category", "", "category label")
	return cmd
}

func newDocListCommand(rootOpts *RootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the documents a user may read",
		Args:  cobra.NoArgs,
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, _ []string) error {
			ks, err := a.documents.List(ctx, as)
			if err != nil {
				return err
			}
			return f.Success(newDocumentList(ks))
		}),
	}
	requireAs(cmd, &as)
	return cmd
}

func newDocGetCommand(rootOpts *RootOptions) *cobra.Command {
	var as, out string
	cmd := &cobra.Command{
		Use:   "get <document-id>",
		Short: "Fetch a document's content",
		Long: `Fetch a document's content as --as.

In text format the raw content is written to stdout, or to --out. In json
format the response carries the metadata and base64 content.`,
		Args: cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			doc, err := a.documents.Get(ctx, as, args[0])
			if err != nil {
				return err
			}

			if out != "" {
				if err := os.WriteFile(out, doc.Data, 0o644); err != nil {
					return WrapExitError(ExitCommandError, "failed to write file", err)
				}
				f.VerboseLog("wrote %d bytes to %s", len(doc.Data), out)
				return f.Success(newDocumentView(doc.Keeper))
			}
			if f.Format == "json" {
				view := newDocumentView(doc.Keeper)
				view.Data = doc.Data
				return f.Success(view)
			}
			_, err = f.Writer.Write(doc.Data)
			return err
		}),
	}
	requireAs(cmd, &as)
	cmd.Flags().StringVarP(&out, "out", "o", "", "write content to this file")
	return cmd
}

func newDocUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var name, contentType, description, category string

	var cmd *cobra.Command
	cmd = &cobra.Command{
		Use:   "update <document-id>",
		Short: "Change a document's metadata",
		Long: `Change a document's metadata. Only the flags given are changed; content
cannot be changed.

Example:
  keeper doc update 0192... --category archive`,
		Args: cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			var upd documents.Update
			changed := cmd.Flags().Changed
			if changed("name") {
				upd.Filename = &name
			}
			if changed("type") {
				upd.ContentType = &contentType
			}
			if changed("description") {
				upd.Description = &description
			}
			if changed("category") {
				upd.Category = &category
			}
			if upd.Empty() {
				return NewExitError(ExitCommandError, "nothing to update: pass at least one of --name, --type, --description, --category")
			}

			k, err := a.documents.Update(ctx, args[0], upd)
			if err != nil {
				return err
			}
			return f.Success(newDocumentView(k))
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "new filename")
	cmd.Flags().StringVar(&contentType, "type", "", "new content type")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	return cmd
}

func newDocCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "check <document-id>",
		Short: "Report whether a user may read a document, and why",
		Args:  cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			basis, err := a.access.Explain(ctx, as, args[0])
			if err != nil {
				return err
			}
			return f.Success(AccessView{UserID: as, DocumentID: args[0], Allowed: basis.Granted(), Basis: basis})
		}),
	}
	requireAs(cmd, &as)
	return cmd
}
