package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/pubsplice"
)

func newNewCommand(ctx *commandContext) *cobra.Command {
	var req pubsplice.DraftRequest

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a draft",
		Long: `Create an unpublished entry and its draft file. The draft starts with a
front matter block; edit the body, then run "pubsplice publish".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPublisher(cmd, func(p *pubsplice.Publisher) error {
				prompt := newPrompter(cmd)
				if req.Name == "" && req.From == "" {
					name, err := prompt.ask("Title")
					if err != nil {
						return err
					}
					req.Name = name
				}
				if req.Image == "" && p.Config().Prompts.CoverImage {
					image, err := prompt.ask("Cover image (path or URL, empty for none)")
					if err != nil {
						return err
					}
					req.Image = image
				}

				e, path, err := p.NewDraft(req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created draft %q (%s)\n  %s\n", e.Name, e.ID, path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&req.Name, "title", "t", "", "Entry title")
	cmd.Flags().StringVarP(&req.Author, "author", "a", "", "Byline (default from [site] author)")
	cmd.Flags().StringVarP(&req.Image, "image", "i", "", "Cover image path or URL")
	cmd.Flags().StringVar(&req.From, "from", "", "Import an existing Markdown or HTML file")
	return cmd
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish [id]",
		Short: "Publish a draft",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPublisher(cmd, func(p *pubsplice.Publisher) error {
				target, err := resolveEntry(cmd, p, args, "Draft to publish", isDraft)
				if err != nil {
					return err
				}
				e, err := p.Publish(target.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published %q\n  %s\n", e.Name, p.Config().PagePath(e.ID))
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an entry, published or not",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPublisher(cmd, func(p *pubsplice.Publisher) error {
				target, err := resolveEntry(cmd, p, args, "Entry to delete", anyEntry)
				if err != nil {
					return err
				}
				if err := p.Delete(target.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", target.Name)
				return nil
			})
		},
	}
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "edit [id]",
		Short: "Unpublish an entry and recover its body as a draft",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPublisher(cmd, func(p *pubsplice.Publisher) error {
				target, err := resolveEntry(cmd, p, args, "Entry to edit", isPublished)
				if err != nil {
					return err
				}
				path, err := p.Edit(target.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recovered %q\n  %s\n", target.Name, path)
				return nil
			})
		},
	}
}

func newRegenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate",
		Short: "Rebuild every published page from the current template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPublisher(cmd, func(p *pubsplice.Publisher) error {
				n, err := p.Regenerate()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Regenerated %d pages\n", n)
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var draftsOnly, publishedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPublisher(cmd, func(p *pubsplice.Publisher) error {
				entries, err := p.List()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					if (draftsOnly && e.Published) || (publishedOnly && !e.Published) {
						continue
					}
					status := "draft"
					if e.Published {
						status = "published"
					}
					rows = append(rows, []string{e.ID, e.Name, e.Author, status, e.Date})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No entries")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Author", "Status", "Date"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&draftsOnly, "drafts", false, "Only list drafts")
	cmd.Flags().BoolVar(&publishedOnly, "published", false, "Only list published entries")
	cmd.MarkFlagsMutuallyExclusive("drafts", "published")
	return cmd
}
