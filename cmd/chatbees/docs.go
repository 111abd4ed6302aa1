package main

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"
)

func newDocsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage the documents of a collection",
	}

	list := &cobra.Command{
		Use:   "list <collection>",
		Short: "List documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			names, err := c.ListDocuments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, names, lines(names))
		},
	}

	upload := &cobra.Command{
		Use:   "upload <collection> <path-or-url>...",
		Short: "Upload local files or web documents",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			for _, src := range args[1:] {
				if err := c.UploadDocument(cmd.Context(), args[0], src); err != nil {
					return fmt.Errorf("upload %s: %w", src, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", path.Base(src))
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <collection> <doc>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if err := c.DeleteDocument(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[1])
			return nil
		},
	}

	summarize := &cobra.Command{
		Use:   "summarize <collection> <doc>",
		Short: "Summarize a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			summary, err := c.SummarizeDocument(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.AddCommand(list, upload, del, summarize)
	return cmd
}
