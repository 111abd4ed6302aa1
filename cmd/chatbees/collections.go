package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chatbees/chatbees-go/internal/model"
)

func newCollectionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"col"},
		Short:   "Manage collections",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List collections in the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			names, err := c.ListCollections(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, names, lines(names))
		},
	}

	var (
		description string
		public      bool
	)
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			col := model.Collection{Name: args[0], Description: description, PublicReadable: public}
			if err := c.CreateCollection(cmd.Context(), col); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created collection %s\n", col.Name)
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "", "collection description")
	create.Flags().BoolVar(&public, "public", false, "allow reads without an API key")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if err := c.DeleteCollection(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted collection %s\n", args[0])
			return nil
		},
	}

	describe := &cobra.Command{
		Use:   "describe <name>",
		Short: "Show collection settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.DescribeCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			col := resp.ToCollection(args[0])
			return render(cmd.OutOrStdout(), a.format, resp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "name: %s\ndescription: %s\npublic: %t\nperiodic ingests: %d\n",
					col.Name, col.Description, col.PublicReadable, len(resp.PeriodicIngests))
				return err
			})
		},
	}

	cmd.AddCommand(list, create, del, describe)
	return cmd
}
