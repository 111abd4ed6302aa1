package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/chatbees/chatbees-go/internal/chat"
	"github.com/chatbees/chatbees-go/internal/model"
	natsclient "github.com/chatbees/chatbees-go/internal/nats"
)

func newConversationsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Browse stored conversations",
	}

	var (
		source model.CollectionBaseRequest
		local  bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List the conversations of a collection or an application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (source.CollectionName == "") == (source.ApplicationName == "") {
				return errors.New("exactly one of --collection and --application is required")
			}

			var (
				convs []model.ConversationMeta
				err   error
			)
			if local {
				convs, err = a.listLocal(cmd, source)
			} else {
				convs, err = a.listRemote(cmd, source)
			}
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, convs, func(w io.Writer) error {
				return writeConversationList(w, convs)
			})
		},
	}
	list.Flags().StringVarP(&source.CollectionName, "collection", "c", "", "collection")
	list.Flags().StringVarP(&source.ApplicationName, "application", "a", "", "application")
	list.Flags().BoolVar(&local, "local", false, "list from the local transcript database")

	var getLocal bool
	get := &cobra.Command{
		Use:   "get <conversation-id>",
		Short: "Print a conversation in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				conv *model.Conversation
				err  error
			)
			if getLocal {
				conv, err = a.loadLocal(cmd, args[0])
			} else {
				conv, err = a.loadRemote(cmd, args[0])
			}
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, conv, func(w io.Writer) error {
				return writeTranscript(w, conv)
			})
		},
	}
	get.Flags().BoolVar(&getLocal, "local", false, "read from the local transcript database")

	replay := &cobra.Command{
		Use:   "replay <source-id> <conversation-id>",
		Short: "Rebuild a conversation from the NATS transcript stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			nc, err := natsclient.Connect(ctx, natsclient.ConfigFrom(a.cfg), a.log)
			if err != nil {
				return err
			}
			defer nc.Close()

			conv, err := natsclient.NewTranscriptStream(nc, a.log).Replay(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, conv, func(w io.Writer) error {
				return writeTranscript(w, conv)
			})
		},
	}

	cmd.AddCommand(list, get, replay)
	return cmd
}

var errNoDatabase = errors.New("no transcript database configured (use --db or TRANSCRIPT_DB_PATH)")

func (a *app) listRemote(cmd *cobra.Command, source model.CollectionBaseRequest) ([]model.ConversationMeta, error) {
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	return c.ListConversations(cmd.Context(), source)
}

func (a *app) listLocal(cmd *cobra.Command, source model.CollectionBaseRequest) ([]model.ConversationMeta, error) {
	db, err := a.transcripts(cmd.Context())
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errNoDatabase
	}
	defer db.Close()

	target := chat.Target{Collection: source.CollectionName, Application: source.ApplicationName}
	if target.Collection != "" {
		target.Namespace = a.cfg.Namespace
	}
	return db.List(cmd.Context(), "", target.SourceID())
}

func (a *app) loadRemote(cmd *cobra.Command, conversationID string) (*model.Conversation, error) {
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	return c.GetConversation(cmd.Context(), conversationID)
}

func (a *app) loadLocal(cmd *cobra.Command, conversationID string) (*model.Conversation, error) {
	db, err := a.transcripts(cmd.Context())
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errNoDatabase
	}
	defer db.Close()
	return db.Load(cmd.Context(), "", conversationID)
}
