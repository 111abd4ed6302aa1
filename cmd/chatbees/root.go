package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatbees/chatbees-go/internal/client"
	"github.com/chatbees/chatbees-go/internal/config"
	"github.com/chatbees/chatbees-go/internal/store"
	"github.com/chatbees/chatbees-go/pkg/logger"
)

// app carries the settings shared by every command.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	format  string
	verbose bool
}

func (a *app) client() (*client.Client, error) {
	return client.FromConfig(a.cfg, a.log)
}

// transcripts opens the local transcript store, or returns nil when none is
// configured.
func (a *app) transcripts(ctx context.Context) (*store.TranscriptStore, error) {
	if a.cfg.TranscriptDBPath == "" {
		return nil, nil
	}
	return store.Open(ctx, a.cfg.TranscriptDBPath)
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	a := &app{cfg: cfg, log: logger.NewNop()}

	root := &cobra.Command{
		Use:   "chatbees",
		Short: "Chat with your ChatBees collections",
		Long: `Manage ChatBees collections and documents, ask questions and browse
conversations.

Credentials are read from CHATBEES_API_KEY, CHATBEES_ACCOUNT_ID and
CHATBEES_NAMESPACE (or a .env file) and can be overridden with flags.

Quick Start:
  chatbees collections list
  chatbees docs upload my-docs ./handbook.pdf
  chatbees ask -c my-docs "What is the vacation policy?"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch a.format {
			case formatText, formatJSON, formatYAML:
			default:
				return fmt.Errorf("unknown format %q (want text, json or yaml)", a.format)
			}
			if a.verbose {
				log, err := logger.New("debug", logger.FormatConsole)
				if err != nil {
					return err
				}
				a.log = log
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "ChatBees API key")
	flags.StringVar(&cfg.AccountID, "account", cfg.AccountID, "ChatBees account id")
	flags.StringVar(&cfg.Namespace, "namespace", cfg.Namespace, "collection namespace")
	flags.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "override the account URL")
	flags.StringVar(&cfg.TranscriptDBPath, "db", cfg.TranscriptDBPath, "local transcript database")
	flags.StringVarP(&a.format, "format", "o", formatText, "output format: text, json or yaml")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newCollectionsCommand(a),
		newDocsCommand(a),
		newAskCommand(a),
		newSearchCommand(a),
		newConversationsCommand(a),
		newAPIKeyCommand(a),
		newTokenCommand(a),
	)
	return root
}
