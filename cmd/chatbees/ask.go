package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chatbees/chatbees-go/internal/chat"
	"github.com/chatbees/chatbees-go/internal/llm"
)

func newAskCommand(a *app) *cobra.Command {
	var (
		target         chat.Target
		conversationID string
		topK           int
		provider       string
		modelName      string
		system         string
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a collection or an application",
		Long: `Ask a question and print the answer.

Without a question, questions are read from standard input one per line and
asked within the same conversation.

With --provider, application questions are answered by a local model
(openai or anthropic) using OPENAI_API_KEY or ANTHROPIC_API_KEY.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if target.Collection != "" {
				target.Namespace = a.cfg.Namespace
			}
			if err := target.Validate(); err != nil {
				return err
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			var asker chat.Asker = c
			if provider != "" {
				a.cfg.LLMProvider = provider
				lc, err := llm.NewClient(llm.Provider(provider), a.cfg.LLMAPIKey(), a.cfg.LLMBaseURL)
				if err != nil {
					return err
				}
				asker = &llm.Hybrid{Retriever: c, Local: llm.NewDirect(lc, modelName, system)}
			}

			opts := []chat.Option{chat.WithLogger(a.log)}
			db, err := a.transcripts(ctx)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
				opts = append(opts, chat.WithSink(db))
			}

			var session *chat.Chat
			if conversationID != "" {
				session, err = chat.Resume(ctx, asker, target, conversationID, opts...)
			} else {
				session, err = chat.New(asker, target, opts...)
			}
			if err != nil {
				return err
			}

			ask := func(question string) error {
				resp, err := session.Ask(ctx, question, topK)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.format, resp, func(w io.Writer) error {
					return writeAnswer(w, resp)
				})
			}

			if len(args) > 0 {
				return ask(strings.Join(args, " "))
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if err := ask(question); err != nil {
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			if session.ConversationID() != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "conversation %s\n", session.ConversationID())
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&target.Collection, "collection", "c", "", "collection to ask")
	flags.StringVarP(&target.Application, "application", "a", "", "application to ask")
	flags.StringVar(&target.DocName, "doc", "", "restrict answers to one document")
	flags.StringVar(&conversationID, "conversation", "", "continue an existing conversation")
	flags.IntVar(&topK, "top-k", 0, "number of passages to retrieve")
	flags.StringVar(&provider, "provider", "", "answer application questions with a local model: openai or anthropic")
	flags.StringVar(&modelName, "model", "", "local model name")
	flags.StringVar(&system, "system", "", "system prompt for the local model")
	cmd.MarkFlagsMutuallyExclusive("collection", "application")

	return cmd
}

func newSearchCommand(a *app) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <collection> <query>",
		Short: "Find the passages most relevant to a query",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			query := strings.Join(args[1:], " ")
			if strings.TrimSpace(query) == "" {
				return errors.New("query is empty")
			}
			refs, err := c.Search(cmd.Context(), args[0], query, topK)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, refs, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "DOC\tPAGE\tTEXT")
				for _, r := range refs {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", r.DocName, r.PageNum, r.SampleText)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of passages")
	return cmd
}
