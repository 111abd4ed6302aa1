package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chatbees/chatbees-go/internal/model"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// render writes v as JSON or YAML, or calls text for the text format.
func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}

func lines(items []string) func(io.Writer) error {
	return func(w io.Writer) error {
		for _, item := range items {
			if _, err := fmt.Fprintln(w, item); err != nil {
				return err
			}
		}
		return nil
	}
}

func formatTS(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

func writeConversationList(w io.Writer, convs []model.ConversationMeta) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tTITLE")
	for _, c := range convs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ConversationID, formatTS(c.StartTS), c.Title)
	}
	return tw.Flush()
}

func writeTranscript(w io.Writer, conv *model.Conversation) error {
	if conv.Meta.Title != "" {
		if _, err := fmt.Fprintf(w, "# %s\n\n", conv.Meta.Title); err != nil {
			return err
		}
	}
	for _, m := range conv.Messages {
		if _, err := fmt.Fprintf(w, "[%s] %s: %s\n", formatTS(m.Timestamp), m.Role, m.Content); err != nil {
			return err
		}
	}
	return nil
}

func writeAnswer(w io.Writer, resp *model.AskResponse) error {
	if _, err := fmt.Fprintln(w, resp.Answer); err != nil {
		return err
	}
	for _, ref := range resp.Refs {
		if _, err := fmt.Fprintf(w, "  - %s (page %d)\n", ref.DocName, ref.PageNum); err != nil {
			return err
		}
	}
	return nil
}
