package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/chatbees/chatbees-go/internal/model"
	"github.com/chatbees/chatbees-go/pkg/logger"
	"github.com/chatbees/chatbees-go/pkg/metrics"
)

const (
	// StreamName is the name of the transcripts stream.
	StreamName = "CHATBEES_TRANSCRIPTS"

	// SubjectPrefix is the prefix for all transcript subjects.
	SubjectPrefix = "chat"

	replayBatch = 256
)

// Record is one transcript message as published to the stream.
type Record struct {
	Meta    model.ConversationMeta `json:"meta"`
	Message model.Message          `json:"message"`
}

// TranscriptStream publishes transcript messages and replays conversations.
type TranscriptStream struct {
	client *Client
	logger *logger.Logger
}

// NewTranscriptStream creates a transcript stream on client.
func NewTranscriptStream(client *Client, log *logger.Logger) *TranscriptStream {
	return &TranscriptStream{client: client, logger: log}
}

// EnsureStream ensures the transcripts stream exists with proper configuration.
func (s *TranscriptStream) EnsureStream(ctx context.Context) error {
	js := s.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Duplicates:  10 * time.Minute,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "ChatBees conversation transcripts and session events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	s.logger.Info("created transcript stream", zap.String("stream", StreamName))
	return nil
}

// token makes s usable as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// MessageSubject returns the subject for a transcript message.
func MessageSubject(sourceID, conversationID string, role model.Role) string {
	return fmt.Sprintf("%s.%s.%s.msg.%s", SubjectPrefix, token(sourceID), token(conversationID), token(string(role)))
}

// EventSubject returns the subject for a session event.
func EventSubject(sourceID, conversationID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s.event.%s", SubjectPrefix, token(sourceID), token(conversationID), eventType)
}

// MessageFilter returns the filter subject for all messages of a conversation.
func MessageFilter(sourceID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s.msg.>", SubjectPrefix, token(sourceID), token(conversationID))
}

// messageID deduplicates republished messages within the stream window.
func messageID(meta model.ConversationMeta, msg model.Message) string {
	return fmt.Sprintf("%s:%s:%s:%d", meta.ConversationID, msg.RequestID, msg.Role, msg.Timestamp)
}

// Record publishes msgs of a conversation. It implements chat.Sink.
func (s *TranscriptStream) Record(ctx context.Context, meta model.ConversationMeta, msgs ...model.Message) error {
	js := s.client.JetStream()
	for _, msg := range msgs {
		data, err := json.Marshal(Record{Meta: meta, Message: msg})
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		subject := MessageSubject(meta.SourceID, meta.ConversationID, msg.Role)
		ack, err := js.Publish(ctx, subject, data, jetstream.WithMsgID(messageID(meta, msg)))
		if err != nil {
			metrics.TranscriptPublished.WithLabelValues("error").Inc()
			return fmt.Errorf("failed to publish message: %w", err)
		}

		status := "published"
		if ack.Duplicate {
			status = "duplicate"
		}
		metrics.TranscriptPublished.WithLabelValues(status).Inc()

		s.logger.Debug("published transcript message",
			zap.String("subject", subject),
			zap.Uint64("sequence", ack.Sequence),
		)
	}
	return nil
}

// PublishEvent publishes a session event.
func (s *TranscriptStream) PublishEvent(ctx context.Context, event *model.SessionEvent) (uint64, error) {
	subject := EventSubject(event.SourceID, event.ConversationID, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := s.client.JetStream().Publish(ctx, subject, data, jetstream.WithMsgID(event.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}

// Replay rebuilds a conversation from the stream. Messages are restored to
// timestamp order regardless of publish order.
func (s *TranscriptStream) Replay(ctx context.Context, sourceID, conversationID string) (*model.Conversation, error) {
	js := s.client.JetStream()

	consumer, err := js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject:     MessageFilter(sourceID, conversationID),
		AckPolicy:         jetstream.AckNonePolicy,
		DeliverPolicy:     jetstream.DeliverAllPolicy,
		InactiveThreshold: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	defer func() {
		name := consumer.CachedInfo().Name
		if err := js.DeleteConsumer(context.WithoutCancel(ctx), StreamName, name); err != nil {
			s.logger.Debug("failed to delete replay consumer", zap.String("consumer", name), zap.Error(err))
		}
	}()

	var payloads [][]byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := consumer.Fetch(replayBatch, jetstream.FetchMaxWait(time.Second))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch messages: %w", err)
		}

		n := 0
		for msg := range batch.Messages() {
			payloads = append(payloads, msg.Data())
			n++
		}
		if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("batch error: %w", err)
		}
		if n < replayBatch {
			break
		}
	}

	meta := model.ConversationMeta{SourceID: sourceID, ConversationID: conversationID}
	return restoreRecords(meta, payloads, s.logger)
}

// restoreRecords decodes published records into an ordered conversation.
// Records that cannot be decoded are skipped.
func restoreRecords(meta model.ConversationMeta, payloads [][]byte, log *logger.Logger) (*model.Conversation, error) {
	msgs := make([]model.Message, 0, len(payloads))
	for _, data := range payloads {
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			log.Warn("skipping undecodable transcript record", zap.Error(err))
			continue
		}
		if rec.Meta.Title != "" {
			meta.Title = rec.Meta.Title
		}
		if rec.Meta.StartTS != 0 && (meta.StartTS == 0 || rec.Meta.StartTS < meta.StartTS) {
			meta.StartTS = rec.Meta.StartTS
		}
		msgs = append(msgs, rec.Message)
	}
	return model.Restore(meta, msgs), nil
}
