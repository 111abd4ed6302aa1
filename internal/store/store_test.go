package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chatbees/chatbees-go/internal/model"
)

func openTestStore(t *testing.T) *TranscriptStore {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	meta := model.ConversationMeta{ConversationID: "c1", Title: "first", StartTS: 10, SourceID: "ns/col"}

	require.NoError(t, s.Record(ctx, meta,
		model.Message{Timestamp: 10, RequestID: "r1", Role: model.RoleUser, Content: "q1"},
		model.Message{Timestamp: 12, RequestID: "r1", Role: model.RoleAssistant, Content: "a1"},
	))
	// A late message with an earlier timestamp is restored into place.
	require.NoError(t, s.Record(ctx, meta,
		model.Message{Timestamp: 11, RequestID: "r0", Role: model.RoleSystem, Content: "note"},
	))

	conv, err := s.Load(ctx, "", "c1")
	require.NoError(t, err)
	require.Equal(t, meta, conv.Meta)
	require.True(t, conv.IsOrdered())

	var contents []string
	for _, m := range conv.Messages {
		contents = append(contents, m.Content)
	}
	require.Equal(t, []string{"q1", "note", "a1"}, contents)
}

func TestRecordIgnoresDuplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	meta := model.ConversationMeta{ConversationID: "c1", SourceID: "bot"}
	msg := model.Message{Timestamp: 1, RequestID: "r1", Role: model.RoleUser, Content: "q"}

	require.NoError(t, s.Record(ctx, meta, msg))
	require.NoError(t, s.Record(ctx, meta, msg))

	conv, err := s.Load(ctx, "", "c1")
	require.NoError(t, err)
	require.Equal(t, 1, conv.Len())
}

func TestEqualTimestampsKeepRecordOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	meta := model.ConversationMeta{ConversationID: "c1", SourceID: "bot"}

	require.NoError(t, s.Record(ctx, meta,
		model.Message{Timestamp: 5, RequestID: "r1", Role: model.RoleUser, Content: "first"},
		model.Message{Timestamp: 5, RequestID: "r1", Role: model.RoleAssistant, Content: "second"},
		model.Message{Timestamp: 5, RequestID: "r2", Role: model.RoleUser, Content: "third"},
	))

	conv, err := s.Load(ctx, "", "c1")
	require.NoError(t, err)
	require.Equal(t, "first", conv.Messages[0].Content)
	require.Equal(t, "second", conv.Messages[1].Content)
	require.Equal(t, "third", conv.Messages[2].Content)
}

func TestSaveAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := model.NewConversation(model.ConversationMeta{ConversationID: "old", StartTS: 1, SourceID: "ns/col"})
	older.Append(model.Message{Timestamp: 1, Role: model.RoleUser, Content: "q"})
	newer := model.NewConversation(model.ConversationMeta{ConversationID: "new", StartTS: 9, SourceID: "ns/col"})
	other := model.NewConversation(model.ConversationMeta{ConversationID: "other", StartTS: 5, SourceID: "bot"})

	for _, c := range []*model.Conversation{older, newer, other} {
		require.NoError(t, s.Save(ctx, c))
	}

	metas, err := s.List(ctx, "", "ns/col")
	require.NoError(t, err)
	require.Len(t, metas, 2)
	require.Equal(t, "new", metas[0].ConversationID)
	require.Equal(t, "old", metas[1].ConversationID)

	all, err := s.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	none, err := s.List(ctx, "", "missing")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Load(context.Background(), "", "nope")
	require.ErrorIs(t, err, ErrNotFound)

	err = s.Record(context.Background(), model.ConversationMeta{}, model.Message{Timestamp: 1})
	require.ErrorIs(t, err, ErrNoConversationID)
}

func TestTenantsAreIsolated(t *testing.T) {
	s := openTestStore(t)
	acme := model.WithTenant(context.Background(), "acme")
	globex := model.WithTenant(context.Background(), "globex")
	meta := model.ConversationMeta{ConversationID: "c1", SourceID: "ns/col", StartTS: 1}
	msg := model.Message{Timestamp: 1, RequestID: "r1", Role: model.RoleUser, Content: "acme secret"}

	require.NoError(t, s.Record(acme, meta, msg))

	conv, err := s.Load(acme, "acme", "c1")
	require.NoError(t, err)
	require.Equal(t, 1, conv.Len())

	_, err = s.Load(globex, "globex", "c1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Load(context.Background(), "", "c1")
	require.ErrorIs(t, err, ErrNotFound)

	metas, err := s.List(globex, "globex", "")
	require.NoError(t, err)
	require.Empty(t, metas)

	// Another tenant cannot write into the conversation either.
	err = s.Record(globex, meta, model.Message{Timestamp: 2, RequestID: "r2", Role: model.RoleUser, Content: "x"})
	require.ErrorIs(t, err, ErrTenantMismatch)

	conv, err = s.Load(acme, "acme", "c1")
	require.NoError(t, err)
	require.Equal(t, 1, conv.Len())
}

func TestOpenMigratesUntenantedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE conversations (
			conversation_id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			title TEXT NOT NULL,
			start_ts INTEGER NOT NULL
		);
		INSERT INTO conversations VALUES ('c1', 'bot', 'old', 3);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	metas, err := s.List(context.Background(), "", "bot")
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, "old", metas[0].Title)
}
