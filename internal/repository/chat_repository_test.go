package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/copal/internal/repository"
)

func TestCreateConversationAndMembership(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedUsers(t, dbase, "a", "b", "c")
	repo := repository.NewChatRepository(dbase)

	conv, err := repo.CreateConversation(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, conv.Participants, 2)
	require.NotNil(t, conv.Participants[0].User)

	ok, err := repo.IsParticipant(ctx, conv.ID, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsParticipant(ctx, conv.ID, "c")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := repo.ConversationIDsForUser(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{conv.ID}, ids)

	ids, err = repo.ConversationIDsForUser(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, ids)

	convs, err := repo.ListConversationsForUser(ctx, "a")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Len(t, convs[0].Participants, 2)

	missing, err := repo.GetConversation(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMessagesOldestFirst(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedUsers(t, dbase, "a", "b")
	repo := repository.NewChatRepository(dbase)

	conv, err := repo.CreateConversation(ctx, []string{"a", "b"})
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		msg, err := repo.CreateMessage(ctx, conv.ID, "a", content)
		require.NoError(t, err)
		require.NotNil(t, msg.Sender)
		assert.Equal(t, "name-a", msg.Sender.Name)
	}

	msgs, err := repo.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}
}
