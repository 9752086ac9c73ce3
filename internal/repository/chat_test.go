package repository

import (
	"context"
	"testing"
	"time"

	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createDirect(t *testing.T, repo ChatRepository, a, b *models.User, at time.Time) *models.Conversation {
	t.Helper()
	key := models.DirectKeyFor(a.ID, b.ID)
	conv := &models.Conversation{CreatedBy: a.ID, DirectKey: &key, CreatedAt: at, UpdatedAt: at}
	members := []models.ConversationMember{
		{UserID: a.ID, JoinedAt: at},
		{UserID: b.ID, JoinedAt: at},
	}
	require.NoError(t, repo.CreateConversation(context.Background(), conv, members))
	return conv
}

func sendAt(t *testing.T, db *gorm.DB, convID, userID uint, content string, at time.Time) *models.Message {
	t.Helper()
	msg := &models.Message{ConversationID: convID, UserID: userID, Content: content, Type: models.MessageTypeText, CreatedAt: at}
	require.NoError(t, NewChatRepository(db).CreateMessage(context.Background(), msg))
	return msg
}

func TestChatRepository_Conversations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	bob := createUser(t, db, "bob")
	cy := createUser(t, db, "cy")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	direct := createDirect(t, repo, ada, bob, base)
	assert.NotZero(t, direct.ID)
	assert.Len(t, direct.Members, 2)

	t.Run("DuplicateDirectKeyIsConflict", func(t *testing.T) {
		key := models.DirectKeyFor(bob.ID, ada.ID)
		dup := &models.Conversation{CreatedBy: bob.ID, DirectKey: &key}
		err := repo.CreateConversation(ctx, dup, []models.ConversationMember{{UserID: bob.ID, JoinedAt: base}})
		assert.True(t, models.HasCode(err, models.CodeConflict))

		var n int64
		db.Model(&models.ConversationMember{}).Count(&n)
		assert.Equal(t, int64(2), n)
	})

	t.Run("FindDirect", func(t *testing.T) {
		found, err := repo.FindDirect(ctx, models.DirectKeyFor(bob.ID, ada.ID))
		require.NoError(t, err)
		assert.Equal(t, direct.ID, found.ID)
		require.Len(t, found.Members, 2)
		assert.NotNil(t, found.Members[0].User)

		_, err = repo.FindDirect(ctx, models.DirectKeyFor(ada.ID, cy.ID))
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("Membership", func(t *testing.T) {
		ok, err := repo.IsMember(ctx, direct.ID, ada.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.IsMember(ctx, direct.ID, cy.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		exists, err := repo.ConversationExists(ctx, 4242)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = repo.GetConversation(ctx, 4242)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("ListOrderedByActivity", func(t *testing.T) {
		group := &models.Conversation{Name: "crew", IsGroup: true, CreatedBy: ada.ID, CreatedAt: base.Add(time.Hour)}
		require.NoError(t, repo.CreateConversation(ctx, group, []models.ConversationMember{
			{UserID: ada.ID, IsAdmin: true, JoinedAt: base},
			{UserID: cy.ID, JoinedAt: base},
		}))

		convs, err := repo.ListUserConversations(ctx, ada.ID)
		require.NoError(t, err)
		require.Len(t, convs, 2)
		assert.Equal(t, group.ID, convs[0].ID, "newer creation wins when neither has messages")

		sendAt(t, db, direct.ID, bob.ID, "hello", base.Add(2*time.Hour))

		convs, err = repo.ListUserConversations(ctx, ada.ID)
		require.NoError(t, err)
		require.Len(t, convs, 2)
		assert.Equal(t, direct.ID, convs[0].ID, "latest message moves the conversation up")

		convs, err = repo.ListUserConversations(ctx, bob.ID)
		require.NoError(t, err)
		assert.Len(t, convs, 1)
	})
}

func TestChatRepository_MessagesAndReadState(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	bob := createUser(t, db, "bob")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	conv := createDirect(t, repo, ada, bob, base)

	first := sendAt(t, db, conv.ID, ada.ID, "one", base.Add(time.Minute))
	second := sendAt(t, db, conv.ID, ada.ID, "two", base.Add(time.Minute))
	reply := sendAt(t, db, conv.ID, bob.ID, "three", base.Add(2*time.Minute))
	require.NotNil(t, reply.User)
	assert.Equal(t, "bob", reply.User.Name)

	var touched models.Conversation
	require.NoError(t, db.First(&touched, conv.ID).Error)
	assert.True(t, touched.UpdatedAt.Equal(reply.CreatedAt))

	t.Run("ListAscendingWithIDTieBreak", func(t *testing.T) {
		msgs, err := repo.ListMessages(ctx, conv.ID, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, []uint{first.ID, second.ID, reply.ID}, []uint{msgs[0].ID, msgs[1].ID, msgs[2].ID})
		assert.NotNil(t, msgs[0].User)

		since, err := repo.ListMessages(ctx, conv.ID, second.ID)
		require.NoError(t, err)
		require.Len(t, since, 1)
		assert.Equal(t, reply.ID, since[0].ID)
	})

	t.Run("LastMessages", func(t *testing.T) {
		last, err := repo.LastMessages(ctx, []uint{conv.ID})
		require.NoError(t, err)
		require.Contains(t, last, conv.ID)
		assert.Equal(t, reply.ID, last[conv.ID].ID)
	})

	t.Run("UnreadAndMarkRead", func(t *testing.T) {
		n, err := repo.UnreadCount(ctx, conv.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = repo.UnreadCount(ctx, conv.ID, ada.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		counts, err := repo.UnreadCounts(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts[conv.ID])

		marked, err := repo.MarkRead(ctx, conv.ID, bob.ID, base.Add(3*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(2), marked)

		n, err = repo.UnreadCount(ctx, conv.ID, bob.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		var own models.Message
		require.NoError(t, db.First(&own, reply.ID).Error)
		assert.False(t, own.IsRead, "reader's own message stays unread")

		marked, err = repo.MarkRead(ctx, conv.ID, bob.ID, base.Add(4*time.Minute))
		require.NoError(t, err)
		assert.Zero(t, marked)

		var again models.Message
		require.NoError(t, db.First(&again, first.ID).Error)
		require.NotNil(t, again.ReadAt)
		assert.True(t, again.ReadAt.Equal(base.Add(3*time.Minute)), "second mark-read leaves read_at alone")
	})
}
