package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/copal/internal/db"
)

// ChatRepository stores conversations and their messages.
type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(database *gorm.DB) *ChatRepository {
	return &ChatRepository{db: database}
}

// CreateConversation inserts a conversation with the given participants and
// returns it with participant users preloaded.
func (r *ChatRepository) CreateConversation(ctx context.Context, userIDs []string) (*db.Conversation, error) {
	conv := db.Conversation{ID: uuid.NewString()}
	for _, id := range userIDs {
		conv.Participants = append(conv.Participants, db.ConversationParticipant{UserID: id})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		return tx.Preload("Participants.User").First(&conv, "id = ?", conv.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetConversation loads a conversation with participants, or nil if absent.
func (r *ChatRepository) GetConversation(ctx context.Context, conversationID string) (*db.Conversation, error) {
	var conv db.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants.User").
		First(&conv, "id = ?", conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// IsParticipant reports whether userID belongs to the conversation.
func (r *ChatRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

// ConversationIDsForUser lists the topics a user's connections subscribe to.
func (r *ChatRepository) ConversationIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.ConversationParticipant{}).
		Where("user_id = ?", userID).
		Order("conversation_id").
		Pluck("conversation_id", &ids).Error
	return ids, err
}

// ListConversationsForUser returns the user's conversations, newest first.
func (r *ChatRepository) ListConversationsForUser(ctx context.Context, userID string) ([]db.Conversation, error) {
	sub := r.db.Model(&db.ConversationParticipant{}).
		Select("conversation_id").
		Where("user_id = ?", userID)

	var convs []db.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants.User").
		Where("id IN (?)", sub).
		Order("created_at DESC, id DESC").
		Find(&convs).Error
	return convs, err
}

// CreateMessage persists a message and returns it with the sender loaded.
func (r *ChatRepository) CreateMessage(ctx context.Context, conversationID, senderID, content string) (*db.Message, error) {
	msg := db.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	if err := r.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Preload("Sender").First(&msg, "id = ?", msg.ID).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns a conversation's messages oldest first.
func (r *ChatRepository) ListMessages(ctx context.Context, conversationID string) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}
