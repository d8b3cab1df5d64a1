package chat

import (
	"context"
	"strings"
	"time"

	"github.com/oggyb/copal/internal/app"
	"github.com/oggyb/copal/internal/db"
	svcErr "github.com/oggyb/copal/internal/errors"
	"github.com/oggyb/copal/internal/repository"
)

// Publisher pushes chat events to live connections. Delivery is
// best-effort; the stored message is the source of truth.
type Publisher interface {
	PublishMessage(ctx context.Context, msg *MessageView)
	SubscribeUsers(conversationID string, userIDs ...string)
}

// Sender is the public slice of a message author.
type Sender struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// MessageView is a persisted message as delivered to clients.
type MessageView struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	Sender         Sender    `json:"sender"`
}

// ConversationView is a conversation with its participants.
type ConversationView struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	Participants []Sender  `json:"participants"`
}

type Service struct {
	appCtx    *app.AppContext
	users     *repository.UserRepository
	chats     *repository.ChatRepository
	publisher Publisher
}

// NewService creates the chat service. publisher may be nil and set later
// with SetPublisher once the realtime hub exists.
func NewService(appCtx *app.AppContext, publisher Publisher) *Service {
	return &Service{
		appCtx:    appCtx,
		users:     repository.NewUserRepository(appCtx.DB),
		chats:     repository.NewChatRepository(appCtx.DB),
		publisher: publisher,
	}
}

func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// CreateConversation opens a conversation between exactly two distinct
// users and subscribes their live connections to it.
func (s *Service) CreateConversation(ctx context.Context, userIDs []string) (*ConversationView, error) {
	if len(userIDs) != 2 {
		return nil, svcErr.InvalidOperation("exactly two user ids are required")
	}
	a, b := strings.TrimSpace(userIDs[0]), strings.TrimSpace(userIDs[1])
	if a == "" || b == "" {
		return nil, svcErr.InvalidOperation("exactly two user ids are required")
	}
	if a == b {
		return nil, svcErr.InvalidOperation("cannot start a conversation with yourself")
	}

	known, err := s.users.AllExist(ctx, a, b)
	if err != nil {
		return nil, svcErr.Unavailable("check users", err)
	}
	if !known {
		return nil, svcErr.NotFound("user not found")
	}

	conv, err := s.chats.CreateConversation(ctx, []string{a, b})
	if err != nil {
		s.appCtx.Logger.Error("CreateConversation failed", "users", []string{a, b}, "err", err)
		return nil, svcErr.Unavailable("create conversation", err)
	}
	s.appCtx.Logger.Info("conversation created", "conversation_id", conv.ID)

	if s.publisher != nil {
		s.publisher.SubscribeUsers(conv.ID, a, b)
	}
	return toConversationView(conv), nil
}

// ListMessages returns a conversation's messages oldest first.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]MessageView, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, svcErr.InvalidOperation("missing required parameter: conversationId")
	}

	conv, err := s.chats.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, svcErr.Unavailable("load conversation", err)
	}
	if conv == nil {
		return nil, svcErr.NotFound("conversation not found")
	}

	msgs, err := s.chats.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, svcErr.Unavailable("list messages", err)
	}

	out := make([]MessageView, 0, len(msgs))
	for i := range msgs {
		out = append(out, *toMessageView(&msgs[i]))
	}
	return out, nil
}

// ListUserConversations returns the user's conversations newest first.
func (s *Service) ListUserConversations(ctx context.Context, userID string) ([]ConversationView, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, svcErr.InvalidOperation("missing required parameter: userId")
	}

	known, err := s.users.AllExist(ctx, userID)
	if err != nil {
		return nil, svcErr.Unavailable("check user", err)
	}
	if !known {
		return nil, svcErr.NotFound("user not found")
	}

	convs, err := s.chats.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Unavailable("list conversations", err)
	}

	out := make([]ConversationView, 0, len(convs))
	for i := range convs {
		out = append(out, *toConversationView(&convs[i]))
	}
	return out, nil
}

// SaveMessage validates and persists a message without publishing it.
// The realtime hub uses it so it can exclude the sending connection.
func (s *Service) SaveMessage(ctx context.Context, conversationID, senderID, content string) (*MessageView, error) {
	if strings.TrimSpace(conversationID) == "" || strings.TrimSpace(senderID) == "" {
		return nil, svcErr.InvalidOperation("missing required fields: conversationId, senderId")
	}
	if strings.TrimSpace(content) == "" {
		return nil, svcErr.InvalidOperation("message content is empty")
	}

	member, err := s.chats.IsParticipant(ctx, conversationID, senderID)
	if err != nil {
		return nil, svcErr.Unavailable("check membership", err)
	}
	if !member {
		return nil, svcErr.InvalidOperation("sender is not a participant of this conversation")
	}

	msg, err := s.chats.CreateMessage(ctx, conversationID, senderID, content)
	if err != nil {
		s.appCtx.Logger.Error("CreateMessage failed", "conversation_id", conversationID, "err", err)
		return nil, svcErr.Unavailable("create message", err)
	}
	return toMessageView(msg), nil
}

// SendMessage persists a message and then fans it out to every live
// subscriber of the conversation.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID, content string) (*MessageView, error) {
	view, err := s.SaveMessage(ctx, conversationID, senderID, content)
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.PublishMessage(ctx, view)
	}
	return view, nil
}

// ConversationIDsForUser lists the topics a user's connections belong to.
func (s *Service) ConversationIDsForUser(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.chats.ConversationIDsForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Unavailable("list conversation ids", err)
	}
	return ids, nil
}

func toSender(u *db.User, fallbackID string) Sender {
	if u == nil {
		return Sender{ID: fallbackID}
	}
	return Sender{ID: u.ID, Name: u.Name, Image: u.Image}
}

func toMessageView(m *db.Message) *MessageView {
	return &MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		Sender:         toSender(m.Sender, m.SenderID),
	}
}

func toConversationView(c *db.Conversation) *ConversationView {
	view := &ConversationView{ID: c.ID, CreatedAt: c.CreatedAt}
	for _, p := range c.Participants {
		view.Participants = append(view.Participants, toSender(p.User, p.UserID))
	}
	return view
}
