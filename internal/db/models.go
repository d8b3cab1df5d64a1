package db

import (
	"time"
)

// User is an identity created by onboarding. The core only reads it.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:128" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Image     string    `gorm:"size:512" json:"image,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

// Like is a directional "subject is interested in target" edge.
//
// Composite PK: (SubjectID, TargetID)
//   - At most one like per ordered pair; inserts use ON CONFLICT DO NOTHING.
//
// Indexes:
//   - idx_like_target_created(target_id, created_at DESC)
//     Serves "who liked me" lists and counts.
type Like struct {
	SubjectID string    `gorm:"primaryKey;size:64" json:"userId"`
	TargetID  string    `gorm:"primaryKey;size:64;index:idx_like_target_created,priority:1" json:"likedId"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_like_target_created,priority:2,sort:desc" json:"createdAt"`
}

// Pass is the "not interested" counterpart of Like. Same key shape.
type Pass struct {
	SubjectID string    `gorm:"primaryKey;size:64" json:"userId"`
	TargetID  string    `gorm:"primaryKey;size:64" json:"passedId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// Match is the undirected edge created once both likes exist.
//
// UserID1 < UserID2 always (see CanonicalPair), and idx_match_pair is unique,
// so an unordered pair maps to exactly one row.
type Match struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID1   string    `gorm:"column:user_id1;size:64;not null;uniqueIndex:idx_match_pair,priority:1" json:"userId1"`
	UserID2   string    `gorm:"column:user_id2;size:64;not null;uniqueIndex:idx_match_pair,priority:2;index" json:"userId2"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`

	User1 *User `gorm:"foreignKey:UserID1;references:ID" json:"-"`
	User2 *User `gorm:"foreignKey:UserID2;references:ID" json:"-"`
}

// CanonicalPair orders two user ids so the lower one comes first.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Conversation is a chat thread between exactly two participants. Its ID is
// also the realtime topic.
type Conversation struct {
	ID           string                    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt    time.Time                 `gorm:"autoCreateTime" json:"createdAt"`
	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants"`
}

type ConversationParticipant struct {
	ConversationID string `gorm:"primaryKey;size:36" json:"-"`
	UserID         string `gorm:"primaryKey;size:64;index" json:"-"`
	User           *User  `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// Message is immutable once created and ordered by CreatedAt within its
// conversation.
type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"size:36;not null;index:idx_message_conversation_created,priority:1" json:"conversationId"`
	SenderID       string    `gorm:"size:64;not null" json:"senderId"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_message_conversation_created,priority:2" json:"createdAt"`

	Sender *User `gorm:"foreignKey:SenderID;references:ID" json:"-"`
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{
		&User{},
		&Like{},
		&Pass{},
		&Match{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
	}
}
