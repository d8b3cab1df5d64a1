package db

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoUsers is the fixed demo identity set the web client ships with.
var DemoUsers = []User{
	{ID: "current-user-id", Name: "Current User", Email: "current@test.com", Image: "https://ui-avatars.com/api/?name=Current+User&background=random"},
	{ID: "1", Name: "Betelhem Dessie", Email: "betelhem@test.com"},
	{ID: "2", Name: "Timnit Gebru", Email: "timnit@test.com"},
	{ID: "3", Name: "Henok Tsegaye", Email: "henok@test.com"},
	{ID: "4", Name: "Lewam Kefela", Email: "lewam@test.com"},
	{ID: "5", Name: "Yadesa Bojia", Email: "yadesa@test.com"},
	{ID: "6", Name: "KinfeMichael Tariku", Email: "kinfemichael@test.com"},
	{ID: "7", Name: "Dagmawi Esayas", Email: "dagmawi@test.com"},
	{ID: "8", Name: "Temkin Mengistu", Email: "temkin@test.com"},
}

// UpsertDemoUsers inserts the demo users, refreshing name/email/image when
// they already exist. Returns the upserted rows.
func UpsertDemoUsers(db *gorm.DB) ([]User, error) {
	users := make([]User, len(DemoUsers))
	copy(users, DemoUsers)

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "image", "updated_at"}),
	}).Create(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to upsert demo users: %w", err)
	}
	return users, nil
}

// SeedTestData resets interaction and chat tables and populates demo data.
//
// Behavior:
//  1. Clears messages, conversations, matches, passes and likes.
//  2. Upserts the demo users.
//  3. current-user-id and "1" like each other (one match + a conversation).
//     "2" and "3" like current-user-id one way; current-user-id passes on "4".
func SeedTestData(db *gorm.DB) error {
	if err := clearInteractions(db); err != nil {
		return err
	}
	if _, err := UpsertDemoUsers(db); err != nil {
		return err
	}
	slog.Info("seeded demo users", "count", len(DemoUsers))

	likes := []Like{
		{SubjectID: "current-user-id", TargetID: "1"},
		{SubjectID: "1", TargetID: "current-user-id"},
		{SubjectID: "2", TargetID: "current-user-id"},
		{SubjectID: "3", TargetID: "current-user-id"},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&likes).Error; err != nil {
		return fmt.Errorf("failed to seed likes: %w", err)
	}

	pass := Pass{SubjectID: "current-user-id", TargetID: "4"}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&pass).Error; err != nil {
		return fmt.Errorf("failed to seed pass: %w", err)
	}

	u1, u2 := CanonicalPair("current-user-id", "1")
	match := Match{ID: uuid.NewString(), UserID1: u1, UserID2: u2}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&match).Error; err != nil {
		return fmt.Errorf("failed to seed match: %w", err)
	}

	conv := Conversation{
		ID: uuid.NewString(),
		Participants: []ConversationParticipant{
			{UserID: "current-user-id"},
			{UserID: "1"},
		},
	}
	if err := db.Create(&conv).Error; err != nil {
		return fmt.Errorf("failed to seed conversation: %w", err)
	}
	msg := Message{ID: uuid.NewString(), ConversationID: conv.ID, SenderID: "1", Content: "Hey! Want to pair on something this weekend?"}
	if err := db.Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to seed message: %w", err)
	}

	slog.Info("seeded interactions", "likes", len(likes), "matches", 1, "conversations", 1)
	return nil
}

// SeedMinimalTestData wipes everything and inserts three users:
//
//	u1 → u2 like, u2 → u1 like (mutual, match row present)
//	u3 → u1 like (one way)
//	u1 → u3 pass
func SeedMinimalTestData(db *gorm.DB) error {
	if err := clearInteractions(db); err != nil {
		return err
	}
	if err := db.Exec("DELETE FROM users").Error; err != nil {
		return err
	}

	users := []User{
		{ID: "u1", Name: "User One", Email: "u1@test.com"},
		{ID: "u2", Name: "User Two", Email: "u2@test.com"},
		{ID: "u3", Name: "User Three", Email: "u3@test.com"},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	likes := []Like{
		{SubjectID: "u1", TargetID: "u2"},
		{SubjectID: "u2", TargetID: "u1"},
		{SubjectID: "u3", TargetID: "u1"},
	}
	if err := db.Create(&likes).Error; err != nil {
		return err
	}
	if err := db.Create(&Pass{SubjectID: "u1", TargetID: "u3"}).Error; err != nil {
		return err
	}
	return db.Create(&Match{ID: uuid.NewString(), UserID1: "u1", UserID2: "u2"}).Error
}

func clearInteractions(db *gorm.DB) error {
	for _, table := range []string{"messages", "conversation_participants", "conversations", "matches", "passes", "likes"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
