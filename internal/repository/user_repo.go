package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/copal/internal/db"
)

// UserRepository reads identity rows. Users are created by onboarding; the
// core never mutates them.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// AllExist reports whether every given id has a persisted user row.
// Duplicate ids are counted once.
func (r *UserRepository) AllExist(ctx context.Context, ids ...string) (bool, error) {
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	keys := make([]string, 0, len(unique))
	for id := range unique {
		keys = append(keys, id)
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id IN ?", keys).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == int64(len(keys)), nil
}

// GetByIDs loads users keyed by id. Missing ids are simply absent.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]db.User, error) {
	out := make(map[string]db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
