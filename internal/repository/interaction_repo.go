package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/copal/internal/db"
	"github.com/oggyb/copal/internal/utils/pagination"
)

// InteractionRepository provides data access for likes, passes and matches.
// Uniqueness is enforced by the schema (composite PKs and idx_match_pair),
// never by in-process locks.
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new repository bound to the given DB connection.
func NewInteractionRepository(database *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: database}
}

// CreateLike inserts subject → target.
//
// Behavior:
//   - Returns created = false when the pair already exists (no error, no duplicate).
//   - The insert commits on its own so a concurrent reciprocity check can see it.
func (r *InteractionRepository) CreateLike(ctx context.Context, subjectID, targetID string) (bool, error) {
	like := db.Like{SubjectID: subjectID, TargetID: targetID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}, {Name: "target_id"}},
			DoNothing: true,
		}).
		Create(&like)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreatePass inserts subject → target as a pass. Same semantics as CreateLike.
func (r *InteractionRepository) CreatePass(ctx context.Context, subjectID, targetID string) (bool, error) {
	pass := db.Pass{SubjectID: subjectID, TargetID: targetID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}, {Name: "target_id"}},
			DoNothing: true,
		}).
		Create(&pass)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MatchIfMutual checks for target → subject and, if present, upserts the
// match for the canonical pair. Both steps run in one transaction.
//
// Behavior:
//   - No reciprocal like → (nil, false, nil).
//   - Reciprocal like → the match row, created = true only for the writer
//     whose insert landed. A concurrent writer for the opposite direction
//     hits the unique pair and reads the existing row instead.
func (r *InteractionRepository) MatchIfMutual(ctx context.Context, subjectID, targetID string) (*db.Match, bool, error) {
	var (
		match   *db.Match
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&db.Like{}).
			Where("subject_id = ? AND target_id = ?", targetID, subjectID).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		u1, u2 := db.CanonicalPair(subjectID, targetID)
		row := db.Match{ID: uuid.NewString(), UserID1: u1, UserID2: u2}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id1"}, {Name: "user_id2"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0

		var existing db.Match
		if err := tx.Where("user_id1 = ? AND user_id2 = ?", u1, u2).First(&existing).Error; err != nil {
			return err
		}
		match = &existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return match, created, nil
}

// DeleteLike removes subject → target together with the pair's match, if any.
// A match cannot outlive either of its likes. Returns whether a like row
// was deleted.
func (r *InteractionRepository) DeleteLike(ctx context.Context, subjectID, targetID string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("subject_id = ? AND target_id = ?", subjectID, targetID).Delete(&db.Like{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0

		u1, u2 := db.CanonicalPair(subjectID, targetID)
		return tx.Where("user_id1 = ? AND user_id2 = ?", u1, u2).Delete(&db.Match{}).Error
	})
	return deleted, err
}

// DeletePass removes subject → target. Absent rows are not an error.
func (r *InteractionRepository) DeletePass(ctx context.Context, subjectID, targetID string) error {
	return r.db.WithContext(ctx).
		Where("subject_id = ? AND target_id = ?", subjectID, targetID).
		Delete(&db.Pass{}).Error
}

// HasPassed checks whether subject has passed on target.
func (r *InteractionRepository) HasPassed(ctx context.Context, subjectID, targetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Pass{}).
		Where("subject_id = ? AND target_id = ?", subjectID, targetID).
		Count(&count).Error
	return count > 0, err
}

// ListMatches returns every match userID takes part in, newest first, with
// both participants preloaded.
func (r *InteractionRepository) ListMatches(ctx context.Context, userID string) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Preload("User1").
		Preload("User2").
		Where("user_id1 = ? OR user_id2 = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}

// GetLikers returns likes received by targetID.
//
// Behavior:
//   - Excludes users that targetID explicitly passed.
//   - Ordered by created_at DESC, subject_id DESC.
//   - Supports cursor-based pagination via paginationToken.
func (r *InteractionRepository) GetLikers(
	ctx context.Context,
	targetID string,
	paginationToken string,
	limit int,
) ([]db.Like, *string, error) {
	return r.pageLikers(r.likersQuery(ctx, targetID), paginationToken, limit)
}

// GetNewLikers is GetLikers minus the users targetID already liked back,
// i.e. likes still waiting for a decision.
func (r *InteractionRepository) GetNewLikers(
	ctx context.Context,
	targetID string,
	paginationToken string,
	limit int,
) ([]db.Like, *string, error) {
	query := r.likersQuery(ctx, targetID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM likes back
				WHERE back.subject_id = ?
				  AND back.target_id = l.subject_id
			)`, targetID)
	return r.pageLikers(query, paginationToken, limit)
}

func (r *InteractionRepository) pageLikers(query *gorm.DB, paginationToken string, limit int) ([]db.Like, *string, error) {
	var likes []db.Like

	cursor, err := pagination.Decode(paginationToken)
	if err != nil {
		return nil, nil, err
	}

	query = query.
		Order("l.created_at DESC, l.subject_id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := time.Unix(0, cursor.CreatedNano).UTC()
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.subject_id < ?))",
			ts, ts, cursor.UserID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			UserID:      last.SubjectID,
			CreatedNano: last.CreatedAt.UnixNano(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountLikers returns how many users liked targetID, excluding those
// targetID passed. Redis holds the cached value; this is the fallback.
func (r *InteractionRepository) CountLikers(ctx context.Context, targetID string) (int64, error) {
	var count int64
	err := r.likersQuery(ctx, targetID).Count(&count).Error
	return count, err
}

func (r *InteractionRepository) likersQuery(ctx context.Context, targetID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("likes l").
		Where("l.target_id = ?", targetID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM passes p
				WHERE p.subject_id = ?
				  AND p.target_id = l.subject_id
			)`, targetID)
}
