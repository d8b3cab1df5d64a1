package interaction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oggyb/copal/internal/app"
	"github.com/oggyb/copal/internal/db"
	svcErr "github.com/oggyb/copal/internal/errors"
	"github.com/oggyb/copal/internal/metrics"
	"github.com/oggyb/copal/internal/repository"
	"github.com/oggyb/copal/internal/utils/pagination"
)

const (
	defaultLikedYouLimit = 20
	maxLikedYouLimit     = 100
	rollbackTimeout      = 5 * time.Second
)

// Notifier is told about every newly created match so both participants
// can be alerted. Delivery is best-effort.
type Notifier interface {
	NotifyMatch(ctx context.Context, match *db.Match) error
}

// UserSummary is the public profile slice exposed alongside matches.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

func summarize(u *db.User, fallbackID string) UserSummary {
	if u == nil {
		return UserSummary{ID: fallbackID}
	}
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
}

// LikeResult describes what RecordLike did.
type LikeResult struct {
	Created      bool
	AlreadyLiked bool
	NoOp         bool // one of the users is unknown (demo identity); nothing stored
	IsMatch      bool
	NewMatch     bool
	Match        *db.Match
}

// PassResult describes what RecordPass did.
type PassResult struct {
	Created       bool
	AlreadyPassed bool
	NoOp          bool
}

// MatchView is one entry of ListMatches, seen from the caller's side.
type MatchView struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"createdAt"`
	OtherUser UserSummary `json:"otherUser"`
}

// LikerView is one entry of ListLikedYou.
type LikerView struct {
	User    UserSummary `json:"user"`
	LikedAt time.Time   `json:"likedAt"`
}

// Service is the interaction ledger: likes, passes and matches.
// Correctness under concurrent calls comes from the store's unique keys and
// upserts; the service holds no locks.
type Service struct {
	appCtx       *app.AppContext
	users        *repository.UserRepository
	interactions *repository.InteractionRepository
	notifier     Notifier
}

// NewService creates the ledger with repositories bound to appCtx.DB.
// notifier may be nil.
func NewService(appCtx *app.AppContext, notifier Notifier) *Service {
	return &Service{
		appCtx:       appCtx,
		users:        repository.NewUserRepository(appCtx.DB),
		interactions: repository.NewInteractionRepository(appCtx.DB),
		notifier:     notifier,
	}
}

// RecordLike stores subject → target and materializes a match when target
// already likes subject.
//
// Behavior:
//   - subject == target or an empty id → InvalidOperation.
//   - Unknown user on either side → NoOp result, nothing stored.
//   - Repeat like → AlreadyLiked, no reciprocity re-check.
//   - New like + reciprocal like → match upserted on the canonical pair;
//     the notifier is called when this call created the row.
//   - Failed match check → the new like is deleted again, so a retry
//     re-runs the reciprocity check.
func (s *Service) RecordLike(ctx context.Context, subjectID, targetID string) (*LikeResult, error) {
	log := s.appCtx.Logger.With("op", "RecordLike", "subject", subjectID, "target", targetID)
	log.Debug("RecordLike called")

	if err := validatePair(subjectID, targetID, "cannot like yourself"); err != nil {
		return nil, err
	}

	known, err := s.users.AllExist(ctx, subjectID, targetID)
	if err != nil {
		return nil, svcErr.Unavailable("check users", err)
	}
	if !known {
		log.Warn("unknown user in like, ignoring")
		return &LikeResult{NoOp: true}, nil
	}

	created, err := s.interactions.CreateLike(ctx, subjectID, targetID)
	if err != nil {
		log.Error("CreateLike failed", "err", err)
		return nil, svcErr.Unavailable("create like", err)
	}
	if !created {
		log.Debug("already liked")
		return &LikeResult{AlreadyLiked: true}, nil
	}

	match, newMatch, err := s.interactions.MatchIfMutual(ctx, subjectID, targetID)
	if err != nil {
		log.Error("MatchIfMutual failed, rolling back like", "err", err)
		s.rollbackLike(ctx, subjectID, targetID)
		return nil, svcErr.Unavailable("match check", err)
	}
	metrics.LikesRecorded.Inc()
	s.adjustLikeCount(ctx, subjectID, targetID, 1)

	res := &LikeResult{Created: true, IsMatch: match != nil, NewMatch: newMatch, Match: match}
	if newMatch {
		metrics.MatchesCreated.Inc()
		log.Info("match created", "match_id", match.ID)
		s.notify(ctx, match)
	}
	return res, nil
}

// RecordPass stores subject → target as a pass. Same validation and
// unknown-user handling as RecordLike, without reciprocity.
func (s *Service) RecordPass(ctx context.Context, subjectID, targetID string) (*PassResult, error) {
	log := s.appCtx.Logger.With("op", "RecordPass", "subject", subjectID, "target", targetID)
	log.Debug("RecordPass called")

	if err := validatePair(subjectID, targetID, "cannot pass on yourself"); err != nil {
		return nil, err
	}

	known, err := s.users.AllExist(ctx, subjectID, targetID)
	if err != nil {
		return nil, svcErr.Unavailable("check users", err)
	}
	if !known {
		log.Warn("unknown user in pass, ignoring")
		return &PassResult{NoOp: true}, nil
	}

	created, err := s.interactions.CreatePass(ctx, subjectID, targetID)
	if err != nil {
		log.Error("CreatePass failed", "err", err)
		return nil, svcErr.Unavailable("create pass", err)
	}
	if !created {
		return &PassResult{AlreadyPassed: true}, nil
	}
	metrics.PassesRecorded.Inc()

	// the pass filters target out of subject's liked-you count
	s.invalidateLikeCount(ctx, subjectID)
	return &PassResult{Created: true}, nil
}

// RemoveLike deletes subject → target if present and drops the pair's
// match, since a match cannot exist without both likes.
func (s *Service) RemoveLike(ctx context.Context, subjectID, targetID string) error {
	s.appCtx.Logger.Debug("RemoveLike called", "subject", subjectID, "target", targetID)

	if err := validateIDs(subjectID, targetID); err != nil {
		return err
	}

	deleted, err := s.interactions.DeleteLike(ctx, subjectID, targetID)
	if err != nil {
		return svcErr.Unavailable("remove like", err)
	}
	if deleted {
		s.adjustLikeCount(ctx, subjectID, targetID, -1)
	}
	return nil
}

// RemovePass deletes subject → target if present.
func (s *Service) RemovePass(ctx context.Context, subjectID, targetID string) error {
	s.appCtx.Logger.Debug("RemovePass called", "subject", subjectID, "target", targetID)

	if err := validateIDs(subjectID, targetID); err != nil {
		return err
	}
	if err := s.interactions.DeletePass(ctx, subjectID, targetID); err != nil {
		return svcErr.Unavailable("remove pass", err)
	}
	s.invalidateLikeCount(ctx, subjectID)
	return nil
}

// ListMatches returns the user's matches newest first, each annotated with
// the other participant's profile.
func (s *Service) ListMatches(ctx context.Context, userID string) ([]MatchView, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, svcErr.InvalidOperation("missing required parameter: userId")
	}

	matches, err := s.interactions.ListMatches(ctx, userID)
	if err != nil {
		return nil, svcErr.Unavailable("list matches", err)
	}

	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		other, otherID := m.User2, m.UserID2
		if m.UserID2 == userID {
			other, otherID = m.User1, m.UserID1
		}
		views = append(views, MatchView{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			OtherUser: summarize(other, otherID),
		})
	}

	s.appCtx.Logger.Debug("ListMatches result", "user", userID, "count", len(views))
	return views, nil
}

// CountLikedYou returns how many users liked userID, excluding users that
// userID passed.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:<userID>).
//  2. On miss, falls back to DB via repository.CountLikers.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountLikedYou(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, svcErr.InvalidOperation("missing required parameter: userId")
	}

	rc := s.appCtx.RedisCache
	if rc != nil {
		if n, ok, err := rc.GetLikeCount(ctx, userID); err == nil && ok {
			return n, nil
		}
	}

	count, err := s.interactions.CountLikers(ctx, userID)
	if err != nil {
		return 0, svcErr.Unavailable("count likers", err)
	}

	if rc != nil {
		_ = rc.UpdateLikeCount(ctx, userID, count)
	}
	return count, nil
}

// ListLikedYou returns users who liked userID, newest first, excluding users
// userID passed. Pass the returned token back to fetch the next page.
func (s *Service) ListLikedYou(ctx context.Context, userID, token string, limit int) ([]LikerView, *string, error) {
	return s.listLikers(ctx, userID, token, limit, s.interactions.GetLikers)
}

// ListNewLikedYou is ListLikedYou without the users userID already liked
// back.
func (s *Service) ListNewLikedYou(ctx context.Context, userID, token string, limit int) ([]LikerView, *string, error) {
	return s.listLikers(ctx, userID, token, limit, s.interactions.GetNewLikers)
}

type likersFunc func(ctx context.Context, targetID, token string, limit int) ([]db.Like, *string, error)

func (s *Service) listLikers(ctx context.Context, userID, token string, limit int, fetch likersFunc) ([]LikerView, *string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil, svcErr.InvalidOperation("missing required parameter: userId")
	}
	if limit <= 0 {
		limit = defaultLikedYouLimit
	}
	if limit > maxLikedYouLimit {
		limit = maxLikedYouLimit
	}

	likes, next, err := fetch(ctx, userID, token, limit)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidToken) {
			return nil, nil, svcErr.InvalidOperation("invalid pagination token")
		}
		return nil, nil, svcErr.Unavailable("list likers", err)
	}

	ids := make([]string, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.SubjectID)
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, svcErr.Unavailable("load likers", err)
	}

	out := make([]LikerView, 0, len(likes))
	for _, l := range likes {
		var u *db.User
		if found, ok := users[l.SubjectID]; ok {
			u = &found
		}
		out = append(out, LikerView{User: summarize(u, l.SubjectID), LikedAt: l.CreatedAt})
	}
	return out, next, nil
}

// userSummary loads one profile. Lookup failures fall back to the bare id.
func (s *Service) userSummary(ctx context.Context, userID string) UserSummary {
	users, err := s.users.GetByIDs(ctx, []string{userID})
	if err != nil {
		s.appCtx.Logger.Warn("user lookup failed", "user", userID, "err", err)
		return summarize(nil, userID)
	}
	if u, ok := users[userID]; ok {
		return summarize(&u, userID)
	}
	return summarize(nil, userID)
}

func (s *Service) notify(ctx context.Context, match *db.Match) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyMatch(ctx, match); err != nil {
		s.appCtx.Logger.Warn("match notification failed", "match_id", match.ID, "err", err)
	}
}

func (s *Service) rollbackLike(ctx context.Context, subjectID, targetID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if _, err := s.interactions.DeleteLike(ctx, subjectID, targetID); err != nil {
		s.appCtx.Logger.Error("like rollback failed", "subject", subjectID, "target", targetID, "err", err)
	}
}

// adjustLikeCount moves targetID's cached liked-you count by delta, unless
// targetID passed likerID (those likes are not counted).
func (s *Service) adjustLikeCount(ctx context.Context, likerID, targetID string, delta int64) {
	if s.appCtx.RedisCache == nil {
		return
	}
	passed, err := s.interactions.HasPassed(ctx, targetID, likerID)
	if err != nil {
		s.invalidateLikeCount(ctx, targetID)
		return
	}
	if passed {
		return
	}
	if err := s.appCtx.RedisCache.AdjustLikeCount(ctx, targetID, delta); err != nil {
		s.appCtx.Logger.Warn("like count update failed", "user", targetID, "err", err)
	}
}

func (s *Service) invalidateLikeCount(ctx context.Context, userID string) {
	if s.appCtx.RedisCache == nil {
		return
	}
	rc := s.appCtx.RedisCache
	if err := rc.Del(ctx, rc.KeyForLikeCount(userID)); err != nil {
		s.appCtx.Logger.Warn("like count invalidation failed", "user", userID, "err", err)
	}
}

func validateIDs(subjectID, targetID string) error {
	if strings.TrimSpace(subjectID) == "" || strings.TrimSpace(targetID) == "" {
		return svcErr.InvalidOperation("missing required fields: user ids")
	}
	return nil
}

func validatePair(subjectID, targetID, selfMsg string) error {
	if err := validateIDs(subjectID, targetID); err != nil {
		return err
	}
	if subjectID == targetID {
		return svcErr.InvalidOperation(selfMsg)
	}
	return nil
}
