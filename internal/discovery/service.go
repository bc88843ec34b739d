package discovery

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/config"
	"sparkmatch/backend/internal/events"
	"sparkmatch/backend/internal/models"
	"sparkmatch/backend/internal/profile"
	"sparkmatch/backend/internal/storage"
)

// Service implements candidate ranking, swipe ingestion, match detection,
// and favorites on top of the shared data layer.
type Service struct {
	Storage       storage.Storage
	Events        events.Publisher
	NSFWThreshold float64
	Log           zerolog.Logger
}

func NewService(s storage.Storage, pub events.Publisher, nsfwThreshold float64, log zerolog.Logger) *Service {
	return &Service{Storage: s, Events: pub, NSFWThreshold: nsfwThreshold, Log: log}
}

// CandidatesParams are the hard filters and paging inputs of a candidate
// request.
type CandidatesParams struct {
	Limit  int
	Cursor string

	AgeMin, AgeMax       int
	HeightMin, HeightMax int
	Goal                 string
	Education            string
	HasChildren          *bool
	WantsChildren        *bool
	Smoking              *bool
	Drinking             *bool
	VerifiedOnly         bool
	MaxDistanceKm        float64
}

// CandidateView is one ranked discovery result.
type CandidateView struct {
	profile.View
	Score      float64  `json:"score"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Candidates returns the next ranked page for the user. Ranking order is
// score descending with user_id descending as the tie-break, so the cursor
// point is total.
func (s *Service) Candidates(userID int64, p CandidatesParams) ([]CandidateView, string, error) {
	viewer, err := s.Storage.GetProfile(userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", api.Validation(map[string]string{"profile": "create a profile before discovering"})
	}
	if err != nil {
		return nil, "", err
	}
	if !viewer.IsComplete {
		return nil, "", api.Validation(map[string]string{"profile": "profile must be complete"})
	}
	// Pulling the feed is the activity signal the freshness term ranks on.
	if err := s.Storage.TouchLastSeen(userID); err != nil {
		s.Log.Debug().Err(err).Int64("user_id", userID).Msg("touch last seen")
	}

	limit := p.Limit
	if limit <= 0 {
		limit = config.DefaultPageSize
	}
	if limit > config.MaxPageSize {
		limit = config.MaxPageSize
	}

	excluded, ok := s.Storage.CachedExclusions(userID)
	if !ok {
		excluded, err = s.Storage.ExcludedTargetIDs(userID)
		if err != nil {
			return nil, "", err
		}
		s.Storage.StoreCachedExclusions(userID, excluded)
	}

	genders := models.Genders
	if viewer.Orientation != "any" {
		genders = []string{viewer.Orientation}
	}

	rows, err := s.Storage.FindCandidates(storage.CandidateQuery{
		ViewerID:      userID,
		ViewerGender:  viewer.Gender,
		Genders:       genders,
		ExcludeIDs:    excluded,
		AgeMin:        p.AgeMin,
		AgeMax:        p.AgeMax,
		HeightMin:     p.HeightMin,
		HeightMax:     p.HeightMax,
		Goal:          p.Goal,
		Education:     p.Education,
		HasChildren:   p.HasChildren,
		WantsChildren: p.WantsChildren,
		Smoking:       p.Smoking,
		Drinking:      p.Drinking,
		VerifiedOnly:  p.VerifiedOnly,
		NSFWThreshold: s.NSFWThreshold,
	})
	if err != nil {
		return nil, "", err
	}

	now := time.Now()

	type scored struct {
		profile *models.Profile
		score   float64
		distKm  *float64
	}
	ranked := make([]scored, 0, len(rows))
	for i := range rows {
		cand := &rows[i]
		var distKm *float64
		if viewer.Lat != nil && viewer.Lon != nil && cand.Lat != nil && cand.Lon != nil {
			d := HaversineKm(*viewer.Lat, *viewer.Lon, *cand.Lat, *cand.Lon)
			if p.MaxDistanceKm > 0 && d > p.MaxDistanceKm {
				continue
			}
			distKm = &d
		}
		ranked = append(ranked, scored{
			profile: cand,
			score:   Score(viewer, cand, cand.OwnerLastSeen, p.MaxDistanceKm, now),
			distKm:  distKm,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].profile.UserID > ranked[j].profile.UserID
	})

	if p.Cursor != "" {
		afterScore, afterID, err := decodeCandidateCursor(p.Cursor)
		if err != nil {
			return nil, "", api.Validation(map[string]string{"cursor": "malformed"})
		}
		cut := sort.Search(len(ranked), func(i int) bool {
			if ranked[i].score != afterScore {
				return ranked[i].score < afterScore
			}
			return ranked[i].profile.UserID < afterID
		})
		ranked = ranked[cut:]
	}

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]CandidateView, 0, len(ranked))
	for _, r := range ranked {
		view := CandidateView{
			View:  profile.NewView(r.profile, userID, s.NSFWThreshold, now),
			Score: r.score,
		}
		if r.distKm != nil && !r.profile.HideDistance {
			view.DistanceKm = r.distKm
		}
		out = append(out, view)
	}

	nextCursor := ""
	if len(ranked) == limit && limit > 0 {
		last := ranked[len(ranked)-1]
		nextCursor = encodeCandidateCursor(last.score, last.profile.UserID)
	}
	return out, nextCursor, nil
}

// SwipeResponse is the like/pass response body.
type SwipeResponse struct {
	Success         bool   `json:"success"`
	Matched         bool   `json:"matched"`
	MatchID         *int64 `json:"match_id,omitempty"`
	InteractionKind string `json:"interaction_kind"`
}

// Swipe records an interaction and, for likes, runs the mutuality check.
// Matched is true whenever a match row is visible at commit time, whether it
// was created by this request or an earlier one.
func (s *Service) Swipe(ctx context.Context, actorID, targetID int64, kind string) (*SwipeResponse, error) {
	if actorID == targetID {
		return nil, api.Validation(map[string]string{"target_id": "cannot act on yourself"})
	}

	target, err := s.Storage.GetUserByID(targetID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, api.NotFound("target user not found")
	}
	if err != nil {
		return nil, err
	}
	if target.IsBlocked {
		return nil, api.NotFound("target user not found")
	}

	blocked, err := s.Storage.IsBlockedEither(actorID, targetID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, api.Forbidden("interaction not allowed")
	}

	compatibility := s.compatibility(actorID, targetID)

	result, err := s.Storage.ApplyInteraction(actorID, targetID, kind, compatibility)
	if err != nil {
		return nil, err
	}
	s.Storage.InvalidateExclusions(actorID)

	resp := &SwipeResponse{
		Success:         true,
		Matched:         result.Match != nil,
		InteractionKind: result.Interaction.Kind,
	}
	if result.Match != nil {
		resp.MatchID = &result.Match.ID
	}

	if result.MatchIsNew {
		s.onMatchCreated(ctx, actorID, target, result.Match)
	}
	return resp, nil
}

// onMatchCreated opens the conversation for the pair and notifies both
// participants through the relay queue. Failures here never fail the swipe;
// the match is already committed.
func (s *Service) onMatchCreated(ctx context.Context, actorID int64, target *models.User, match *models.Match) {
	if _, err := s.Storage.GetOrCreateConversation(match.User1ID, match.User2ID, &match.ID); err != nil {
		s.Log.Error().Err(err).Int64("match_id", match.ID).Msg("open conversation for match")
	}

	actor, err := s.Storage.GetUserByID(actorID)
	if err != nil {
		s.Log.Error().Err(err).Int64("user_id", actorID).Msg("load actor for match event")
		return
	}
	actorName, targetName := s.displayName(actorID), s.displayName(target.ID)

	for _, pair := range []struct {
		recipient *models.User
		other     *models.User
		otherName string
	}{
		{recipient: target, other: actor, otherName: actorName},
		{recipient: actor, other: target, otherName: targetName},
	} {
		evt := models.Event{
			ID:                  ulid.Make().String(),
			Kind:                models.EventMatchCreated,
			RecipientUserID:     pair.recipient.ID,
			RecipientTelegramID: pair.recipient.TelegramID,
			ActorUserID:         pair.other.ID,
			ActorName:           pair.otherName,
			MatchID:             match.ID,
			CreatedAt:           time.Now(),
		}
		if err := s.Events.Publish(ctx, evt); err != nil {
			s.Log.Error().Err(err).Str("event_id", evt.ID).Msg("publish match event")
		}
	}
}

func (s *Service) compatibility(a, b int64) float64 {
	pa, err := s.Storage.GetProfile(a)
	if err != nil {
		return 0
	}
	pb, err := s.Storage.GetProfile(b)
	if err != nil {
		return 0
	}
	return Score(pa, pb, time.Now(), 0, time.Now())
}

func (s *Service) displayName(userID int64) string {
	if p, ok := s.Storage.CachedProfile(userID); ok {
		return p.Name
	}
	p, err := s.Storage.GetProfile(userID)
	if err != nil {
		return ""
	}
	s.Storage.StoreCachedProfile(p)
	return p.Name
}

// MatchView is one row of the matches listing.
type MatchView struct {
	MatchID            int64         `json:"match_id"`
	CreatedAt          time.Time     `json:"created_at"`
	CompatibilityScore float64       `json:"compatibility_score"`
	User               *profile.View `json:"user,omitempty"`
}

// Matches pages the user's matches newest-first with the counterparty
// profile joined in.
func (s *Service) Matches(userID int64, limit int, cursor string) ([]MatchView, string, error) {
	if limit <= 0 {
		limit = config.DefaultPageSize
	}
	if limit > config.MaxPageSize {
		limit = config.MaxPageSize
	}

	var beforeAt time.Time
	var beforeID int64
	if cursor != "" {
		var err error
		beforeAt, beforeID, err = decodeTimeCursor(cursor)
		if err != nil {
			return nil, "", api.Validation(map[string]string{"cursor": "malformed"})
		}
	}

	matches, err := s.Storage.ListMatches(userID, limit, beforeAt, beforeID)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	out := make([]MatchView, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		view := MatchView{
			MatchID:            m.ID,
			CreatedAt:          m.CreatedAt,
			CompatibilityScore: m.CompatibilityScore,
		}
		if p := s.counterpartyProfile(m.Counterparty(userID)); p != nil {
			pv := profile.NewView(p, userID, s.NSFWThreshold, now)
			view.User = &pv
		}
		out = append(out, view)
	}

	nextCursor := ""
	if len(matches) == limit && limit > 0 {
		last := matches[len(matches)-1]
		nextCursor = encodeTimeCursor(last.CreatedAt, last.ID)
	}
	return out, nextCursor, nil
}

// counterpartyProfile reads through the 5-minute Redis cache.
func (s *Service) counterpartyProfile(userID int64) *models.Profile {
	if p, ok := s.Storage.CachedProfile(userID); ok {
		return p
	}
	p, err := s.Storage.GetProfile(userID)
	if err != nil {
		return nil
	}
	s.Storage.StoreCachedProfile(p)
	return p
}

// AddFavorite bookmarks a target; repeats are no-ops. The per-user cap is a
// hard 422.
func (s *Service) AddFavorite(userID, targetID int64) error {
	if userID == targetID {
		return api.Validation(map[string]string{"target_id": "cannot favorite yourself"})
	}
	if _, err := s.Storage.GetUserByID(targetID); errors.Is(err, storage.ErrNotFound) {
		return api.NotFound("target user not found")
	} else if err != nil {
		return err
	}

	count, err := s.Storage.CountFavorites(userID)
	if err != nil {
		return err
	}
	if count >= config.MaxFavorites {
		return api.Validation(map[string]string{"favorites": "favorite limit reached"})
	}
	_, err = s.Storage.AddFavorite(userID, targetID)
	return err
}

func (s *Service) RemoveFavorite(userID, targetID int64) error {
	return s.Storage.RemoveFavorite(userID, targetID)
}

// FavoriteView is one row of the favorites listing.
type FavoriteView struct {
	TargetID  int64         `json:"target_id"`
	CreatedAt time.Time     `json:"created_at"`
	User      *profile.View `json:"user,omitempty"`
}

func (s *Service) Favorites(userID int64) ([]FavoriteView, error) {
	favs, err := s.Storage.ListFavorites(userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]FavoriteView, 0, len(favs))
	for i := range favs {
		view := FavoriteView{TargetID: favs[i].TargetID, CreatedAt: favs[i].CreatedAt}
		if p := s.counterpartyProfile(favs[i].TargetID); p != nil {
			pv := profile.NewView(p, userID, s.NSFWThreshold, now)
			view.User = &pv
		}
		out = append(out, view)
	}
	return out, nil
}
