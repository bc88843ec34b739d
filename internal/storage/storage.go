// Package storage is the shared data layer: one relational schema behind a
// Storage interface, plus Redis-backed caches. Every service talks to the
// database through this package only.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sparkmatch/backend/internal/config"
	"sparkmatch/backend/internal/models"
)

// CandidateQuery is the hard-filter half of candidate selection. Ranking
// happens in the discovery service on the rows this query returns.
type CandidateQuery struct {
	ViewerID     int64
	ViewerGender string
	Genders      []string // expanded from the viewer's orientation
	ExcludeIDs   []int64  // interacted, matched, blocked either direction

	AgeMin, AgeMax       int
	HeightMin, HeightMax int
	Goal                 string
	Education            string
	HasChildren          *bool
	WantsChildren        *bool
	Smoking              *bool
	Drinking             *bool
	VerifiedOnly         bool
	NSFWThreshold        float64

	Limit int
}

// SwipeResult is what a single like/superlike/pass produces.
type SwipeResult struct {
	Interaction *models.Interaction
	Match       *models.Match
	MatchIsNew  bool
}

// Storage is the full data-layer contract. Handlers depend on this interface
// so tests can swap in testify mocks.
type Storage interface {
	// Users
	UpsertUserByTelegramID(telegramID int64, username string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	UpdateUser(user *models.User) error
	TouchLastSeen(userID int64) error

	// Profiles
	CreateProfile(profile *models.Profile) error
	GetProfile(userID int64) (*models.Profile, error)
	SaveProfile(profile *models.Profile) error
	ProfileExists(userID int64) (bool, error)

	// Photos
	AddPhoto(photo *models.Photo) error
	ListPhotos(profileUserID int64) ([]models.Photo, error)
	DeletePhoto(profileUserID, photoID int64) error
	ReorderPhotos(profileUserID int64, orderedIDs []int64) error
	SetPrimaryPhoto(profileUserID, photoID int64) error
	HasVisiblePrimaryPhoto(profileUserID int64, nsfwThreshold float64) (bool, error)

	// Discovery
	FindCandidates(q CandidateQuery) ([]models.Profile, error)
	ExcludedTargetIDs(userID int64) ([]int64, error)
	GetInteraction(actorID, targetID int64) (*models.Interaction, error)
	ApplyInteraction(actorID, targetID int64, kind string, compatibility float64) (*SwipeResult, error)
	GetMatchByPair(a, b int64) (*models.Match, error)
	ListMatches(userID int64, limit int, beforeCreatedAt time.Time, beforeID int64) ([]models.Match, error)

	// Favorites
	AddFavorite(userID, targetID int64) (created bool, err error)
	RemoveFavorite(userID, targetID int64) error
	ListFavorites(userID int64) ([]models.Favorite, error)
	CountFavorites(userID int64) (int64, error)

	// Blocks / reports
	CreateBlock(blockerID, blockedID int64) error
	IsBlockedEither(a, b int64) (bool, error)
	CreateReport(report *models.Report) error
	ListOpenReports(limit int) ([]models.Report, error)
	ResolveReport(id int64) error

	// Chat
	GetOrCreateConversation(a, b int64, matchID *int64) (*models.Conversation, error)
	GetConversation(id int64) (*models.Conversation, error)
	ListConversations(userID int64, limit int, beforeUpdatedAt time.Time, beforeID int64) ([]models.Conversation, error)
	CreateMessage(msg *models.Message) error
	GetMessage(id int64) (*models.Message, error)
	ListMessages(conversationID, beforeID int64, limit int) ([]models.Message, error)
	RetractMessage(id int64) error
	AdvanceReadCursor(conversationID, userID, upToMessageID int64) (int64, error)
	UnreadCount(conversationID, userID int64) (int64, error)
	SetConversationBlocked(conversationID, byUserID int64) error

	// Caches
	CachedProfile(userID int64) (*models.Profile, bool)
	StoreCachedProfile(profile *models.Profile)
	InvalidateCachedProfile(userID int64)
	CachedExclusions(userID int64) ([]int64, bool)
	StoreCachedExclusions(userID int64, ids []int64)
	InvalidateExclusions(userID int64)
}

// Service implements Storage on gorm + Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

var _ Storage = (*Service)(nil)

// New connects to Postgres, applies the pool settings from the service
// contract, and wraps the connection together with Redis.
func New(dbURL string, rdb *redis.Client, poolMin, poolMax int, idle time.Duration) (*Service, error) {
	dsn := withStatementTimeout(dbURL, config.DBStatementTimeout)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(poolMin)
	sqlDB.SetMaxOpenConns(poolMax)
	sqlDB.SetConnMaxIdleTime(idle)

	return &Service{DB: db, Redis: rdb, Ctx: context.Background()}, nil
}

// withStatementTimeout bakes the per-statement timeout into the DSN so every
// pooled connection carries it. Handles both URL and keyword/value forms.
func withStatementTimeout(dsn string, timeout time.Duration) string {
	opt := fmt.Sprintf("-c statement_timeout=%d", timeout.Milliseconds())
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		q := u.Query()
		q.Set("options", opt)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return dsn + " options='" + opt + "'"
}

// NewWithDB wraps an existing gorm handle; used by the admin CLI and tests.
func NewWithDB(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb, Ctx: context.Background()}
}
