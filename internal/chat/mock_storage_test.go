package chat

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"sparkmatch/backend/internal/models"
	"sparkmatch/backend/internal/storage"
)

// mockStorage is a testify mock of the full data-layer contract. Tests only
// set expectations on the methods they exercise.
type mockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*mockStorage)(nil)

func (m *mockStorage) UpsertUserByTelegramID(telegramID int64, username string) (*models.User, error) {
	args := m.Called(telegramID, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockStorage) GetUserByID(id int64) (*models.User, error) {
	args := m.Called(id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockStorage) UpdateUser(user *models.User) error {
	return m.Called(user).Error(0)
}

func (m *mockStorage) TouchLastSeen(userID int64) error {
	return m.Called(userID).Error(0)
}

func (m *mockStorage) CreateProfile(profile *models.Profile) error {
	return m.Called(profile).Error(0)
}

func (m *mockStorage) GetProfile(userID int64) (*models.Profile, error) {
	args := m.Called(userID)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

func (m *mockStorage) SaveProfile(profile *models.Profile) error {
	return m.Called(profile).Error(0)
}

func (m *mockStorage) ProfileExists(userID int64) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) AddPhoto(photo *models.Photo) error {
	return m.Called(photo).Error(0)
}

func (m *mockStorage) ListPhotos(profileUserID int64) ([]models.Photo, error) {
	args := m.Called(profileUserID)
	photos, _ := args.Get(0).([]models.Photo)
	return photos, args.Error(1)
}

func (m *mockStorage) DeletePhoto(profileUserID, photoID int64) error {
	return m.Called(profileUserID, photoID).Error(0)
}

func (m *mockStorage) ReorderPhotos(profileUserID int64, orderedIDs []int64) error {
	return m.Called(profileUserID, orderedIDs).Error(0)
}

func (m *mockStorage) SetPrimaryPhoto(profileUserID, photoID int64) error {
	return m.Called(profileUserID, photoID).Error(0)
}

func (m *mockStorage) HasVisiblePrimaryPhoto(profileUserID int64, nsfwThreshold float64) (bool, error) {
	args := m.Called(profileUserID, nsfwThreshold)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) FindCandidates(q storage.CandidateQuery) ([]models.Profile, error) {
	args := m.Called(q)
	profiles, _ := args.Get(0).([]models.Profile)
	return profiles, args.Error(1)
}

func (m *mockStorage) ExcludedTargetIDs(userID int64) ([]int64, error) {
	args := m.Called(userID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *mockStorage) GetInteraction(actorID, targetID int64) (*models.Interaction, error) {
	args := m.Called(actorID, targetID)
	inter, _ := args.Get(0).(*models.Interaction)
	return inter, args.Error(1)
}

func (m *mockStorage) ApplyInteraction(actorID, targetID int64, kind string, compatibility float64) (*storage.SwipeResult, error) {
	args := m.Called(actorID, targetID, kind, compatibility)
	res, _ := args.Get(0).(*storage.SwipeResult)
	return res, args.Error(1)
}

func (m *mockStorage) GetMatchByPair(a, b int64) (*models.Match, error) {
	args := m.Called(a, b)
	match, _ := args.Get(0).(*models.Match)
	return match, args.Error(1)
}

func (m *mockStorage) ListMatches(userID int64, limit int, beforeCreatedAt time.Time, beforeID int64) ([]models.Match, error) {
	args := m.Called(userID, limit, beforeCreatedAt, beforeID)
	matches, _ := args.Get(0).([]models.Match)
	return matches, args.Error(1)
}

func (m *mockStorage) AddFavorite(userID, targetID int64) (bool, error) {
	args := m.Called(userID, targetID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) RemoveFavorite(userID, targetID int64) error {
	return m.Called(userID, targetID).Error(0)
}

func (m *mockStorage) ListFavorites(userID int64) ([]models.Favorite, error) {
	args := m.Called(userID)
	favs, _ := args.Get(0).([]models.Favorite)
	return favs, args.Error(1)
}

func (m *mockStorage) CountFavorites(userID int64) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStorage) CreateBlock(blockerID, blockedID int64) error {
	return m.Called(blockerID, blockedID).Error(0)
}

func (m *mockStorage) IsBlockedEither(a, b int64) (bool, error) {
	args := m.Called(a, b)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) CreateReport(report *models.Report) error {
	return m.Called(report).Error(0)
}

func (m *mockStorage) ListOpenReports(limit int) ([]models.Report, error) {
	args := m.Called(limit)
	reports, _ := args.Get(0).([]models.Report)
	return reports, args.Error(1)
}

func (m *mockStorage) ResolveReport(id int64) error {
	return m.Called(id).Error(0)
}

func (m *mockStorage) GetOrCreateConversation(a, b int64, matchID *int64) (*models.Conversation, error) {
	args := m.Called(a, b, matchID)
	conv, _ := args.Get(0).(*models.Conversation)
	return conv, args.Error(1)
}

func (m *mockStorage) GetConversation(id int64) (*models.Conversation, error) {
	args := m.Called(id)
	conv, _ := args.Get(0).(*models.Conversation)
	return conv, args.Error(1)
}

func (m *mockStorage) ListConversations(userID int64, limit int, beforeUpdatedAt time.Time, beforeID int64) ([]models.Conversation, error) {
	args := m.Called(userID, limit, beforeUpdatedAt, beforeID)
	convs, _ := args.Get(0).([]models.Conversation)
	return convs, args.Error(1)
}

func (m *mockStorage) CreateMessage(msg *models.Message) error {
	return m.Called(msg).Error(0)
}

func (m *mockStorage) GetMessage(id int64) (*models.Message, error) {
	args := m.Called(id)
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}

func (m *mockStorage) ListMessages(conversationID, beforeID int64, limit int) ([]models.Message, error) {
	args := m.Called(conversationID, beforeID, limit)
	msgs, _ := args.Get(0).([]models.Message)
	return msgs, args.Error(1)
}

func (m *mockStorage) RetractMessage(id int64) error {
	return m.Called(id).Error(0)
}

func (m *mockStorage) AdvanceReadCursor(conversationID, userID, upToMessageID int64) (int64, error) {
	args := m.Called(conversationID, userID, upToMessageID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStorage) UnreadCount(conversationID, userID int64) (int64, error) {
	args := m.Called(conversationID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStorage) SetConversationBlocked(conversationID, byUserID int64) error {
	return m.Called(conversationID, byUserID).Error(0)
}

func (m *mockStorage) CachedProfile(userID int64) (*models.Profile, bool) {
	args := m.Called(userID)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Bool(1)
}

func (m *mockStorage) StoreCachedProfile(profile *models.Profile) {
	m.Called(profile)
}

func (m *mockStorage) InvalidateCachedProfile(userID int64) {
	m.Called(userID)
}

func (m *mockStorage) CachedExclusions(userID int64) ([]int64, bool) {
	args := m.Called(userID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Bool(1)
}

func (m *mockStorage) StoreCachedExclusions(userID int64, ids []int64) {
	m.Called(userID, ids)
}

func (m *mockStorage) InvalidateExclusions(userID int64) {
	m.Called(userID)
}

// mockPublisher records published relay events.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, evt models.Event) error {
	return m.Called(ctx, evt).Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}
