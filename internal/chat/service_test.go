package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/chathub"
	"sparkmatch/backend/internal/models"
)

// fakeSession implements chathub.Client for fan-out assertions.
type fakeSession struct {
	mu     sync.Mutex
	userID int64
	frames [][]byte
}

func (f *fakeSession) UserID() int64 { return f.userID }

func (f *fakeSession) Enqueue(frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return true
}

func (f *fakeSession) Close(code int, reason string) {}

func (f *fakeSession) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.frames...)
}

type fixture struct {
	service *Service
	store   *mockStorage
	pub     *mockPublisher
	manager *chathub.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := new(mockStorage)
	pub := new(mockPublisher)
	manager := chathub.NewManager(zerolog.Nop())
	bridge := chathub.NewBridge(manager, nil, zerolog.Nop())
	return &fixture{
		service: NewService(store, manager, bridge, pub, zerolog.Nop()),
		store:   store,
		pub:     pub,
		manager: manager,
	}
}

func conversationFixture() *models.Conversation {
	matchID := int64(4)
	return &models.Conversation{ID: 7, User1ID: 1, User2ID: 2, MatchID: &matchID}
}

func TestSendRejectsEmptyText(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.Send(context.Background(), 1, 7, "   ")

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.CodeValidation, apiErr.Code)
}

func TestSendRejectsNonParticipant(t *testing.T) {
	fx := newFixture(t)
	fx.store.On("GetConversation", int64(7)).Return(conversationFixture(), nil)

	_, err := fx.service.Send(context.Background(), 99, 7, "hi")

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.CodeForbidden, apiErr.Code)
}

func TestSendRejectsBlockedConversation(t *testing.T) {
	fx := newFixture(t)
	blocker := int64(2)
	conv := conversationFixture()
	conv.BlockedBy = &blocker
	fx.store.On("GetConversation", int64(7)).Return(conv, nil)

	_, err := fx.service.Send(context.Background(), 1, 7, "hi")

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.CodeBlockedUser, apiErr.Code)
}

func TestSendToUnmatchedConversationNeedsOptIn(t *testing.T) {
	fx := newFixture(t)
	conv := conversationFixture()
	conv.MatchID = nil
	fx.store.On("GetConversation", int64(7)).Return(conv, nil)
	fx.store.On("IsBlockedEither", int64(1), int64(2)).Return(false, nil)
	fx.store.On("CachedProfile", int64(2)).
		Return(&models.Profile{UserID: 2, AllowMessagesFrom: "matches"}, true)

	_, err := fx.service.Send(context.Background(), 1, 7, "hi")

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.CodeForbidden, apiErr.Code)
}

func TestSendFansOutToBothParticipants(t *testing.T) {
	fx := newFixture(t)
	fx.store.On("GetConversation", int64(7)).Return(conversationFixture(), nil)
	fx.store.On("IsBlockedEither", int64(1), int64(2)).Return(false, nil)
	fx.store.On("CreateMessage", mock.AnythingOfType("*models.Message")).
		Run(func(args mock.Arguments) {
			args.Get(0).(*models.Message).ID = 100
		}).Return(nil)

	senderPhone := &fakeSession{userID: 1}
	senderLaptop := &fakeSession{userID: 1}
	recipient := &fakeSession{userID: 2}
	fx.manager.Register(senderPhone)
	fx.manager.Register(senderLaptop)
	fx.manager.Register(recipient)

	view, err := fx.service.Send(context.Background(), 1, 7, "hello there")
	require.NoError(t, err)
	assert.Equal(t, int64(100), view.ID)

	// Recipient is online, so no relay event.
	fx.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)

	for _, session := range []*fakeSession{senderPhone, senderLaptop, recipient} {
		frames := session.received()
		require.Len(t, frames, 1)
		var frame models.MessageCreatedFrame
		require.NoError(t, json.Unmarshal(frames[0], &frame))
		assert.Equal(t, models.FrameMessageCreated, frame.Type)
		assert.Equal(t, "hello there", frame.Message.Content)
	}
}

func TestSendQueuesRelayEventForOfflineRecipient(t *testing.T) {
	fx := newFixture(t)
	fx.store.On("GetConversation", int64(7)).Return(conversationFixture(), nil)
	fx.store.On("IsBlockedEither", int64(1), int64(2)).Return(false, nil)
	fx.store.On("CreateMessage", mock.AnythingOfType("*models.Message")).
		Run(func(args mock.Arguments) {
			args.Get(0).(*models.Message).ID = 101
		}).Return(nil)
	fx.store.On("GetUserByID", int64(2)).
		Return(&models.User{ID: 2, TelegramID: 555}, nil)
	fx.store.On("CachedProfile", int64(1)).
		Return(&models.Profile{UserID: 1, Name: "Olena"}, true)
	fx.pub.On("Publish", mock.Anything, mock.MatchedBy(func(evt models.Event) bool {
		return evt.Kind == models.EventMessageSent &&
			evt.RecipientTelegramID == 555 &&
			evt.ActorName == "Olena" &&
			evt.MessageID == 101
	})).Return(nil)

	_, err := fx.service.Send(context.Background(), 1, 7, "are you there?")
	require.NoError(t, err)

	fx.pub.AssertExpectations(t)
}

func TestConversationsIncludeCounterpartySummary(t *testing.T) {
	fx := newFixture(t)
	fx.store.On("ListConversations", int64(1), 10, mock.Anything, mock.Anything).
		Return([]models.Conversation{*conversationFixture()}, nil)
	fx.store.On("CachedProfile", int64(2)).
		Return(&models.Profile{
			UserID: 2,
			Name:   "Olena",
			Photos: []models.Photo{
				{URL: "https://cdn.example/rejected.jpg", IsPrimary: true, Status: models.PhotoRejected},
				{URL: "https://cdn.example/olena.jpg", IsPrimary: true, Status: models.PhotoApproved},
			},
		}, true)
	fx.store.On("UnreadCount", int64(7), int64(1)).Return(int64(3), nil)
	fx.store.On("ListMessages", int64(7), int64(0), 1).Return([]models.Message(nil), nil)

	views, err := fx.service.Conversations(1, 10, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, views, 1)

	require.NotNil(t, views[0].Counterparty)
	assert.Equal(t, int64(2), views[0].Counterparty.UserID)
	assert.Equal(t, "Olena", views[0].Counterparty.Name)
	assert.Equal(t, "https://cdn.example/olena.jpg", views[0].Counterparty.PhotoURL)
	assert.Equal(t, int64(3), views[0].UnreadCount)
}

func TestHandleFrameAbsorbsSendRetries(t *testing.T) {
	fx := newFixture(t)
	fx.store.On("GetConversation", int64(7)).Return(conversationFixture(), nil)
	fx.store.On("IsBlockedEither", int64(1), int64(2)).Return(false, nil)
	fx.store.On("CreateMessage", mock.AnythingOfType("*models.Message")).
		Run(func(args mock.Arguments) {
			args.Get(0).(*models.Message).ID = 100
		}).Return(nil)

	sender := &fakeSession{userID: 1}
	recipient := &fakeSession{userID: 2}
	fx.manager.Register(sender)
	fx.manager.Register(recipient)

	frame := models.ClientFrame{
		Type:           models.FrameMessageSend,
		ConversationID: 7,
		Text:           "hi",
		IdempotencyKey: "retry-1",
	}
	fx.service.HandleFrame(sender, frame)
	fx.service.HandleFrame(sender, frame)

	// One insert; the retry re-acks the original to the sender only.
	fx.store.AssertNumberOfCalls(t, "CreateMessage", 1)
	require.Len(t, recipient.received(), 1)
	frames := sender.received()
	require.Len(t, frames, 2)
	for _, raw := range frames {
		var created models.MessageCreatedFrame
		require.NoError(t, json.Unmarshal(raw, &created))
		assert.Equal(t, int64(100), created.Message.ID)
	}
}

func TestMarkReadRejectsForeignMessage(t *testing.T) {
	fx := newFixture(t)
	fx.store.On("GetConversation", int64(7)).Return(conversationFixture(), nil)
	fx.store.On("GetMessage", int64(50)).
		Return(&models.Message{ID: 50, ConversationID: 8}, nil)

	_, err := fx.service.MarkRead(context.Background(), 1, 7, 50)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.CodeValidation, apiErr.Code)
}

func TestMarkReadNotifiesCounterparty(t *testing.T) {
	fx := newFixture(t)
	fx.store.On("GetConversation", int64(7)).Return(conversationFixture(), nil)
	fx.store.On("GetMessage", int64(50)).
		Return(&models.Message{ID: 50, ConversationID: 7}, nil)
	fx.store.On("AdvanceReadCursor", int64(7), int64(1), int64(50)).
		Return(int64(50), nil)

	counterparty := &fakeSession{userID: 2}
	fx.manager.Register(counterparty)

	effective, err := fx.service.MarkRead(context.Background(), 1, 7, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), effective)

	frames := counterparty.received()
	require.Len(t, frames, 1)
	var frame models.MessageReadFrame
	require.NoError(t, json.Unmarshal(frames[0], &frame))
	assert.Equal(t, models.FrameMessageRead, frame.Type)
	assert.Equal(t, int64(50), frame.UpToMessageID)
}

func TestRetractOnlyBySenderInsideWindow(t *testing.T) {
	fx := newFixture(t)
	fx.store.On("GetMessage", int64(60)).
		Return(&models.Message{ID: 60, ConversationID: 7, SenderID: 2, CreatedAt: time.Now()}, nil)

	err := fx.service.Retract(context.Background(), 1, 60)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.CodeForbidden, apiErr.Code)
}

func TestRetractRejectsAfterWindow(t *testing.T) {
	fx := newFixture(t)
	fx.store.On("GetMessage", int64(60)).
		Return(&models.Message{
			ID: 60, ConversationID: 7, SenderID: 1,
			CreatedAt: time.Now().Add(-time.Hour),
		}, nil)

	err := fx.service.Retract(context.Background(), 1, 60)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.CodeValidation, apiErr.Code)
}

func TestBlockFreezesAndNotifies(t *testing.T) {
	fx := newFixture(t)
	fx.store.On("GetConversation", int64(7)).Return(conversationFixture(), nil)
	fx.store.On("CreateBlock", int64(1), int64(2)).Return(nil)
	fx.store.On("SetConversationBlocked", int64(7), int64(1)).Return(nil)

	blocked := &fakeSession{userID: 2}
	fx.manager.Register(blocked)

	require.NoError(t, fx.service.Block(context.Background(), 1, 7))

	frames := blocked.received()
	require.Len(t, frames, 1)
	var frame models.BlockedFrame
	require.NoError(t, json.Unmarshal(frames[0], &frame))
	assert.Equal(t, models.FrameConversationBlocked, frame.Type)
	assert.Equal(t, int64(1), frame.ByUserID)
	fx.store.AssertExpectations(t)
}

func TestTypingValidatesState(t *testing.T) {
	fx := newFixture(t)

	err := fx.service.Typing(context.Background(), 1, 7, "maybe")

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.CodeValidation, apiErr.Code)
}

func TestHandleFrameAnswersUnknownTypeWithErrorFrame(t *testing.T) {
	fx := newFixture(t)
	session := &fakeSession{userID: 1}

	fx.service.HandleFrame(session, models.ClientFrame{Type: "bogus"})

	frames := session.received()
	require.Len(t, frames, 1)
	var frame models.ErrorFrame
	require.NoError(t, json.Unmarshal(frames[0], &frame))
	assert.Equal(t, models.FrameError, frame.Type)
}

func TestPreviewTruncates(t *testing.T) {
	long := make([]rune, 0, 200)
	for i := 0; i < 200; i++ {
		long = append(long, 'я')
	}
	p := preview(string(long))
	assert.LessOrEqual(t, len([]rune(p)), previewRunes+1)
	assert.Equal(t, "short", preview("short"))
}

func TestConversationCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 123456789, time.UTC)
	cursor := encodeConversationCursor(at, 33)

	gotAt, gotID, err := decodeConversationCursor(cursor)
	require.NoError(t, err)
	assert.True(t, at.Equal(gotAt))
	assert.Equal(t, int64(33), gotID)

	_, _, err = decodeConversationCursor("%%%")
	assert.Error(t, err)
}
