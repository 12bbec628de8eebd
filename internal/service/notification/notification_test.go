package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/mindcare_backend/internal/events"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
	"github.com/Alijeyrad/mindcare_backend/pkg/email"
	"github.com/Alijeyrad/mindcare_backend/pkg/sms"
)

type memStore struct {
	rows map[uuid.UUID]*store.Notification
}

func newMemStore() *memStore { return &memStore{rows: map[uuid.UUID]*store.Notification{}} }

func (m *memStore) Create(_ context.Context, n *store.Notification) error {
	n.ID = uuid.New()
	m.rows[n.ID] = n
	return nil
}

func (m *memStore) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, _ store.Page) ([]*store.Notification, int, error) {
	var out []*store.Notification
	for _, n := range m.rows {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (m *memStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	_, n, err := m.ListByUser(ctx, userID, true, store.Page{})
	return n, err
}

func (m *memStore) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	n, ok := m.rows[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (m *memStore) MarkAllRead(_ context.Context, userID uuid.UUID) (int, error) {
	c := 0
	for _, n := range m.rows {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			c++
		}
	}
	return c, nil
}

func (m *memStore) Delete(_ context.Context, id, userID uuid.UUID) error {
	n, ok := m.rows[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func TestNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := New(newMemStore())
	alice, bob := uuid.New(), uuid.New()

	_, err := svc.Create(ctx, CreateRequest{UserID: alice, Type: TypeSession, Message: "  "})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	first, err := svc.Create(ctx, CreateRequest{UserID: alice, Type: TypeSession, Message: "hello"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{UserID: alice, Type: TypeReport, Message: "report ready"})
	require.NoError(t, err)

	n, err := svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.ErrorIs(t, svc.MarkRead(ctx, first.ID, bob), ErrNotFound, "foreign notifications look missing")
	require.NoError(t, svc.MarkRead(ctx, first.ID, alice))

	items, total, err := svc.List(ctx, alice, ListRequest{UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, TypeReport, items[0].Type)

	marked, err := svc.MarkAllRead(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	assert.ErrorIs(t, svc.Delete(ctx, first.ID, bob), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, first.ID, alice))
	assert.ErrorIs(t, svc.Delete(ctx, first.ID, alice), ErrNotFound)
}

func TestSessionMessage(t *testing.T) {
	start := "Mon 5 Jan 2026 10:00 UTC"
	assert.Contains(t, SessionMessage(events.SessionCreated, store.RoleDoctor, start), "waiting for your confirmation")
	assert.Contains(t, SessionMessage(events.SessionCreated, store.RolePatient, start), "booked")
	assert.Contains(t, SessionMessage(events.SessionJoined, store.RoleDoctor, start), "joined")
	assert.Empty(t, SessionMessage("paused", store.RolePatient, start))
}

type fakeMailer struct {
	mu      sync.Mutex
	enabled bool
	sent    []email.Message
	err     error
}

func (f *fakeMailer) Enabled() bool { return f.enabled }

func (f *fakeMailer) Send(_ context.Context, m email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return f.err
}

type fakeTexter struct {
	mu      sync.Mutex
	enabled bool
	numbers []string
	err     error
}

func (f *fakeTexter) IsEnabled() bool { return f.enabled }

func (f *fakeTexter) SendSessionUpdate(_ context.Context, number string, _ sms.SessionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.numbers = append(f.numbers, number)
	return f.err
}

func deliveryFixture(phoneNumber *string) (*store.User, *store.Session) {
	u := &store.User{ID: uuid.New(), Name: "Sara", LastName: "K", Email: "sara@example.com", Phone: phoneNumber}
	s := &store.Session{ID: uuid.New(), StartTime: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)}
	return u, s
}

func TestDeliveryFansOut(t *testing.T) {
	mail := &fakeMailer{enabled: true}
	text := &fakeTexter{enabled: true}
	d := NewDelivery(mail, text, DeliveryConfig{BaseURL: "https://mindcare.test"})

	mobile := "0912 345 6789"
	u, s := deliveryFixture(&mobile)
	require.NoError(t, d.SessionUpdate(context.Background(), u, s, events.SessionAccepted))

	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"sara@example.com"}, mail.sent[0].To)
	assert.Equal(t, "MindCare: session accepted", mail.sent[0].Subject)
	assert.True(t, strings.Contains(mail.sent[0].TextBody, "https://mindcare.test/sessions/"+s.ID.String()))
	assert.Equal(t, []string{"+989123456789"}, text.numbers)
}

func TestDeliverySkipsUnreachableChannels(t *testing.T) {
	mail := &fakeMailer{enabled: false}
	text := &fakeTexter{enabled: true}
	d := NewDelivery(mail, text, DeliveryConfig{})

	bad := "12"
	u, s := deliveryFixture(&bad)
	assert.ErrorIs(t, d.SessionUpdate(context.Background(), u, s, events.SessionCanceled), ErrNoChannel)

	u, s = deliveryFixture(nil)
	assert.ErrorIs(t, d.SessionUpdate(context.Background(), u, s, events.SessionCanceled), ErrNoChannel)
	assert.Empty(t, mail.sent)
	assert.Empty(t, text.numbers)
}

func TestDeliveryReportsChannelErrors(t *testing.T) {
	mail := &fakeMailer{enabled: true, err: errors.New("smtp down")}
	d := NewDelivery(mail, &fakeTexter{}, DeliveryConfig{})

	u, s := deliveryFixture(nil)
	err := d.SessionUpdate(context.Background(), u, s, events.SessionCompleted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}
