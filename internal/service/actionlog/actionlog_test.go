package actionlog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/mindcare_backend/internal/service/caller"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

type fakeStore struct {
	created   []*store.ActionLog
	lastList  store.ActionLogFilter
	createErr error
}

func (f *fakeStore) Create(_ context.Context, l *store.ActionLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, l)
	return nil
}

func (f *fakeStore) List(_ context.Context, flt store.ActionLogFilter) ([]*store.ActionLog, int, error) {
	f.lastList = flt
	return f.created, len(f.created), nil
}

func TestRecord(t *testing.T) {
	fs := &fakeStore{}
	svc := New(fs)
	uid := uuid.New()

	svc.Record(context.Background(), uid, "session_join", "abc", "room=session-abc")
	require.Len(t, fs.created, 1)
	assert.Equal(t, uid, fs.created[0].UserID)
	assert.Equal(t, "session_join", fs.created[0].ActionType)
	assert.Equal(t, "abc", fs.created[0].TargetID)

	svc.Record(context.Background(), uuid.Nil, "anonymous", "", "")
	assert.Len(t, fs.created, 1, "entries without an actor are skipped")

	fs.createErr = errors.New("db down")
	assert.NotPanics(t, func() { svc.Record(context.Background(), uid, "session_join", "abc", "") })
}

func TestListAdminOnly(t *testing.T) {
	fs := &fakeStore{}
	svc := New(fs)

	_, _, err := svc.List(context.Background(), caller.Caller{ID: uuid.New(), Role: store.RoleDoctor}, ListRequest{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = svc.List(context.Background(), caller.Caller{ID: uuid.New(), Role: store.RoleAdmin}, ListRequest{
		ActionType: "session_cancel",
		Page:       3,
		PerPage:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, "session_cancel", fs.lastList.ActionType)
	assert.Equal(t, store.Page{Limit: 10, Offset: 20}, fs.lastList.Page)
}
