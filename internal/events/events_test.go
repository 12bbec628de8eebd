package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	subjects []string
	payloads []string
	err      error
}

func (r *recordingConn) Publish(subj string, data []byte) error {
	r.subjects = append(r.subjects, subj)
	r.payloads = append(r.payloads, string(data))
	return r.err
}

func TestSubjects(t *testing.T) {
	id := uuid.MustParse("0191d7a4-7b1c-7c3e-9a55-8f7c2b9e1a00")
	assert.Equal(t, "mindcare.session.accepted.0191d7a4-7b1c-7c3e-9a55-8f7c2b9e1a00", SessionSubject(SessionAccepted, id))
	assert.Equal(t, "mindcare.report.created.0191d7a4-7b1c-7c3e-9a55-8f7c2b9e1a00", ReportSubject(id))
	assert.Equal(t, "mindcare.session.joined.*", SessionWildcard(SessionJoined))
	assert.Equal(t, "mindcare.report.created.*", ReportWildcard())
}

func TestParse(t *testing.T) {
	id := uuid.New()
	entity, e, got, err := Parse(SessionSubject(SessionCanceled, id))
	require.NoError(t, err)
	assert.Equal(t, "session", entity)
	assert.Equal(t, SessionCanceled, e)
	assert.Equal(t, id, got)

	_, _, _, err = Parse("other.session.created." + id.String())
	assert.Error(t, err)
	_, _, _, err = Parse("mindcare.session.created.not-a-uuid")
	assert.Error(t, err)
}

func TestIDFromMsg(t *testing.T) {
	id := uuid.New()
	got, err := IDFromMsg(&nats.Msg{Subject: SessionSubject(SessionCreated, uuid.New()), Data: []byte(" " + id.String() + "\n")})
	require.NoError(t, err)
	assert.Equal(t, id, got, "body wins over subject")

	got, err = IDFromMsg(&nats.Msg{Subject: SessionSubject(SessionCreated, id)})
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestPublisher(t *testing.T) {
	rc := &recordingConn{}
	p := &Publisher{nc: rc}
	id := uuid.New()

	p.PublishSession(context.Background(), SessionJoined, id)
	p.PublishReport(context.Background(), id)

	assert.Equal(t, []string{SessionSubject(SessionJoined, id), ReportSubject(id)}, rc.subjects)
	assert.Equal(t, []string{id.String(), id.String()}, rc.payloads)

	rc.err = errors.New("disconnected")
	assert.NotPanics(t, func() { p.PublishSession(context.Background(), SessionCreated, id) })
}

func TestNilPublisher(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() { p.PublishSession(context.Background(), SessionCreated, uuid.New()) })
	assert.NotPanics(t, func() { NewPublisher(nil).PublishReport(context.Background(), uuid.New()) })
}
