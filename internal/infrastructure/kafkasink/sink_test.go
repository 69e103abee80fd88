package kafkasink

import (
	"context"
	"errors"
	"testing"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application/orders"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestSend_MapsMessage(t *testing.T) {
	w := &fakeWriter{}
	s := NewWithWriter(w)

	require.NoError(t, s.Send(context.Background(), orders.Message{
		Key: "s1", EventType: "checkout.completed", Value: []byte(`{"total":360}`),
	}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("s1"), w.msgs[0].Key)
	assert.JSONEq(t, `{"total":360}`, string(w.msgs[0].Value))
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte("checkout.completed")}}, w.msgs[0].Headers)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestSend_WrapsError(t *testing.T) {
	s := NewWithWriter(&fakeWriter{err: errors.New("leader not available")})
	err := s.Send(context.Background(), orders.Message{EventType: "checkout.completed"})
	assert.ErrorContains(t, err, "leader not available")
}

func TestNew_DefaultsTopic(t *testing.T) {
	s := New("", "localhost:9092")
	w, ok := s.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, w.Topic)
}
