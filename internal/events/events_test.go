package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	events []Event
	err    error
}

func (r *recorder) Publish(_ context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestMultiPublishesToAllAndJoinsErrors(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("kafka down")}
	c := &recorder{}

	err := Multi{a, b, c}.Publish(context.Background(), Event{Type: LikeChanged, Topic: "post:p1"})
	assert.ErrorContains(t, err, "kafka down")
	assert.Len(t, a.events, 1)
	assert.Len(t, c.events, 1)
}

func TestEmitLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := &recorder{err: errors.New("boom")}

	Emit(context.Background(), rec, zap.New(core), Event{Type: CommentAdded, Topic: "post:p1"})

	require.Len(t, rec.events, 1)
	assert.False(t, rec.events[0].At.IsZero())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to publish event", logs.All()[0].Message)
}

type fakeWriter struct {
	msgs []kafka.Message
	ctx  context.Context
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.ctx = ctx
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaKeysByTopic(t *testing.T) {
	w := &fakeWriter{}
	k := &Kafka{writer: w}

	err := k.Publish(context.Background(), Event{Type: MembershipJoined, Topic: CommunityTopic("c1"), Actor: "u1"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "community:c1", string(w.msgs[0].Key))
	assert.Equal(t, "membership.joined", string(w.msgs[0].Headers[0].Value))

	var ev Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, "u1", ev.Actor)
}

func TestKafkaPublishOutlivesCanceledRequest(t *testing.T) {
	w := &fakeWriter{}
	k := &Kafka{writer: w}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, k.Publish(ctx, Event{Type: LikeChanged, Topic: "post:p1"}))

	require.NotNil(t, w.ctx)
	assert.NoError(t, w.ctx.Err())
	deadline, ok := w.ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(publishTimeout), deadline, time.Second)
}

func TestNewKafkaWritesAsyncAndLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	k := NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "potluck.events"}, zap.New(core))
	t.Cleanup(func() { _ = k.Close() })

	kw, ok := k.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.True(t, kw.Async)

	kw.Completion([]kafka.Message{{}}, nil)
	assert.Zero(t, logs.Len())
	kw.Completion([]kafka.Message{{}, {}}, errors.New("broker unreachable"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(2), logs.All()[0].ContextMap()["messages"])
}

func TestHubDeliversToSubscribedTopic(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?topic=post:p1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Subscribers("post:p1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), Event{Type: CommentAdded, Topic: "post:other"}))
	require.NoError(t, hub.Publish(context.Background(), Event{Type: LikeChanged, Topic: "post:p1", Data: map[string]any{"count": 3}}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, LikeChanged, ev.Type)
	assert.Equal(t, float64(3), ev.Data["count"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Subscribers("post:p1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubRequiresTopic(t *testing.T) {
	hub := NewHub(zap.NewNop())
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/ws", nil))
	assert.Equal(t, 400, rec.Code)
}
