package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(nil)
	assert.Error(t, err)

	p, err := NewKafkaPublisher([]string{"localhost:9092"})
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestMessage(t *testing.T) {
	ev := New("user_registered", map[string]any{"user_id": 7})

	msg, err := message(TopicUsers, "7", ev)
	require.NoError(t, err)
	assert.Equal(t, TopicUsers, msg.Topic)
	assert.Equal(t, []byte("7"), msg.Key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "user_registered", decoded["type"])
	assert.EqualValues(t, 7, decoded["data"].(map[string]any)["user_id"])
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, TopicBooks, "1", New("book_created", nil)))
	require.NoError(t, r.Publish(ctx, TopicUsers, "2", New("user_logged_in", nil)))

	assert.Equal(t, []string{"book_created", "user_logged_in"}, r.Types())
	assert.Equal(t, TopicBooks, r.Events()[0].Topic)
	assert.NoError(t, Nop{}.Publish(ctx, TopicBooks, "", New("x", nil)))
}
