package action

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/automation"
	"lookout/pkg/models"
)

func TestEdgeCommandTopic(t *testing.T) {
	assert.Equal(t, "edge/7/commands", EdgeCommandTopic("edge", 7))
}

func TestEdgeCommandExecutor(t *testing.T) {
	pub := &fakePublisher{}
	exec := NewEdgeCommandExecutor(pub, "edge")
	issued := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	exec.now = func() time.Time { return issued }

	cmd := DeviceCommand{DeviceID: "siren-1", DurationSeconds: 30, Extra: map[string]interface{}{"volume": "high"}}
	executed, err := exec.Execute(context.Background(), rule(automation.ActionSiren, `{}`), event(), cmd)
	require.NoError(t, err)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, "edge/7/commands", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.False(t, msg.retained)
	assert.JSONEq(t, string(msg.payload), string(executed))

	var sent models.EdgeCommand
	require.NoError(t, json.Unmarshal(msg.payload, &sent))
	assert.Equal(t, "siren", sent.Command)
	assert.Equal(t, "siren-1", sent.DeviceID)
	assert.Equal(t, int64(11), sent.RuleID)
	assert.Equal(t, event().ID, sent.EventID)
	assert.True(t, issued.Equal(sent.IssuedAt))
	assert.Equal(t, float64(30), sent.Params["duration_seconds"])
	assert.Equal(t, "high", sent.Params["volume"])
}

func TestEdgeCommandExecutor_PublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("mqtt client is not connected")}
	exec := NewEdgeCommandExecutor(pub, "edge")

	executed, err := exec.Execute(context.Background(), rule(automation.ActionGateOpen, `{}`), event(), DeviceCommand{DeviceID: "gate-2"})
	require.Error(t, err)
	assert.NotEmpty(t, executed)
}

func TestMQTTPublishExecutor(t *testing.T) {
	qos2 := byte(2)
	tests := []struct {
		name        string
		cmd         MQTTCommand
		wantQoS     byte
		wantPayload func(t *testing.T, payload []byte)
	}{
		{
			name:    "event payload by default",
			cmd:     MQTTCommand{Topic: "site/alerts"},
			wantQoS: 0,
			wantPayload: func(t *testing.T, payload []byte) {
				var evt models.EventMessage
				require.NoError(t, json.Unmarshal(payload, &evt))
				assert.Equal(t, event().ID, evt.ID)
			},
		},
		{
			name:    "string payload is sent unquoted",
			cmd:     MQTTCommand{Topic: "site/alerts", Payload: json.RawMessage(`"ALARM"`), QoS: &qos2, Retained: true},
			wantQoS: 2,
			wantPayload: func(t *testing.T, payload []byte) {
				assert.Equal(t, "ALARM", string(payload))
			},
		},
		{
			name:    "object payload",
			cmd:     MQTTCommand{Topic: "site/alerts", Payload: json.RawMessage(`{"state":"on"}`)},
			wantQoS: 0,
			wantPayload: func(t *testing.T, payload []byte) {
				assert.JSONEq(t, `{"state":"on"}`, string(payload))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			exec := NewMQTTPublishExecutor(pub, 0)

			executed, err := exec.Execute(context.Background(), rule(automation.ActionMQTTPublish, `{}`), event(), tt.cmd)
			require.NoError(t, err)
			require.Len(t, pub.messages, 1)

			msg := pub.messages[0]
			assert.Equal(t, "site/alerts", msg.topic)
			assert.Equal(t, tt.wantQoS, msg.qos)
			assert.Equal(t, tt.cmd.Retained, msg.retained)
			tt.wantPayload(t, msg.payload)

			var out mqttExecuted
			require.NoError(t, json.Unmarshal(executed, &out))
			assert.Equal(t, tt.wantQoS, out.QoS)
		})
	}
}

func TestUnavailablePublisher(t *testing.T) {
	exec := NewMQTTPublishExecutor(unavailablePublisher{}, 1)
	_, err := exec.Execute(context.Background(), rule(automation.ActionMQTTPublish, `{}`), event(), MQTTCommand{Topic: "a/b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
