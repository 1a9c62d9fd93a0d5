package action

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/automation"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name       string
		actionType automation.ActionType
		raw        string
		wantErr    string
	}{
		{"notification", automation.ActionNotification, `{"channels":["push"],"title":"Fire"}`, ""},
		{"notification email needs recipients", automation.ActionNotification, `{"channels":["email"],"title":"Fire"}`, "recipients"},
		{"notification unknown channel", automation.ActionNotification, `{"channels":["pager"],"title":"Fire"}`, "unknown notification channel"},
		{"notification without channel", automation.ActionNotification, `{"title":"Fire"}`, "at least one channel"},
		{"siren", automation.ActionSiren, `{"device_id":"siren-1","duration_seconds":30}`, ""},
		{"gate without device", automation.ActionGateOpen, `{}`, "device_id"},
		{"http default method", automation.ActionHTTPRequest, `{"url":"https://hooks.example.com/fire"}`, ""},
		{"http bad scheme", automation.ActionHTTPRequest, `{"url":"ftp://example.com"}`, "scheme"},
		{"http bad method", automation.ActionHTTPRequest, `{"url":"https://example.com","method":"TRACE"}`, "unsupported method"},
		{"mqtt", automation.ActionMQTTPublish, `{"topic":"site/alerts","qos":1}`, ""},
		{"mqtt wildcard", automation.ActionMQTTPublish, `{"topic":"site/#"}`, "wildcards"},
		{"mqtt bad qos", automation.ActionMQTTPublish, `{"topic":"site/a","qos":3}`, "qos"},
		{"custom", automation.ActionCustom, `{"name":"open_ticket","params":{"queue":"ops"}}`, ""},
		{"custom without name", automation.ActionCustom, `{"params":{}}`, "name is required"},
		{"bad json", automation.ActionCustom, `{"name":`, "invalid action_command"},
		{"unknown type", "lights_on", `{}`, "unsupported action type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand(tt.actionType, json.RawMessage(tt.raw))
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
