package queue

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCleanupTask_EnvelopeShape(t *testing.T) {
	days := 45
	task, err := NewCleanupTask(&days)
	require.NoError(t, err)
	assert.Equal(t, TypeSummaryCleanup, task.Type())

	var env struct {
		Message struct {
			Data string `json:"data"`
		} `json:"message"`
	}
	require.NoError(t, json.Unmarshal(task.Payload(), &env))

	body, err := base64.StdEncoding.DecodeString(env.Message.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"retention_days":45}`, string(body))
}

func TestNewCleanupTask_NoRetention(t *testing.T) {
	task, err := NewCleanupTask(nil)
	require.NoError(t, err)

	var trig CleanupTrigger
	require.NoError(t, json.Unmarshal(task.Payload(), &trig))
	assert.JSONEq(t, `{}`, string(trig.Message.Data))
}

func TestParseSummarizePayload(t *testing.T) {
	task, err := NewSummarizeTask(SummarizePayload{UserID: "u1", Keyword: "golang"})
	require.NoError(t, err)

	p, err := ParseSummarizePayload(task)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "golang", p.Keyword)

	_, err = ParseSummarizePayload(asynq.NewTask(TypeNewsSummarize, []byte(`{"user_id":"u1"}`)))
	assert.Error(t, err)

	_, err = ParseSummarizePayload(asynq.NewTask(TypeNewsSummarize, []byte(`not json`)))
	assert.Error(t, err)
}

func TestEncodeData(t *testing.T) {
	days := 90
	s, err := EncodeData(CleanupConfig{RetentionDays: &days})
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"retention_days":90}`, string(raw))
}
