package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateAcceptsDayAndTimestamp(t *testing.T) {
	var payload struct {
		Purchased Date  `json:"purchased"`
		Expiry    *Date `json:"expiry"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"purchased":"2024-02-29","expiry":"2025-03-01T10:00:00+07:00"}`), &payload))

	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), payload.Purchased.Time)
	require.NotNil(t, payload.Expiry.Ptr())
	assert.Equal(t, time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC), *payload.Expiry.Ptr())
}

func TestDateRejectsGarbage(t *testing.T) {
	var d Date
	err := json.Unmarshal([]byte(`"29/02/2024"`), &d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestDateEmptyAndNil(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.Nil(t, d.Ptr())

	var missing *Date
	assert.Nil(t, missing.Ptr())

	out, err := json.Marshal(struct {
		At Date `json:"at"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":null}`, string(out))
}
