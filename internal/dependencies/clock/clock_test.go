package clock_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/quizgame/internal/dependencies/clock"
)

func TestNowSurvivesJSON(t *testing.T) {
	now := clock.New().Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.Zero(t, now.Nanosecond()%int(time.Millisecond))

	raw, err := json.Marshal(now)
	require.NoError(t, err)
	var decoded time.Time
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, now.Equal(decoded))
}
