package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeRoundTrip(t *testing.T) {
	id, err := ParseSnowflake("175928847299117063")
	require.NoError(t, err)
	assert.Equal(t, int64(175928847299117063), id)
	assert.Equal(t, "175928847299117063", FormatSnowflake(id))

	_, err = ParseSnowflake("not-a-snowflake")
	assert.Error(t, err)
	_, err = ParseSnowflake("")
	assert.Error(t, err)
}

func TestSnowflakeTime(t *testing.T) {
	// Known reference snowflake from the API docs: 2016-04-30 11:18:25.796 UTC.
	ts := SnowflakeTime(175928847299117063)
	expect := time.Date(2016, 4, 30, 11, 18, 25, 796*int(time.Millisecond), time.UTC)
	assert.Equal(t, expect, ts)
}
