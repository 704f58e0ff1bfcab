package core

import (
	"fmt"
	"strconv"
	"time"
)

// discordEpoch is the Discord snowflake epoch (2015-01-01T00:00:00Z) in
// milliseconds.
const discordEpoch int64 = 1420070400000

// ParseSnowflake converts a Discord string ID to int64.
func ParseSnowflake(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing snowflake %q: %w", s, err)
	}
	return id, nil
}

// FormatSnowflake converts an int64 ID back to Discord's string form.
func FormatSnowflake(id int64) string {
	return strconv.FormatInt(id, 10)
}

// SnowflakeTime extracts the creation timestamp embedded in a snowflake.
func SnowflakeTime(id int64) time.Time {
	ms := (id >> 22) + discordEpoch
	return time.UnixMilli(ms).UTC()
}
