package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDuration(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)

	event := &Event{StartDatetime: start, EndDatetime: &end}
	dur, ok := event.Duration()
	require.True(t, ok)
	assert.Equal(t, 45*time.Minute, dur)

	openEnded := &Event{StartDatetime: start}
	_, ok = openEnded.Duration()
	assert.False(t, ok)
}

func TestWeekdayListValue(t *testing.T) {
	v, err := WeekdayList{Monday, Wednesday, Friday}.Value()
	require.NoError(t, err)
	assert.Equal(t, "MON,WED,FRI", v)

	v, err = WeekdayList{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestWeekdayListScan(t *testing.T) {
	var list WeekdayList
	require.NoError(t, list.Scan("MON, WED,FRI"))
	assert.Equal(t, WeekdayList{Monday, Wednesday, Friday}, list)

	require.NoError(t, list.Scan([]byte("SAT,SUN")))
	assert.Equal(t, WeekdayList{Saturday, Sunday}, list)

	require.NoError(t, list.Scan(nil))
	assert.Nil(t, list)

	assert.Error(t, list.Scan(42))
}

func TestValidWeekday(t *testing.T) {
	assert.True(t, ValidWeekday(Monday))
	assert.True(t, ValidWeekday(Sunday))
	assert.False(t, ValidWeekday("MONDAY"))
	assert.False(t, ValidWeekday(""))
}
