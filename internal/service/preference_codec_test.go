package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
)

func TestDecodePreference(t *testing.T) {
	entry, err := DecodePreference("m:7:00-8:30:2")
	require.NoError(t, err)
	assert.Equal(t, "m:7:00-8:30", entry.TimeSlot)
	assert.Equal(t, models.PreferencePreferred, entry.Level)
	assert.Empty(t, entry.ShiftID)

	entry, err = DecodePreference("TU:10:00-11:30:0")
	require.NoError(t, err)
	assert.Equal(t, "tu:10:00-11:30", entry.TimeSlot)
	assert.Equal(t, models.PreferenceUnavailable, entry.Level)
}

func TestDecodePreferenceRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		":5",
		"m:7:00-8:30",      // missing level
		"m:7:00-8:30:3",    // level out of range
		"m:7:00-8:30:-1",   // negative level
		"m:7:00-8:30:x",    // non-numeric level
		"zz:7:00-8:30:1",   // unknown day
		"m:7:00:1",         // no range
		"m:7:00-8:3:1",     // single-digit minutes
		"m:700-8:30:1",     // missing colon in start
		"monday:7:00-8:30:1",
	}
	for _, raw := range cases {
		_, err := DecodePreference(raw)
		require.Error(t, err, "input %q", raw)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrMalformedPreference), "input %q", raw)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw := EncodePreference(models.Thursday, "8:30", "10:00", models.PreferenceAvailable)
	assert.Equal(t, "th:8:30-10:00:1", raw)

	entry, err := DecodePreference(raw)
	require.NoError(t, err)
	assert.Equal(t, "th:8:30-10:00", entry.TimeSlot)
	assert.Equal(t, models.PreferenceAvailable, entry.Level)
}

func TestSplitTimeSlot(t *testing.T) {
	day, start, end, err := SplitTimeSlot("sa:7:00-8:30")
	require.NoError(t, err)
	assert.Equal(t, models.Saturday, day)
	assert.Equal(t, "7:00", start)
	assert.Equal(t, "8:30", end)

	for _, raw := range []string{"", "sa", "xx:7:00-8:30", "sa:7:00"} {
		_, _, _, err := SplitTimeSlot(raw)
		assert.Error(t, err, raw)
	}
}

func TestValidateAgainstGrid(t *testing.T) {
	interval := models.WorkInterval{Start: "7:00", End: "00:00", SlotDuration: 90}

	ok := models.PreferenceEntry{TimeSlot: "m:8:30-10:00", Level: models.PreferencePreferred}
	require.NoError(t, ValidateAgainstGrid(ok, interval))

	// Start off a slot boundary.
	err := ValidateAgainstGrid(models.PreferenceEntry{TimeSlot: "m:8:00-9:30"}, interval)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnalignedSlot))

	// Correct start, wrong span.
	err = ValidateAgainstGrid(models.PreferenceEntry{TimeSlot: "m:8:30-9:30"}, interval)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnalignedSlot))

	// Last slot of a midnight-bounded interval: 22:00 start with 60min slots.
	night := models.WorkInterval{Start: "22:00", End: "00:00", SlotDuration: 60}
	last := models.PreferenceEntry{TimeSlot: "f:23:00-0:00"}
	require.NoError(t, ValidateAgainstGrid(last, night))
}

func TestBuildWeeklyVectorIsDense(t *testing.T) {
	interval := models.WorkInterval{Start: "7:00", End: "10:00", SlotDuration: 90}
	availability := map[string]models.PreferenceLevel{
		"m:7:00-8:30":  models.PreferencePreferred,
		"w:8:30-10:00": models.PreferenceAvailable,
	}

	vector, err := BuildWeeklyVector(availability, interval)
	require.NoError(t, err)
	require.Len(t, vector, 7*2)

	assert.Equal(t, "m:7:00-8:30", vector[0].TimeSlot)
	assert.Equal(t, models.PreferencePreferred, vector[0].Level)
	assert.Equal(t, models.PreferenceUnavailable, vector[1].Level)

	// Wednesday is day index 2, second slot.
	assert.Equal(t, "w:8:30-10:00", vector[2*2+1].TimeSlot)
	assert.Equal(t, models.PreferenceAvailable, vector[2*2+1].Level)

	for _, entry := range vector {
		assert.Empty(t, entry.ShiftID)
	}
}
