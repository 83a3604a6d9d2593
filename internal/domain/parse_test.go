package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskLines(t *testing.T) {
	t.Parallel()

	specs, rejected, err := ParseTaskLines("Stretch: 07:00\nBadLine\nRun: 06:30")
	require.NoError(t, err)

	require.Len(t, specs, 2)
	assert.Equal(t, TaskSpec{Description: "Run", At: TimeOfDay{Hour: 6, Minute: 30}}, specs[0])
	assert.Equal(t, TaskSpec{Description: "Stretch", At: TimeOfDay{Hour: 7}}, specs[1])
	assert.Equal(t, []string{"BadLine"}, rejected)
}

func TestParseTaskLinesEdgeCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		want      []string
		wantError error
	}{
		{
			name:  "stable for equal times",
			input: "B: 08:00\nA: 08:00\nC: 07:59",
			want:  []string{"C", "B", "A"},
		},
		{
			name:  "windows line endings and blank lines",
			input: "Read: 21:00\r\n\r\nWalk: 9:15\r\n",
			want:  []string{"Walk", "Read"},
		},
		{
			name:  "invalid times skipped",
			input: "Nap: 25:00\nLunch: 12:61\nDinner: 19:00\nSnack: noon",
			want:  []string{"Dinner"},
		},
		{
			name:  "empty description skipped",
			input: ": 10:00\nGym: 18:00",
			want:  []string{"Gym"},
		},
		{
			name:      "nothing valid",
			input:     "hello\nworld",
			wantError: ErrNoValidTasks,
		},
		{
			name:      "empty input",
			input:     "",
			wantError: ErrNoValidTasks,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			specs, _, err := ParseTaskLines(tc.input)
			if tc.wantError != nil {
				assert.ErrorIs(t, err, tc.wantError)
				assert.Empty(t, specs)
				return
			}
			require.NoError(t, err)
			got := make([]string, 0, len(specs))
			for _, s := range specs {
				got = append(got, s.Description)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTaskLine(t *testing.T) {
	t.Parallel()

	spec, err := ParseTaskLine("Morning run: 06:30")
	require.NoError(t, err)
	assert.Equal(t, "Morning run", spec.Description)
	assert.Equal(t, "06:30", spec.At.String())

	_, err = ParseTaskLine("no separator")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseTaskLine("Run: 6pm")
	assert.True(t, errors.Is(err, ErrInvalidTimeOfDay))
}

func TestTimeOfDay(t *testing.T) {
	t.Parallel()

	tod, err := ParseTimeOfDay(" 7:05 ")
	require.NoError(t, err)
	assert.Equal(t, "07:05", tod.String())
	assert.Equal(t, 425, tod.Minutes())
	assert.True(t, tod.Before(MustParseTimeOfDay("07:06")))

	var decoded TimeOfDay
	require.NoError(t, decoded.UnmarshalText([]byte("23:59")))
	assert.Equal(t, TimeOfDay{Hour: 23, Minute: 59}, decoded)

	assert.Error(t, decoded.UnmarshalText([]byte("24:00")))
}
