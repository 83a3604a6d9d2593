package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  SearchFilter
	}{
		{query: "Run", want: SearchFilter{Kind: SearchByName, Name: "Run"}},
		{query: "Run:06:30", want: SearchFilter{Kind: SearchByNameAndTime, Name: "Run", At: TimeOfDay{Hour: 6, Minute: 30}}},
		{query: " Workout : 17:00 ", want: SearchFilter{Kind: SearchByNameAndTime, Name: "Workout", At: TimeOfDay{Hour: 17}}},
		{query: "Run:late", want: SearchFilter{Kind: SearchByName, Name: "Run:late"}},
		{query: "2025-02-18", want: SearchFilter{Kind: SearchByDate, Date: "2025-02-18"}},
		{query: "2025-13-40", want: SearchFilter{Kind: SearchByName, Name: "2025-13-40"}},
		{query: "follow-up", want: SearchFilter{Kind: SearchByName, Name: "follow-up"}},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			got, err := ParseSearchQuery(tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseSearchQuery("   ")
	assert.ErrorIs(t, err, ErrValidation)
}
