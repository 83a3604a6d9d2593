package report

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTrend(t *testing.T) {
	testCases := []struct {
		name string
		days []DayResponse
	}{
		{name: "single point", days: []DayResponse{{Date: "2024-05-01", Count: 1, MeanMinutes: 12}}},
		{name: "flat week", days: []DayResponse{
			{Date: "2024-05-01", Count: 1, MeanMinutes: 10},
			{Date: "2024-05-02", Count: 1, MeanMinutes: 10},
		}},
		{name: "week", days: []DayResponse{
			{Date: "2024-05-01", Count: 2, MeanMinutes: 12},
			{Date: "2024-05-02", Count: 1, MeanMinutes: 35},
			{Date: "2024-05-04", Count: 3, MeanMinutes: 5},
			{Date: "2024-05-07", Count: 1, MeanMinutes: 1440},
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := RenderTrend(tc.days)
			require.NoError(t, err)

			img, err := png.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, chartWidth, img.Bounds().Dx())
			assert.Equal(t, chartHeight, img.Bounds().Dy())

			orange := 0
			for y := 0; y < chartHeight; y++ {
				for x := 0; x < chartWidth; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					if r>>8 > 0xf0 && g>>8 > 0x90 && g>>8 < 0xb8 && b>>8 < 0x30 {
						orange++
					}
				}
			}
			assert.NotZero(t, orange, "trend points should be drawn")
		})
	}
}

func TestRenderTrendRejectsBadInput(t *testing.T) {
	_, err := RenderTrend(nil)
	assert.ErrorIs(t, err, ErrNoTrendData)

	_, err = RenderTrend([]DayResponse{{Date: "May 1", MeanMinutes: 3}})
	assert.Error(t, err)
}
