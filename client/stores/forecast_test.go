package stores

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/require"
)

func TestFlattenForecast(t *testing.T) {
	raw := &rawForecast{
		SpotID: "pipeline",
		Days: []rawForecastDay{
			{
				Date: "2026-09-01",
				Swells: []rawSwell{
					{HeightFt: 4, PeriodSec: 16, DirectionDeg: 310},
					{HeightFt: 2, PeriodSec: 8, DirectionDeg: 45},
				},
				WindSpeedMph: 5,
				Rating:       4,
			},
			{
				Date:   "2026-09-02",
				Swells: []rawSwell{{HeightFt: 3, PeriodSec: 12, DirectionDeg: 300}},
			},
		},
		AIDays: []rawAIDay{
			{Date: "2026-09-03", HeightFt: 5.5, Confidence: 0.8, Summary: "building NW swell"},
		},
	}

	f := flattenForecast(raw)
	require.Equal(t, "pipeline", f.SpotID)
	require.Len(t, f.Days, 2)

	day := f.Days[0]
	require.Equal(t, float32(2), day.MinHeightFt)
	require.Equal(t, float32(4), day.MaxHeightFt)
	// H^2 * T summed over both swells
	require.Equal(t, float32(4*4*16+2*2*8), day.SwellEnergy)
	// The dominant swell decides the breaking height
	require.InDelta(t, 4*0.4*math32.Sqrt(16), day.BreakingHeightFt, 0.001)
	require.Equal(t, 4, day.Rating)

	// Today's swell components are exposed as the swell readout
	require.Len(t, f.Swells, 2)
	require.Equal(t, float32(310), f.Swells[0].DirectionDeg)

	require.Len(t, f.AIDays, 1)
	require.Equal(t, float32(0.8), f.AIDays[0].Confidence)
}

func TestFlattenForecastEmpty(t *testing.T) {
	f := flattenForecast(&rawForecast{SpotID: "flat"})
	require.Equal(t, "flat", f.SpotID)
	require.Len(t, f.Days, 0)
	require.Len(t, f.Swells, 0)
}

func TestBreakingHeightZeroPeriod(t *testing.T) {
	require.Equal(t, float32(3), breakingHeight(3, 0))
}
