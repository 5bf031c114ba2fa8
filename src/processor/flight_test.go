package processor

import (
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLayouts = []string{"2006-01-02 15:04:05", "2006-01-02 15:04"}

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func frame(records [][]string) dataframe.DataFrame {
	return dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{"", "NaN", "<nil>"}),
	)
}

func TestDelayMinutes(t *testing.T) {
	tests := []struct {
		name       string
		flight     Flight
		want       float64
		measurable bool
		delayed    bool
	}{
		{
			name:       "arrival 16 minutes late",
			flight:     Flight{ScheduledArrival: ts("2022-01-01 10:00"), ActualArrival: ts("2022-01-01 10:16")},
			want:       16,
			measurable: true,
			delayed:    true,
		},
		{
			name:       "arrival exactly 15 minutes late is on time",
			flight:     Flight{ScheduledArrival: ts("2022-01-01 10:00"), ActualArrival: ts("2022-01-01 10:15")},
			want:       15,
			measurable: true,
			delayed:    false,
		},
		{
			name: "arrival preferred over departure",
			flight: Flight{
				ScheduledDeparture: ts("2022-01-01 08:00"), ActualDeparture: ts("2022-01-01 09:00"),
				ScheduledArrival: ts("2022-01-01 10:00"), ActualArrival: ts("2022-01-01 10:05"),
			},
			want:       5,
			measurable: true,
		},
		{
			name: "departure fallback when arrival incomplete",
			flight: Flight{
				ScheduledDeparture: ts("2022-01-01 08:00"), ActualDeparture: ts("2022-01-01 08:40"),
				ScheduledArrival: ts("2022-01-01 10:00"),
			},
			want:       40,
			measurable: true,
			delayed:    true,
		},
		{
			name:       "early arrival is negative",
			flight:     Flight{ScheduledArrival: ts("2022-01-01 10:00"), ActualArrival: ts("2022-01-01 09:50")},
			want:       -10,
			measurable: true,
		},
		{
			name:   "not measurable",
			flight: Flight{ScheduledDeparture: ts("2022-01-01 08:00"), ScheduledArrival: ts("2022-01-01 10:00")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := tt.flight.DelayMinutes()
			assert.Equal(t, tt.measurable, ok)
			if ok {
				assert.Equal(t, tt.want, d)
			}
			delayed, ok := tt.flight.IsDelayed(15)
			assert.Equal(t, tt.measurable, ok)
			assert.Equal(t, tt.delayed, delayed)
		})
	}
}

func TestReferenceTime(t *testing.T) {
	f := Flight{ScheduledArrival: ts("2022-01-01 10:00"), ActualDeparture: ts("2022-01-01 07:00")}
	assert.Equal(t, ts("2022-01-01 10:00"), f.ReferenceTime())

	f.ScheduledDeparture = ts("2022-01-01 08:00")
	assert.Equal(t, ts("2022-01-01 08:00"), f.ReferenceTime())

	assert.True(t, Flight{}.ReferenceTime().IsZero())
}

func TestToFlights(t *testing.T) {
	df := frame([][]string{
		{"cia_icao", "origem_icao", "destino_icao", "partida_prevista", "chegada_prevista", "chegada_real"},
		{"GLO", "SBGR", "SBRJ", "2022-01-01 08:00:00", "2022-01-01 09:00:00", "2022-01-01 09:20:00"},
		{"AZU", "SBKP", "SBPA", "2022-01-02 08:00:00", "", "quebrado"},
	})
	require.NoError(t, df.Err)

	flights, coerced := ToFlights(df, testLayouts)
	require.Len(t, flights, 2)
	assert.Equal(t, 1, coerced)

	assert.Equal(t, "GLO", flights[0].Airline)
	assert.Equal(t, ts("2022-01-01 09:20"), flights[0].ActualArrival)
	assert.True(t, flights[0].ActualDeparture.IsZero())

	assert.True(t, flights[1].ScheduledArrival.IsZero())
	assert.True(t, flights[1].ActualArrival.IsZero())
	assert.Equal(t, "", flights[1].Number)
}
