package engine

import (
	"barreplay/types"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceWindow(t *testing.T) {
	ds := mockDailyBars(t, "AAPL", 3) // 2019-01-01 .. 2019-01-03

	tests := []struct {
		name       string
		start      time.Time
		end        time.Time
		includeEnd bool
		want       []time.Time
		wantErr    error
	}{
		{"include end returns all three bars", day(0), day(2), true, []time.Time{day(0), day(1), day(2)}, nil},
		{"exclude end drops the end bar", day(0), day(2), false, []time.Time{day(0), day(1)}, nil},
		{"start between bars anchors on the preceding bar", day(0).Add(12 * time.Hour), day(2), true, []time.Time{day(0), day(1), day(2)}, nil},
		{"end between bars keeps only bars before it", day(0), day(1).Add(12 * time.Hour), true, []time.Time{day(0), day(1)}, nil},
		{"start equal to end excluded is empty", day(1), day(1), false, []time.Time{}, nil},
		{"start equal to end included is one bar", day(1), day(1), true, []time.Time{day(1)}, nil},
		{"other zones are accepted", day(1).In(time.FixedZone("EST", -5*3600)), day(2).In(time.FixedZone("EST", -5*3600)), true, []time.Time{day(1), day(2)}, nil},
		{"start before all data", day(-1), day(2), true, nil, ErrWindowOutOfRange},
		{"end after all data", day(0), day(5), true, nil, ErrWindowOutOfRange},
		{"start after all data", day(4), day(5), true, nil, ErrWindowOutOfRange},
		{"start after end", day(2), day(0), true, nil, ErrInvalidRange},
		{"local start is naive", time.Date(2019, 1, 1, 0, 0, 0, 0, time.Local), day(2), true, nil, ErrNaiveTime},
		{"zero end is naive", day(0), time.Time{}, true, nil, ErrNaiveTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SliceWindow(ds, tt.start, tt.end, tt.includeEnd)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SliceWindow() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			if got.Len() != len(tt.want) {
				t.Fatalf("SliceWindow() len = %d, want %d", got.Len(), len(tt.want))
			}
			for i, want := range tt.want {
				if !got.At(i).Time.Equal(want) {
					t.Errorf("SliceWindow()[%d] = %s, want %s", i, got.At(i).Time, want)
				}
			}
		})
	}
}

func TestSliceWindow_EmptyDataset(t *testing.T) {
	ds, err := types.NewDataset(nil)
	require.NoError(t, err)

	_, err = SliceWindow(ds, day(0), day(1), true)
	assert.ErrorIs(t, err, ErrWindowOutOfRange)
}

func TestSliceWindow_SharesNoMutableState(t *testing.T) {
	ds := mockDailyBars(t, "AAPL", 5)

	first, err := SliceWindow(ds, day(0), day(2), false)
	require.NoError(t, err)
	second, err := SliceWindow(ds, day(1), day(4), true)
	require.NoError(t, err)

	assert.Equal(t, 2, first.Len())
	assert.Equal(t, 4, second.Len())
	assert.True(t, first.Last().Time.Equal(day(1)))
	assert.True(t, second.First().Time.Equal(day(1)))
}
