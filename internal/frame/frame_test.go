package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame(t *testing.T) *Frame {
	t.Helper()
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	f, err := New(
		TimeColumn("date", day, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2)),
		FloatColumn("close", 1680.5, 1692.01, 1701.3),
		IntColumn("volume", 31200, 28950, 40122),
		StringColumn("code", "600519", "600519", "600519"),
		BoolColumn("limit_up", false, false, true),
	)
	require.NoError(t, err)
	return f
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		columns []Column
		wantErr error
	}{
		{
			name:    "mismatched lengths",
			columns: []Column{FloatColumn("a", 1, 2), IntColumn("b", 1)},
			wantErr: ErrColumnLength,
		},
		{
			name:    "duplicate names",
			columns: []Column{FloatColumn("a", 1), IntColumn("a", 1)},
			wantErr: ErrDuplicateColumn,
		},
		{
			name:    "empty frame",
			columns: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.columns...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFrame_Accessors(t *testing.T) {
	f := sampleFrame(t)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"date", "close", "volume", "code", "limit_up"}, f.Names())

	row, err := f.Row(2)
	require.NoError(t, err)
	assert.Equal(t, 1701.3, row["close"])
	assert.Equal(t, int64(40122), row["volume"])
	assert.Equal(t, true, row["limit_up"])

	_, err = f.Row(3)
	require.ErrorIs(t, err, ErrRowOutOfRange)

	_, err = f.Column("open")
	require.ErrorIs(t, err, ErrColumnNotFound)

	assert.Len(t, f.Records(), 3)
}

func TestFrame_Tail(t *testing.T) {
	f := sampleFrame(t)

	tail := f.Tail(2)
	require.Equal(t, 2, tail.Len())
	col, err := tail.Column("close")
	require.NoError(t, err)
	assert.Equal(t, []float64{1692.01, 1701.3}, col.Floats)

	assert.Same(t, f, f.Tail(10))
	assert.Equal(t, 0, f.Tail(-1).Len())
}

func TestFrame_NilLen(t *testing.T) {
	var f *Frame
	assert.Equal(t, 0, f.Len())
}
