package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"todo-assistant/internal/model"
)

func TestFrequency_Next(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name   string
		freq   model.Frequency
		from   time.Time
		anchor int
		want   time.Time
	}{
		{"daily", model.FrequencyDaily, day(2024, 2, 28), 0, day(2024, 2, 29)},
		{"weekly across month", model.FrequencyWeekly, day(2024, 1, 29), 0, day(2024, 2, 5)},
		{"monthly mid month", model.FrequencyMonthly, day(2024, 1, 15), 15, day(2024, 2, 15)},
		{"monthly clamps to leap february", model.FrequencyMonthly, day(2024, 1, 31), 31, day(2024, 2, 29)},
		{"monthly clamps to short february", model.FrequencyMonthly, day(2023, 1, 31), 31, day(2023, 2, 28)},
		{"monthly returns to anchor", model.FrequencyMonthly, day(2024, 2, 29), 31, day(2024, 3, 31)},
		{"monthly clamps to 30 days", model.FrequencyMonthly, day(2024, 3, 31), 31, day(2024, 4, 30)},
		{"monthly across year", model.FrequencyMonthly, day(2024, 12, 31), 31, day(2025, 1, 31)},
		{"monthly without anchor", model.FrequencyMonthly, day(2024, 3, 10), 0, day(2024, 4, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.freq.Next(tt.from, tt.anchor))
		})
	}
}

func TestParseFrequency(t *testing.T) {
	f, err := model.ParseFrequency("monthly")
	assert.NoError(t, err)
	assert.Equal(t, model.FrequencyMonthly, f)

	_, err = model.ParseFrequency("hourly")
	assert.Error(t, err)
}
