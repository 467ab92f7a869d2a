package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"billiard-venue-backend/internal/model"
)

func TestSessionTotal(t *testing.T) {
	pkgPrice := int64(80000)

	testCases := []struct {
		name         string
		rateType     model.RateType
		ratePerHour  int64
		minutes      int
		packagePrice *int64
		expected     int64
	}{
		{
			name:        "hourly one hour",
			rateType:    model.RateHourly,
			ratePerHour: 30000,
			minutes:     60,
			expected:    30000,
		},
		{
			name:        "hourly ninety minutes",
			rateType:    model.RateHourly,
			ratePerHour: 30000,
			minutes:     90,
			expected:    45000,
		},
		{
			name:        "hourly rounds up to whole unit",
			rateType:    model.RateHourly,
			ratePerHour: 25,
			minutes:     90, // 25*90/60 = 37.5
			expected:    38,
		},
		{
			name:        "manual same formula as hourly",
			rateType:    model.RateManual,
			ratePerHour: 40000,
			minutes:     120,
			expected:    80000,
		},
		{
			name:         "package ignores the clock",
			rateType:     model.RatePackage,
			ratePerHour:  30000,
			minutes:      45,
			packagePrice: &pkgPrice,
			expected:     80000,
		},
		{
			name:        "owner lock is free",
			rateType:    model.RateOwnerLock,
			ratePerHour: 30000,
			minutes:     600,
			expected:    0,
		},
		{
			name:        "flexible owes nothing until stop",
			rateType:    model.RateFlexible,
			ratePerHour: 30000,
			minutes:     60,
			expected:    0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := SessionTotal(tc.rateType, tc.ratePerHour, tc.minutes, tc.packagePrice)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestExtensionCost(t *testing.T) {
	assert.Equal(t, int64(15000), ExtensionCost(30000, 30, nil))
	assert.Equal(t, int64(7500), ExtensionCost(30000, 15, nil))

	pkgPrice := int64(50000)
	assert.Equal(t, int64(50000), ExtensionCost(30000, 30, &pkgPrice))
}

func TestFlexibleTotal(t *testing.T) {
	start := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		end      time.Time
		expected int64
	}{
		{"exactly one hour", start.Add(60 * time.Minute), 30000},
		{"one minute over rounds up", start.Add(61 * time.Minute), 60000},
		{"ten minutes bills a full hour", start.Add(10 * time.Minute), 30000},
		{"two and a half hours bills three", start.Add(150 * time.Minute), 90000},
		{"end before start owes nothing", start.Add(-time.Minute), 0},
		{"partial minute rounds up", start.Add(60*time.Minute + 30*time.Second), 60000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FlexibleTotal(30000, start, tc.end))
		})
	}
}

func TestValidateStartDuration(t *testing.T) {
	assert.NoError(t, ValidateStartDuration(60, 60, 60))
	assert.NoError(t, ValidateStartDuration(180, 60, 60))
	assert.Error(t, ValidateStartDuration(30, 60, 60))
	assert.Error(t, ValidateStartDuration(90, 60, 60))
}

func TestValidateExtensionDuration(t *testing.T) {
	assert.NoError(t, ValidateExtensionDuration(15, 15, 15))
	assert.NoError(t, ValidateExtensionDuration(30, 15, 15))
	assert.Error(t, ValidateExtensionDuration(10, 15, 15))
	assert.Error(t, ValidateExtensionDuration(20, 15, 15))
}
