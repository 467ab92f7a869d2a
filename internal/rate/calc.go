// Package rate computes session costs. It is pure: no clock, no storage.
package rate

import (
	"time"

	"billiard-venue-backend/internal/apperr"
	"billiard-venue-backend/internal/model"
)

// SessionTotal computes the amount owed at session creation. Prepaid types
// (HOURLY, MANUAL) charge the committed duration up front; PACKAGE charges
// the package's fixed price and ignores the clock; OWNER_LOCK is free;
// FLEXIBLE owes nothing until stop.
func SessionTotal(rateType model.RateType, ratePerHour int64, minutes int, packagePrice *int64) int64 {
	switch rateType {
	case model.RateHourly, model.RateManual:
		return prorated(ratePerHour, minutes)
	case model.RatePackage:
		if packagePrice != nil {
			return *packagePrice
		}
		return 0
	default: // OWNER_LOCK, FLEXIBLE
		return 0
	}
}

// ExtensionCost computes the additional amount for an extension. A package
// attached to the extension overrides the per-minute computation.
func ExtensionCost(ratePerHour int64, additionalMinutes int, packagePrice *int64) int64 {
	if packagePrice != nil {
		return *packagePrice
	}
	return prorated(ratePerHour, additionalMinutes)
}

// FlexibleTotal computes the final amount of a FLEXIBLE session: elapsed
// time rounded up to the next full hour.
func FlexibleTotal(ratePerHour int64, start, end time.Time) int64 {
	if !end.After(start) {
		return 0
	}
	minutes := int64(end.Sub(start) / time.Minute)
	if end.Sub(start)%time.Minute > 0 {
		minutes++
	}
	hours := minutes / 60
	if minutes%60 > 0 {
		hours++
	}
	return hours * ratePerHour
}

// prorated charges ratePerHour for the given minutes, rounded up to whole
// currency units.
func prorated(ratePerHour int64, minutes int) int64 {
	if minutes <= 0 {
		return 0
	}
	return (ratePerHour*int64(minutes) + 59) / 60
}

// ValidateStartDuration enforces the duration granularity for a normal
// session start. OWNER_LOCK sessions bypass this entirely.
func ValidateStartDuration(minutes, minMinutes, stepMinutes int) error {
	if minutes < minMinutes {
		return apperr.Validation("duration must be at least %d minutes", minMinutes)
	}
	if minutes%stepMinutes != 0 {
		return apperr.Validation("duration must be a multiple of %d minutes", stepMinutes)
	}
	return nil
}

// ValidateExtensionDuration enforces the duration granularity for an
// extension.
func ValidateExtensionDuration(minutes, minMinutes, stepMinutes int) error {
	if minutes < minMinutes {
		return apperr.Validation("extension must be at least %d minutes", minMinutes)
	}
	if minutes%stepMinutes != 0 {
		return apperr.Validation("extension must be a multiple of %d minutes", stepMinutes)
	}
	return nil
}
