// Package triage classifies cases into priority archetypes and decides
// which cases belong in the operator's action view. Archetypes are derived
// on read and never stored, so they always reflect current signals.
package triage

import (
	"time"

	"github.com/calloway/dispatchline/internal/models"
)

// Archetype is a triage category for a case.
type Archetype string

const (
	// Hazard covers emergencies and high-urgency calls.
	Hazard Archetype = "HAZARD"
	// Recovery covers red-flagged cases that need saving.
	Recovery Archetype = "RECOVERY"
	// Revenue covers high-value work worth chasing.
	Revenue Archetype = "REVENUE"
	// Logistics is the default bucket for everything else.
	Logistics Archetype = "LOGISTICS"
)

// DefaultRevenueThreshold is the estimated-value floor for the REVENUE rule
// when no configured threshold is supplied.
const DefaultRevenueThreshold = 1500

// Urgency levels that trigger the HAZARD rule.
const (
	UrgencyEmergency = "emergency"
	UrgencyHigh      = "high"
)

// Revenue tiers that trigger the REVENUE rule.
const (
	TierReplacement = "replacement"
	TierMajorRepair = "major_repair"
)

// Classify maps a case's signals to an archetype. Pure: rules are ordered
// and the first match wins, so re-running on unchanged fields always yields
// the same result. A revenueThreshold <= 0 falls back to the default.
func Classify(c *models.Case, revenueThreshold float64) Archetype {
	if revenueThreshold <= 0 {
		revenueThreshold = DefaultRevenueThreshold
	}

	if c.Urgency == UrgencyEmergency || c.Urgency == UrgencyHigh {
		return Hazard
	}
	if c.PriorityColor == models.PriorityRed {
		return Recovery
	}
	// Green alone is sufficient for REVENUE even with no tier or value.
	if c.RevenueTier == TierReplacement || c.RevenueTier == TierMajorRepair {
		return Revenue
	}
	if c.EstimatedValue != nil && *c.EstimatedValue >= revenueThreshold {
		return Revenue
	}
	if c.PriorityColor == models.PriorityGreen {
		return Revenue
	}
	return Logistics
}

// ActionVisible reports whether a case belongs in the triage action view.
// Terminal and confirmed cases, spam, resolved callback complaints, and
// snoozed cases are inbox items, not action items.
func ActionVisible(c *models.Case, now time.Time) bool {
	// Terminal and confirmed statuses. Spam (gray + lost) is covered here
	// since lost is terminal.
	switch c.Status {
	case models.LeadConverted, models.LeadLost, models.JobComplete, models.JobCancelled, models.JobConfirmed:
		return false
	}
	// A callback complaint that has had its callback is resolved.
	if c.IsCallbackComplaint && c.Status == models.LeadCallbackRequested {
		return false
	}
	if c.RemindAt != nil && c.RemindAt.After(now) {
		return false
	}
	return true
}
