package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectionStatusTransitions(t *testing.T) {
	tests := []struct {
		from    DetectionStatus
		to      DetectionStatus
		allowed bool
	}{
		{DetectionStatusNew, DetectionStatusAcknowledged, true},
		{DetectionStatusNew, DetectionStatusInvestigating, true},
		{DetectionStatusNew, DetectionStatusResolved, true},
		{DetectionStatusNew, DetectionStatusFalsePositive, true},
		{DetectionStatusAcknowledged, DetectionStatusInvestigating, true},
		{DetectionStatusAcknowledged, DetectionStatusResolved, true},
		{DetectionStatusAcknowledged, DetectionStatusNew, false},
		{DetectionStatusInvestigating, DetectionStatusResolved, true},
		{DetectionStatusInvestigating, DetectionStatusFalsePositive, true},
		{DetectionStatusInvestigating, DetectionStatusAcknowledged, false},
		// Closed detections only accept a repeated resolution
		{DetectionStatusResolved, DetectionStatusFalsePositive, true},
		{DetectionStatusResolved, DetectionStatusResolved, true},
		{DetectionStatusResolved, DetectionStatusInvestigating, false},
		{DetectionStatusFalsePositive, DetectionStatusResolved, true},
		{DetectionStatusFalsePositive, DetectionStatusNew, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestDetectionStatusIsTerminal(t *testing.T) {
	assert.True(t, DetectionStatusResolved.IsTerminal())
	assert.True(t, DetectionStatusFalsePositive.IsTerminal())
	assert.False(t, DetectionStatusNew.IsTerminal())
	assert.False(t, DetectionStatusAcknowledged.IsTerminal())
	assert.False(t, DetectionStatusInvestigating.IsTerminal())
}

func TestDetectionResolveOverwrites(t *testing.T) {
	detection := &Detection{Status: DetectionStatusInvestigating}

	detection.Resolve(3, "all clear")
	assert.Equal(t, DetectionStatusResolved, detection.Status)
	assert.Equal(t, uint(3), *detection.ResolvedByID)
	assert.Equal(t, "all clear", detection.ResolutionNotes)

	// A later reviewer may overturn the call
	detection.MarkFalsePositive(5, "shadow on the lens")
	assert.Equal(t, DetectionStatusFalsePositive, detection.Status)
	assert.Equal(t, uint(5), *detection.ResolvedByID)
	assert.Equal(t, "shadow on the lens", detection.ResolutionNotes)
}

func TestDetectionEscalate(t *testing.T) {
	detection := &Detection{ID: 1, Status: DetectionStatusNew}

	for level := 1; level <= MaxEscalationLevel; level++ {
		record, err := detection.Escalate(7, "no response")
		require.NoError(t, err)
		assert.Equal(t, level, record.Level)
		assert.Equal(t, uint(7), record.UserID, "the record names who it went to")
		assert.Equal(t, level, detection.EscalationLevel)
	}

	_, err := detection.Escalate(7, "past the cap")
	assert.Error(t, err)
	assert.Equal(t, MaxEscalationLevel, detection.EscalationLevel)
	assert.Len(t, detection.Escalations, MaxEscalationLevel)
}

func TestDetectionEscalateTerminal(t *testing.T) {
	detection := &Detection{Status: DetectionStatusResolved}

	_, err := detection.Escalate(7, "too late")
	assert.Error(t, err)
	assert.Zero(t, detection.EscalationLevel)
}

func TestIsSafetyRisk(t *testing.T) {
	// Severity alone decides: a critical motion event is a safety
	// incident, a low-severity choking event is not
	assert.True(t, SeverityCritical.IsSafetyRisk())
	assert.True(t, SeverityHigh.IsSafetyRisk())
	assert.False(t, SeverityMedium.IsSafetyRisk())
	assert.False(t, SeverityLow.IsSafetyRisk())
}

func TestValidDetectionType(t *testing.T) {
	assert.True(t, ValidDetectionType(DetectionChoking))
	assert.True(t, ValidDetectionType(DetectionFaceRecognition))
	assert.False(t, ValidDetectionType("Sneezing"))
}

func TestValidSeverity(t *testing.T) {
	assert.True(t, ValidSeverity(SeverityCritical))
	assert.False(t, ValidSeverity("Extreme"))
}

func TestSeverityColor(t *testing.T) {
	assert.Equal(t, "#FF0000", SeverityCritical.SeverityColor())
	assert.Equal(t, "#00CC00", SeverityLow.SeverityColor())
}
