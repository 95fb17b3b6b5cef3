package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSessionSettings(t *testing.T) {
	settings := DefaultSessionSettings()

	assert.Equal(t, "720p", settings.VideoQuality)
	assert.True(t, settings.AudioEnabled)
	assert.False(t, settings.NightVision)
	assert.True(t, settings.MotionDetection)
	assert.True(t, settings.SoundDetection)
	assert.True(t, settings.SafetyAlerts)
	assert.False(t, settings.RecordingEnabled)
}

func TestSettingsPatchApply(t *testing.T) {
	settings := DefaultSessionSettings()

	quality := "1080p"
	nightVision := true
	patch := SettingsPatch{
		VideoQuality: &quality,
		NightVision:  &nightVision,
	}
	patch.Apply(&settings)

	assert.Equal(t, "1080p", settings.VideoQuality)
	assert.True(t, settings.NightVision)
	// Untouched fields keep their values
	assert.True(t, settings.AudioEnabled)
	assert.True(t, settings.SafetyAlerts)

	// An empty patch changes nothing
	before := settings
	SettingsPatch{}.Apply(&settings)
	assert.Equal(t, before, settings)
}

func TestFoldMotionLevel(t *testing.T) {
	stats := SessionStatistics{}

	// The average starts at zero and halves toward each new reading
	stats.FoldMotionLevel(40)
	assert.Equal(t, 20.0, stats.AverageMotionLevel)

	stats.FoldMotionLevel(60)
	assert.Equal(t, 40.0, stats.AverageMotionLevel)
}

func TestFoldSoundLevel(t *testing.T) {
	stats := SessionStatistics{}

	stats.FoldSoundLevel(80)
	assert.Equal(t, 40.0, stats.AverageSoundLevel)

	stats.FoldSoundLevel(40)
	assert.Equal(t, 40.0, stats.AverageSoundLevel)
}

func TestSessionEnd(t *testing.T) {
	babyID := uint(1)
	session := &MonitoringSession{
		BabyID:    babyID,
		Status:    SessionStatusActive,
		ActiveKey: &babyID,
		StartTime: time.Now().Add(-time.Hour),
	}

	session.End()

	assert.Equal(t, SessionStatusEnded, session.Status)
	assert.NotNil(t, session.EndTime)
	assert.Nil(t, session.ActiveKey, "active key must clear so a new session can start")

	// The duration freezes in whole seconds, rounded down
	want := int64(session.EndTime.Sub(session.StartTime).Seconds())
	assert.Equal(t, want, session.DurationSeconds)
	assert.GreaterOrEqual(t, session.DurationSeconds, int64(3599))

	// Ending again keeps the original end time and duration
	firstEnd := *session.EndTime
	session.End()
	assert.Equal(t, firstEnd, *session.EndTime)
	assert.Equal(t, want, session.DurationSeconds)
}

func TestSessionAddAlert(t *testing.T) {
	session := &MonitoringSession{ID: 5}

	alert := session.AddAlert(SessionAlertSafety, "baby rolled over", map[string]interface{}{
		"detection_id": 12,
	})

	assert.Len(t, session.Alerts, 1)
	assert.Equal(t, uint(5), alert.SessionID)
	assert.Equal(t, SessionAlertSafety, alert.Type)
	assert.False(t, alert.Acknowledged)
}

func TestSessionAlertAcknowledge(t *testing.T) {
	alert := &SessionAlert{}

	alert.Acknowledge(7)
	assert.True(t, alert.Acknowledged)
	assert.Equal(t, uint(7), *alert.AcknowledgedByID)
	firstAck := *alert.AcknowledgedAt

	// Acknowledging twice keeps the first acknowledger
	alert.Acknowledge(9)
	assert.Equal(t, uint(7), *alert.AcknowledgedByID)
	assert.Equal(t, firstAck, *alert.AcknowledgedAt)
}

func TestSessionDuration(t *testing.T) {
	start := time.Now().Add(-90 * time.Minute)
	end := start.Add(85 * time.Minute)
	session := &MonitoringSession{StartTime: start, EndTime: &end}

	assert.Equal(t, 85*time.Minute, session.Duration())
	assert.Equal(t, "1h 25m", session.DurationFormatted())

	short := &MonitoringSession{StartTime: start, EndTime: &start}
	assert.Equal(t, "0m", short.DurationFormatted())
}

func TestValidSessionType(t *testing.T) {
	assert.True(t, ValidSessionType(SessionTypeSleep))
	assert.True(t, ValidSessionType(SessionTypeNightWatch))
	assert.False(t, ValidSessionType("Nap"))
}
