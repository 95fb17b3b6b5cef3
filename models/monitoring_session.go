package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SessionType describes why a monitoring session was started
type SessionType string

const (
	SessionTypeSleep      SessionType = "Sleep"
	SessionTypePlay       SessionType = "Play"
	SessionTypeFeeding    SessionType = "Feeding"
	SessionTypeGeneral    SessionType = "General"
	SessionTypeNightWatch SessionType = "NightWatch"
)

// SessionStatus is the lifecycle state of a monitoring session
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "Active"
	SessionStatusPaused SessionStatus = "Paused"
	SessionStatusEnded  SessionStatus = "Ended"
	SessionStatusError  SessionStatus = "Error"
)

// SessionAlertType categorizes alerts raised during a session
type SessionAlertType string

const (
	SessionAlertSafety    SessionAlertType = "Safety"
	SessionAlertHealth    SessionAlertType = "Health"
	SessionAlertMovement  SessionAlertType = "Movement"
	SessionAlertSound     SessionAlertType = "Sound"
	SessionAlertTechnical SessionAlertType = "Technical"
)

// SessionSettings controls what a session records and reacts to
type SessionSettings struct {
	VideoQuality     string `gorm:"type:varchar(10);default:'720p'" json:"video_quality"`
	AudioEnabled     bool   `gorm:"default:true" json:"audio_enabled"`
	NightVision      bool   `gorm:"default:false" json:"night_vision"`
	MotionDetection  bool   `gorm:"default:true" json:"motion_detection"`
	SoundDetection   bool   `gorm:"default:true" json:"sound_detection"`
	SafetyAlerts     bool   `gorm:"default:true" json:"safety_alerts"`
	RecordingEnabled bool   `gorm:"default:false" json:"recording_enabled"`
}

// DefaultSessionSettings returns the settings a session starts with when
// the caller does not supply any
func DefaultSessionSettings() SessionSettings {
	return SessionSettings{
		VideoQuality:     "720p",
		AudioEnabled:     true,
		NightVision:      false,
		MotionDetection:  true,
		SoundDetection:   true,
		SafetyAlerts:     true,
		RecordingEnabled: false,
	}
}

// SettingsPatch is a partial settings update. Nil fields keep their
// current value.
type SettingsPatch struct {
	VideoQuality     *string `json:"video_quality,omitempty"`
	AudioEnabled     *bool   `json:"audio_enabled,omitempty"`
	NightVision      *bool   `json:"night_vision,omitempty"`
	MotionDetection  *bool   `json:"motion_detection,omitempty"`
	SoundDetection   *bool   `json:"sound_detection,omitempty"`
	SafetyAlerts     *bool   `json:"safety_alerts,omitempty"`
	RecordingEnabled *bool   `json:"recording_enabled,omitempty"`
}

// Apply merges the patch into the settings, field by field
func (p SettingsPatch) Apply(s *SessionSettings) {
	if p.VideoQuality != nil {
		s.VideoQuality = *p.VideoQuality
	}
	if p.AudioEnabled != nil {
		s.AudioEnabled = *p.AudioEnabled
	}
	if p.NightVision != nil {
		s.NightVision = *p.NightVision
	}
	if p.MotionDetection != nil {
		s.MotionDetection = *p.MotionDetection
	}
	if p.SoundDetection != nil {
		s.SoundDetection = *p.SoundDetection
	}
	if p.SafetyAlerts != nil {
		s.SafetyAlerts = *p.SafetyAlerts
	}
	if p.RecordingEnabled != nil {
		s.RecordingEnabled = *p.RecordingEnabled
	}
}

// SessionStatistics aggregates detection activity over a session
type SessionStatistics struct {
	TotalDetections    int     `gorm:"default:0" json:"total_detections"`
	SafetyIncidents    int     `gorm:"default:0" json:"safety_incidents"`
	MovementEvents     int     `gorm:"default:0" json:"movement_events"`
	SoundEvents        int     `gorm:"default:0" json:"sound_events"`
	AverageMotionLevel float64 `gorm:"default:0" json:"average_motion_level"`
	AverageSoundLevel  float64 `gorm:"default:0" json:"average_sound_level"`
}

// FoldMotionLevel folds a new motion reading into the running average.
// The average is a rolling midpoint between the previous average and the
// new reading, which weighs recent activity more heavily than a plain mean.
func (s *SessionStatistics) FoldMotionLevel(level float64) {
	s.AverageMotionLevel = (s.AverageMotionLevel + level) / 2
}

// FoldSoundLevel folds a new sound reading into the running average
func (s *SessionStatistics) FoldSoundLevel(level float64) {
	s.AverageSoundLevel = (s.AverageSoundLevel + level) / 2
}

// MonitoringSession is one continuous monitoring run for a baby
type MonitoringSession struct {
	ID     uint  `gorm:"primaryKey" json:"id"`
	BabyID uint  `gorm:"not null;index" json:"baby_id"`
	Baby   *Baby `gorm:"foreignKey:BabyID" json:"baby,omitempty"`

	// User who started the session
	StartedByID uint  `gorm:"not null" json:"started_by_id"`
	StartedBy   *User `gorm:"foreignKey:StartedByID" json:"started_by,omitempty"`

	SessionType SessionType   `gorm:"type:varchar(20);not null;default:'General'" json:"session_type"`
	Status      SessionStatus `gorm:"type:varchar(10);not null;default:'Active'" json:"status"`

	// ActiveKey mirrors BabyID while the session is active and is cleared
	// when it ends. The unique index lets the database reject a second
	// active session for the same baby, so two concurrent starts cannot
	// both succeed.
	ActiveKey *uint `gorm:"uniqueIndex" json:"-"`

	StartTime time.Time  `gorm:"not null" json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// DurationSeconds is frozen when the session ends (whole seconds,
	// rounded down). Zero while the session is still running.
	DurationSeconds int64 `gorm:"default:0" json:"duration"`

	Settings   SessionSettings   `gorm:"embedded;embeddedPrefix:setting_" json:"settings"`
	Statistics SessionStatistics `gorm:"embedded;embeddedPrefix:stat_" json:"statistics"`

	Alerts  []SessionAlert  `gorm:"foreignKey:SessionID" json:"alerts,omitempty"`
	Devices []SessionDevice `gorm:"foreignKey:SessionID" json:"devices,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionAlert is an alert raised during a monitoring session
type SessionAlert struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	SessionID uint              `gorm:"not null;index" json:"session_id"`
	Type      SessionAlertType  `gorm:"type:varchar(20);not null" json:"type"`
	Message   string            `gorm:"type:varchar(500);not null" json:"message"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`

	Acknowledged     bool       `gorm:"default:false" json:"acknowledged"`
	AcknowledgedByID *uint      `json:"acknowledged_by_id,omitempty"`
	AcknowledgedAt   *time.Time `json:"acknowledged_at,omitempty"`

	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionDevice records a camera or sensor participating in a session.
// LeftAt is set when the session ends or the device drops out.
type SessionDevice struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SessionID  uint       `gorm:"not null;index" json:"session_id"`
	DeviceID   string     `gorm:"type:varchar(100);not null" json:"device_id"`
	DeviceType string     `gorm:"type:varchar(50)" json:"device_type"`
	LeftAt     *time.Time `json:"left_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsActive reports whether the session is still running
func (m *MonitoringSession) IsActive() bool {
	return m.Status == SessionStatusActive
}

// End closes the session. The active key is cleared so a new session for
// the same baby can start. Ending twice is a no-op on the second call.
func (m *MonitoringSession) End() {
	if m.Status == SessionStatusEnded {
		return
	}
	now := time.Now()
	m.Status = SessionStatusEnded
	m.EndTime = &now
	m.DurationSeconds = int64(now.Sub(m.StartTime).Seconds())
	m.ActiveKey = nil
}

// AddAlert appends an alert to the session
func (m *MonitoringSession) AddAlert(alertType SessionAlertType, message string, metadata map[string]interface{}) *SessionAlert {
	alert := SessionAlert{
		SessionID: m.ID,
		Type:      alertType,
		Message:   message,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}
	m.Alerts = append(m.Alerts, alert)
	return &m.Alerts[len(m.Alerts)-1]
}

// AcknowledgeAlert marks an alert acknowledged by a user
func (a *SessionAlert) Acknowledge(userID uint) {
	if a.Acknowledged {
		return
	}
	now := time.Now()
	a.Acknowledged = true
	a.AcknowledgedByID = &userID
	a.AcknowledgedAt = &now
}

// Duration returns how long the session has run, using the end time for
// ended sessions and the current time otherwise
func (m *MonitoringSession) Duration() time.Duration {
	if m.EndTime != nil {
		return m.EndTime.Sub(m.StartTime)
	}
	return time.Since(m.StartTime)
}

// DurationFormatted returns the duration as "1h 23m" style text
func (m *MonitoringSession) DurationFormatted() string {
	d := m.Duration()
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// ValidSessionType reports whether the session type is a known value
func ValidSessionType(t SessionType) bool {
	switch t {
	case SessionTypeSleep, SessionTypePlay, SessionTypeFeeding, SessionTypeGeneral, SessionTypeNightWatch:
		return true
	}
	return false
}
