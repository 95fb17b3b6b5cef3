package models

import (
	"errors"
	"time"
)

// DetectionType identifies what the AI pipeline detected
type DetectionType string

const (
	DetectionChoking            DetectionType = "Choking"
	DetectionUnsafeSleeping     DetectionType = "UnsafeSleeping"
	DetectionExcessiveCrying    DetectionType = "ExcessiveCrying"
	DetectionMotionDetection    DetectionType = "MotionDetection"
	DetectionSoundDetection     DetectionType = "SoundDetection"
	DetectionTemperatureAnomaly DetectionType = "TemperatureAnomaly"
	DetectionFallDetection      DetectionType = "FallDetection"
	DetectionUnusualPosition    DetectionType = "UnusualPosition"
	DetectionFaceRecognition    DetectionType = "FaceRecognition"
	DetectionNoMovement         DetectionType = "NoMovement"
)

// DetectionSeverity ranks how urgent a detection is
type DetectionSeverity string

const (
	SeverityLow      DetectionSeverity = "Low"
	SeverityMedium   DetectionSeverity = "Medium"
	SeverityHigh     DetectionSeverity = "High"
	SeverityCritical DetectionSeverity = "Critical"
)

// DetectionStatus is the review state of a detection
type DetectionStatus string

const (
	DetectionStatusNew           DetectionStatus = "New"
	DetectionStatusAcknowledged  DetectionStatus = "Acknowledged"
	DetectionStatusInvestigating DetectionStatus = "Investigating"
	DetectionStatusResolved      DetectionStatus = "Resolved"
	DetectionStatusFalsePositive DetectionStatus = "FalsePositive"
)

// AlertMethod is the channel a detection alert went out on
type AlertMethod string

const (
	AlertMethodPush  AlertMethod = "Push"
	AlertMethodEmail AlertMethod = "Email"
	AlertMethodSMS   AlertMethod = "SMS"
	AlertMethodInApp AlertMethod = "InApp"
)

// AlertStatus tracks delivery of a single alert
type AlertStatus string

const (
	AlertStatusSent      AlertStatus = "Sent"
	AlertStatusDelivered AlertStatus = "Delivered"
	AlertStatusRead      AlertStatus = "Read"
	AlertStatusFailed    AlertStatus = "Failed"
)

// AlertAction is what the recipient did about the alert
type AlertAction string

const (
	ActionAcknowledged AlertAction = "Acknowledged"
	ActionDismissed    AlertAction = "Dismissed"
	ActionEscalated    AlertAction = "Escalated"
	ActionResolved     AlertAction = "Resolved"
)

// MaxEscalationLevel caps how far an unresolved detection can escalate
const MaxEscalationLevel = 5

// BoundingBox is the region of the frame where the detection fired
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DetectionData carries the raw sensor readings behind a detection.
// Stored as a JSON column since the shape varies by detection type.
type DetectionData struct {
	BoundingBox    *BoundingBox `json:"bounding_box,omitempty"`
	MotionLevel    *float64     `json:"motion_level,omitempty"`
	SoundLevel     *float64     `json:"sound_level,omitempty"`
	Temperature    *float64     `json:"temperature,omitempty"`
	Duration       *float64     `json:"duration,omitempty"`
	FrameTimestamp *time.Time   `json:"frame_timestamp,omitempty"`
	ImageURL       string       `json:"image_url,omitempty"`
	VideoClipURL   string       `json:"video_clip_url,omitempty"`
}

// Detection is one AI detection event tied to a monitoring session
type Detection struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	BabyID    uint               `gorm:"not null;index" json:"baby_id"`
	Baby      *Baby              `gorm:"foreignKey:BabyID" json:"baby,omitempty"`
	SessionID uint               `gorm:"not null;index" json:"session_id"`
	Session   *MonitoringSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`

	Type     DetectionType     `gorm:"type:varchar(30);not null;index" json:"type"`
	Severity DetectionSeverity `gorm:"type:varchar(10);not null" json:"severity"`
	Status   DetectionStatus   `gorm:"type:varchar(15);not null;default:'New';index" json:"status"`

	// Confidence is the model score in [0, 1]
	Confidence float64 `gorm:"not null" json:"confidence"`

	Description string        `gorm:"type:varchar(500)" json:"description,omitempty"`
	Data        DetectionData `gorm:"serializer:json" json:"data"`

	Alerts      []DetectionAlert   `gorm:"foreignKey:DetectionID" json:"alerts,omitempty"`
	Escalations []EscalationRecord `gorm:"foreignKey:DetectionID" json:"escalations,omitempty"`

	EscalationLevel int `gorm:"default:0" json:"escalation_level"`

	ResolvedByID    *uint      `json:"resolved_by_id,omitempty"`
	ResolvedBy      *User      `gorm:"foreignKey:ResolvedByID" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string     `gorm:"type:varchar(1000)" json:"resolution_notes,omitempty"`

	DetectedAt time.Time `gorm:"not null;index" json:"detected_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DetectionAlert is one alert sent to one recipient for a detection
type DetectionAlert struct {
	ID          uint  `gorm:"primaryKey" json:"id"`
	DetectionID uint  `gorm:"not null;index" json:"detection_id"`
	UserID      uint  `gorm:"not null" json:"user_id"`
	User        *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Method AlertMethod `gorm:"type:varchar(10);not null" json:"method"`
	Status AlertStatus `gorm:"type:varchar(10);not null;default:'Sent'" json:"status"`

	Action  *AlertAction `gorm:"type:varchar(15)" json:"action,omitempty"`
	ActedAt *time.Time   `json:"acted_at,omitempty"`

	SentAt    time.Time `gorm:"not null" json:"sent_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EscalationRecord is one step in a detection's escalation history,
// naming the user it was escalated to
type EscalationRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DetectionID uint      `gorm:"not null;index" json:"detection_id"`
	UserID      uint      `gorm:"not null" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Level       int       `gorm:"not null" json:"level"`
	Reason      string    `gorm:"type:varchar(500)" json:"reason"`
	EscalatedAt time.Time `gorm:"not null" json:"escalated_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsSafetyRisk reports whether the severity counts as a safety incident,
// regardless of detection type
func (s DetectionSeverity) IsSafetyRisk() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// ValidDetectionType reports whether the type is one the pipeline can emit
func ValidDetectionType(t DetectionType) bool {
	switch t {
	case DetectionChoking, DetectionUnsafeSleeping, DetectionExcessiveCrying,
		DetectionMotionDetection, DetectionSoundDetection, DetectionTemperatureAnomaly,
		DetectionFallDetection, DetectionUnusualPosition, DetectionFaceRecognition,
		DetectionNoMovement:
		return true
	}
	return false
}

// ValidSeverity reports whether the severity is a known rank
func ValidSeverity(s DetectionSeverity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions
// apart from overwriting the resolution
func (s DetectionStatus) IsTerminal() bool {
	return s == DetectionStatusResolved || s == DetectionStatusFalsePositive
}

// CanTransitionTo reports whether a status change is allowed. New
// detections may move to any review state; acknowledged and investigating
// detections may only move forward; resolved states accept a repeated
// resolution so late callers stay idempotent.
func (s DetectionStatus) CanTransitionTo(next DetectionStatus) bool {
	switch s {
	case DetectionStatusNew:
		return next == DetectionStatusAcknowledged || next == DetectionStatusInvestigating ||
			next == DetectionStatusResolved || next == DetectionStatusFalsePositive
	case DetectionStatusAcknowledged:
		return next == DetectionStatusInvestigating || next == DetectionStatusResolved ||
			next == DetectionStatusFalsePositive
	case DetectionStatusInvestigating:
		return next == DetectionStatusResolved || next == DetectionStatusFalsePositive
	case DetectionStatusResolved, DetectionStatusFalsePositive:
		return next == DetectionStatusResolved || next == DetectionStatusFalsePositive
	}
	return false
}

// Resolve marks the detection resolved by a user. Resolving an already
// resolved detection overwrites the previous resolution.
func (d *Detection) Resolve(userID uint, notes string) {
	now := time.Now()
	d.Status = DetectionStatusResolved
	d.ResolvedByID = &userID
	d.ResolvedAt = &now
	d.ResolutionNotes = notes
}

// MarkFalsePositive marks the detection as a false alarm
func (d *Detection) MarkFalsePositive(userID uint, notes string) {
	now := time.Now()
	d.Status = DetectionStatusFalsePositive
	d.ResolvedByID = &userID
	d.ResolvedAt = &now
	d.ResolutionNotes = notes
}

// Escalate raises the escalation level by one and records the step with
// the user the detection was escalated to. The level never decreases and
// never exceeds MaxEscalationLevel.
func (d *Detection) Escalate(toUserID uint, reason string) (*EscalationRecord, error) {
	if d.Status.IsTerminal() {
		return nil, errors.New("cannot escalate a resolved detection")
	}
	if d.EscalationLevel >= MaxEscalationLevel {
		return nil, errors.New("detection is already at maximum escalation level")
	}
	d.EscalationLevel++
	record := EscalationRecord{
		DetectionID: d.ID,
		UserID:      toUserID,
		Level:       d.EscalationLevel,
		Reason:      reason,
		EscalatedAt: time.Now(),
	}
	d.Escalations = append(d.Escalations, record)
	return &d.Escalations[len(d.Escalations)-1], nil
}

// SeverityColor returns a display color for the severity, used by clients
// to render alert badges
func (s DetectionSeverity) SeverityColor() string {
	switch s {
	case SeverityCritical:
		return "#FF0000"
	case SeverityHigh:
		return "#FF6600"
	case SeverityMedium:
		return "#FFCC00"
	default:
		return "#00CC00"
	}
}
