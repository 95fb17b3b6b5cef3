package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"angeleyes-http-service/models"
)

type detectionEnv struct {
	db         *gorm.DB
	family     *family
	monitoring InterfaceMonitoringService
	detections InterfaceDetectionService
	hub        InterfaceNotificationService
	push       *recordingPush
	session    *models.MonitoringSession
}

// newDetectionEnv seeds a family and starts an active monitoring session
func newDetectionEnv(t *testing.T) *detectionEnv {
	t.Helper()

	db := setupTestDB(t)
	f := seedFamily(t, db)
	babyService := NewBabyService(db, testConfig(), nil)
	hub := NewNotificationHub()
	push := &recordingPush{}

	monitoring := NewMonitoringService(db, testConfig(), babyService, hub)
	detections := NewDetectionService(db, testConfig(), babyService, hub, push, nil)

	session, err := monitoring.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeSleep, nil, nil)
	require.NoError(t, err)

	return &detectionEnv{
		db:         db,
		family:     f,
		monitoring: monitoring,
		detections: detections,
		hub:        hub,
		push:       push,
		session:    session,
	}
}

func (e *detectionEnv) ingest(t *testing.T, input DetectionInput) *models.Detection {
	t.Helper()
	input.BabyID = e.family.Baby.ID
	input.SessionID = e.session.ID
	detection, err := e.detections.IngestDetection(&input)
	require.NoError(t, err)
	return detection
}

func (e *detectionEnv) reloadSession(t *testing.T) *models.MonitoringSession {
	t.Helper()
	var session models.MonitoringSession
	require.NoError(t, e.db.First(&session, e.session.ID).Error)
	return &session
}

func TestIngestDetectionUpdatesStatistics(t *testing.T) {
	env := newDetectionEnv(t)

	motion := 40.0
	env.ingest(t, DetectionInput{
		Type:       models.DetectionMotionDetection,
		Severity:   models.SeverityLow,
		Confidence: 0.85,
		Data:       models.DetectionData{MotionLevel: &motion},
	})

	sound := 80.0
	env.ingest(t, DetectionInput{
		Type:       models.DetectionSoundDetection,
		Severity:   models.SeverityLow,
		Confidence: 0.7,
		Data:       models.DetectionData{SoundLevel: &sound},
	})

	session := env.reloadSession(t)
	assert.Equal(t, 2, session.Statistics.TotalDetections)
	assert.Equal(t, 1, session.Statistics.MovementEvents)
	assert.Equal(t, 1, session.Statistics.SoundEvents)
	assert.Equal(t, 0, session.Statistics.SafetyIncidents)
	// Averages start at zero and fold halfway toward each reading
	assert.Equal(t, 20.0, session.Statistics.AverageMotionLevel)
	assert.Equal(t, 40.0, session.Statistics.AverageSoundLevel)

	// A second motion reading folds against the stored average
	motion = 60.0
	env.ingest(t, DetectionInput{
		Type:       models.DetectionMotionDetection,
		Severity:   models.SeverityLow,
		Confidence: 0.85,
		Data:       models.DetectionData{MotionLevel: &motion},
	})
	session = env.reloadSession(t)
	assert.Equal(t, 2, session.Statistics.MovementEvents)
	assert.Equal(t, 40.0, session.Statistics.AverageMotionLevel)
}

func TestIngestCryingIsNotASoundEvent(t *testing.T) {
	env := newDetectionEnv(t)

	// A crying detection may carry a sound level, but only SoundDetection
	// events feed the sound statistics
	sound := 90.0
	env.ingest(t, DetectionInput{
		Type:       models.DetectionExcessiveCrying,
		Severity:   models.SeverityMedium,
		Confidence: 0.8,
		Data:       models.DetectionData{SoundLevel: &sound},
	})

	session := env.reloadSession(t)
	assert.Equal(t, 1, session.Statistics.TotalDetections)
	assert.Equal(t, 0, session.Statistics.SoundEvents)
	assert.Equal(t, 0.0, session.Statistics.AverageSoundLevel)
}

func TestIngestSafetyDetection(t *testing.T) {
	env := newDetectionEnv(t)

	detection := env.ingest(t, DetectionInput{
		Type:        models.DetectionChoking,
		Severity:    models.SeverityCritical,
		Confidence:  0.95,
		Description: "possible choking detected",
	})

	// Counted exactly once
	session := env.reloadSession(t)
	assert.Equal(t, 1, session.Statistics.SafetyIncidents)
	assert.Equal(t, 1, session.Statistics.TotalDetections)

	// A safety alert lands on the session record
	var sessionAlerts []models.SessionAlert
	require.NoError(t, env.db.Where("session_id = ?", env.session.ID).Find(&sessionAlerts).Error)
	require.Len(t, sessionAlerts, 1)
	assert.Equal(t, models.SessionAlertSafety, sessionAlerts[0].Type)
	assert.Equal(t, "possible choking detected", sessionAlerts[0].Message)

	// The parent and the alert-receiving caregiver get alert records, the
	// sitter without receiveAlerts does not
	var alerts []models.DetectionAlert
	require.NoError(t, env.db.Where("detection_id = ?", detection.ID).Find(&alerts).Error)
	recipients := make([]uint, 0, len(alerts))
	for _, a := range alerts {
		assert.Equal(t, models.AlertMethodPush, a.Method)
		assert.Equal(t, models.AlertStatusSent, a.Status)
		recipients = append(recipients, a.UserID)
	}
	assert.ElementsMatch(t, []uint{env.family.Parent.ID, env.family.Caregiver.ID}, recipients)
}

func TestIngestSafetyAlertDisabled(t *testing.T) {
	env := newDetectionEnv(t)

	off := false
	_, err := env.monitoring.UpdateSettings(env.session.ID, env.family.Parent.ID, models.SettingsPatch{SafetyAlerts: &off})
	require.NoError(t, err)

	env.ingest(t, DetectionInput{
		Type:       models.DetectionUnsafeSleeping,
		Severity:   models.SeverityHigh,
		Confidence: 0.9,
	})

	// The incident still counts, but no session alert is written
	session := env.reloadSession(t)
	assert.Equal(t, 1, session.Statistics.SafetyIncidents)

	var sessionAlerts []models.SessionAlert
	require.NoError(t, env.db.Where("session_id = ?", env.session.ID).Find(&sessionAlerts).Error)
	assert.Empty(t, sessionAlerts)
}

func TestIngestLowSeverityStillAlerts(t *testing.T) {
	env := newDetectionEnv(t)

	// Even a low-severity fall reaches every recipient; severity decides
	// whether it counts as a safety incident, never whether anyone hears
	// about it
	detection := env.ingest(t, DetectionInput{
		Type:       models.DetectionFallDetection,
		Severity:   models.SeverityLow,
		Confidence: 0.6,
	})

	var alerts []models.DetectionAlert
	require.NoError(t, env.db.Where("detection_id = ?", detection.ID).Find(&alerts).Error)
	recipients := make([]uint, 0, len(alerts))
	for _, a := range alerts {
		recipients = append(recipients, a.UserID)
	}
	assert.ElementsMatch(t, []uint{env.family.Parent.ID, env.family.Caregiver.ID}, recipients)

	session := env.reloadSession(t)
	assert.Equal(t, 0, session.Statistics.SafetyIncidents)

	var sessionAlerts []models.SessionAlert
	require.NoError(t, env.db.Where("session_id = ?", env.session.ID).Find(&sessionAlerts).Error)
	assert.Empty(t, sessionAlerts)
}

func TestIngestCriticalMotionIsSafetyIncident(t *testing.T) {
	env := newDetectionEnv(t)

	watcher := env.hub.NewClient(nil, env.family.Parent.ID)
	env.hub.Subscribe(watcher, env.family.Baby.ID)

	motion := 95.0
	detection := env.ingest(t, DetectionInput{
		Type:        models.DetectionMotionDetection,
		Severity:    models.SeverityCritical,
		Confidence:  0.9,
		Description: "violent movement detected",
		Data:        models.DetectionData{MotionLevel: &motion},
	})

	// Critical severity makes this a safety incident even though the
	// type is plain motion; the movement count still ticks
	session := env.reloadSession(t)
	assert.Equal(t, 1, session.Statistics.SafetyIncidents)
	assert.Equal(t, 1, session.Statistics.MovementEvents)

	var sessionAlerts []models.SessionAlert
	require.NoError(t, env.db.Where("session_id = ?", env.session.ID).Find(&sessionAlerts).Error)
	require.Len(t, sessionAlerts, 1)
	assert.Equal(t, models.SessionAlertSafety, sessionAlerts[0].Type)

	// Subscribers see the detection event followed by the safety alert
	first := receiveEvent(t, watcher)
	assert.Equal(t, EventDetection, first.Event)
	second := receiveEvent(t, watcher)
	assert.Equal(t, EventSafetyAlert, second.Event)
	assertNoEvent(t, watcher)

	var alerts []models.DetectionAlert
	require.NoError(t, env.db.Where("detection_id = ?", detection.ID).Find(&alerts).Error)
	assert.Len(t, alerts, 2)
}

func TestIngestAlertsEveryParent(t *testing.T) {
	env := newDetectionEnv(t)

	babyService := NewBabyService(env.db, testConfig(), nil)
	coparent := models.User{FirstName: "Ben", LastName: "Miller", Email: "ben@example.com", Password: "secret123"}
	require.NoError(t, env.db.Create(&coparent).Error)
	require.NoError(t, babyService.AddParent(env.family.Baby.ID, env.family.Parent.ID, coparent.ID))

	detection := env.ingest(t, DetectionInput{
		Type:       models.DetectionSoundDetection,
		Severity:   models.SeverityMedium,
		Confidence: 0.7,
	})

	var alerts []models.DetectionAlert
	require.NoError(t, env.db.Where("detection_id = ?", detection.ID).Find(&alerts).Error)
	recipients := make([]uint, 0, len(alerts))
	for _, a := range alerts {
		recipients = append(recipients, a.UserID)
	}
	assert.ElementsMatch(t, []uint{env.family.Parent.ID, coparent.ID, env.family.Caregiver.ID}, recipients)
}

func TestIngestOnInactiveSession(t *testing.T) {
	env := newDetectionEnv(t)

	_, err := env.monitoring.EndSession(env.session.ID, env.family.Parent.ID)
	require.NoError(t, err)

	_, err = env.detections.IngestDetection(&DetectionInput{
		BabyID:     env.family.Baby.ID,
		SessionID:  env.session.ID,
		Type:       models.DetectionMotionDetection,
		Severity:   models.SeverityLow,
		Confidence: 0.6,
	})
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestIngestValidation(t *testing.T) {
	env := newDetectionEnv(t)

	tests := []struct {
		name  string
		input DetectionInput
	}{
		{"unknown type", DetectionInput{Type: "Sneezing", Severity: models.SeverityLow, Confidence: 0.5}},
		{"unknown severity", DetectionInput{Type: models.DetectionChoking, Severity: "Extreme", Confidence: 0.5}},
		{"negative confidence", DetectionInput{Type: models.DetectionChoking, Severity: models.SeverityHigh, Confidence: -0.1}},
		{"confidence above one", DetectionInput{Type: models.DetectionChoking, Severity: models.SeverityHigh, Confidence: 1.2}},
		// Confidence is a fraction, not a percentage
		{"percentage confidence", DetectionInput{Type: models.DetectionChoking, Severity: models.SeverityHigh, Confidence: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.BabyID = env.family.Baby.ID
			tt.input.SessionID = env.session.ID
			_, err := env.detections.IngestDetection(&tt.input)
			var vErr *ValidationError
			assert.True(t, errors.As(err, &vErr))
		})
	}

	// A session must belong to the baby it reports on
	_, err := env.detections.IngestDetection(&DetectionInput{
		BabyID:     9999,
		SessionID:  env.session.ID,
		Type:       models.DetectionChoking,
		Severity:   models.SeverityHigh,
		Confidence: 0.9,
	})
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = env.detections.IngestDetection(&DetectionInput{
		BabyID:     env.family.Baby.ID,
		SessionID:  9999,
		Type:       models.DetectionChoking,
		Severity:   models.SeverityHigh,
		Confidence: 0.9,
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestIngestAccessCheck(t *testing.T) {
	env := newDetectionEnv(t)

	// An authenticated stranger cannot report detections
	_, err := env.detections.IngestDetection(&DetectionInput{
		BabyID:     env.family.Baby.ID,
		SessionID:  env.session.ID,
		UserID:     env.family.Stranger.ID,
		Type:       models.DetectionMotionDetection,
		Severity:   models.SeverityLow,
		Confidence: 0.6,
	})
	assert.ErrorIs(t, err, ErrAccessDenied)

	// The pipeline itself carries no user and skips the check
	_, err = env.detections.IngestDetection(&DetectionInput{
		BabyID:     env.family.Baby.ID,
		SessionID:  env.session.ID,
		Type:       models.DetectionMotionDetection,
		Severity:   models.SeverityLow,
		Confidence: 0.6,
	})
	assert.NoError(t, err)
}

func TestUpdateStatusTransitions(t *testing.T) {
	env := newDetectionEnv(t)
	detection := env.ingest(t, DetectionInput{
		Type:       models.DetectionExcessiveCrying,
		Severity:   models.SeverityMedium,
		Confidence: 0.8,
	})

	updated, err := env.detections.UpdateStatus(detection.ID, env.family.Parent.ID, models.DetectionStatusAcknowledged)
	require.NoError(t, err)
	assert.Equal(t, models.DetectionStatusAcknowledged, updated.Status)

	updated, err = env.detections.UpdateStatus(detection.ID, env.family.Parent.ID, models.DetectionStatusInvestigating)
	require.NoError(t, err)
	assert.Equal(t, models.DetectionStatusInvestigating, updated.Status)

	// Moving backward is rejected
	_, err = env.detections.UpdateStatus(detection.ID, env.family.Parent.ID, models.DetectionStatusAcknowledged)
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestResolveDetection(t *testing.T) {
	env := newDetectionEnv(t)
	detection := env.ingest(t, DetectionInput{
		Type:       models.DetectionFallDetection,
		Severity:   models.SeverityHigh,
		Confidence: 0.88,
	})

	resolved, err := env.detections.Resolve(detection.ID, env.family.Parent.ID, "checked on baby, all fine", false)
	require.NoError(t, err)
	assert.Equal(t, models.DetectionStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedByID)
	assert.Equal(t, env.family.Parent.ID, *resolved.ResolvedByID)
	assert.Equal(t, "checked on baby, all fine", resolved.ResolutionNotes)

	// A later caller may overwrite the resolution as a false positive
	overwritten, err := env.detections.Resolve(detection.ID, env.family.Caregiver.ID, "blanket moved, not the baby", true)
	require.NoError(t, err)
	assert.Equal(t, models.DetectionStatusFalsePositive, overwritten.Status)
	assert.Equal(t, env.family.Caregiver.ID, *overwritten.ResolvedByID)

	var stored models.Detection
	require.NoError(t, env.db.First(&stored, detection.ID).Error)
	assert.Equal(t, models.DetectionStatusFalsePositive, stored.Status)
}

func TestEscalateDetection(t *testing.T) {
	env := newDetectionEnv(t)
	detection := env.ingest(t, DetectionInput{
		Type:       models.DetectionNoMovement,
		Severity:   models.SeverityCritical,
		Confidence: 0.92,
	})

	for level := 1; level <= models.MaxEscalationLevel; level++ {
		escalated, err := env.detections.Escalate(detection.ID, env.family.Parent.ID, env.family.Caregiver.ID, "no response")
		require.NoError(t, err)
		assert.Equal(t, level, escalated.EscalationLevel)
	}

	// The cap holds
	_, err := env.detections.Escalate(detection.ID, env.family.Parent.ID, env.family.Caregiver.ID, "still no response")
	assert.ErrorIs(t, err, ErrEscalationLimit)

	// Every step left a record with its level and target
	var records []models.EscalationRecord
	require.NoError(t, env.db.Where("detection_id = ?", detection.ID).Order("level ASC").Find(&records).Error)
	require.Len(t, records, models.MaxEscalationLevel)
	for i, record := range records {
		assert.Equal(t, i+1, record.Level)
		assert.Equal(t, env.family.Caregiver.ID, record.UserID)
	}
}

func TestEscalateToUnknownUser(t *testing.T) {
	env := newDetectionEnv(t)
	detection := env.ingest(t, DetectionInput{
		Type:       models.DetectionNoMovement,
		Severity:   models.SeverityCritical,
		Confidence: 0.92,
	})

	_, err := env.detections.Escalate(detection.ID, env.family.Parent.ID, 9999, "nobody home")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEscalateClosedDetection(t *testing.T) {
	env := newDetectionEnv(t)
	detection := env.ingest(t, DetectionInput{
		Type:       models.DetectionUnusualPosition,
		Severity:   models.SeverityHigh,
		Confidence: 0.75,
	})

	_, err := env.detections.Resolve(detection.ID, env.family.Parent.ID, "", false)
	require.NoError(t, err)

	_, err = env.detections.Escalate(detection.ID, env.family.Parent.ID, env.family.Caregiver.ID, "too late")
	assert.ErrorIs(t, err, ErrDetectionClosed)
}

func TestListDetections(t *testing.T) {
	env := newDetectionEnv(t)

	env.ingest(t, DetectionInput{Type: models.DetectionMotionDetection, Severity: models.SeverityLow, Confidence: 0.6})
	env.ingest(t, DetectionInput{Type: models.DetectionChoking, Severity: models.SeverityCritical, Confidence: 0.95})
	env.ingest(t, DetectionInput{Type: models.DetectionSoundDetection, Severity: models.SeverityMedium, Confidence: 0.7})

	all, page, err := env.detections.ListDetections(env.family.Baby.ID, env.family.Parent.ID, DetectionFilter{}, models.PaginationQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(3), page.Total)

	critical, _, err := env.detections.ListDetections(env.family.Baby.ID, env.family.Parent.ID,
		DetectionFilter{Severity: models.SeverityCritical}, models.PaginationQuery{})
	require.NoError(t, err)
	require.Len(t, critical, 1)
	assert.Equal(t, models.DetectionChoking, critical[0].Type)

	// The sitter lacks viewReports
	_, _, err = env.detections.ListDetections(env.family.Baby.ID, env.family.Sitter.ID, DetectionFilter{}, models.PaginationQuery{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestGetStatistics(t *testing.T) {
	env := newDetectionEnv(t)

	env.ingest(t, DetectionInput{Type: models.DetectionChoking, Severity: models.SeverityCritical, Confidence: 0.9})
	env.ingest(t, DetectionInput{Type: models.DetectionChoking, Severity: models.SeverityCritical, Confidence: 0.8})
	motion := env.ingest(t, DetectionInput{Type: models.DetectionMotionDetection, Severity: models.SeverityLow, Confidence: 0.6})

	_, err := env.detections.Resolve(motion.ID, env.family.Parent.ID, "just a shadow", true)
	require.NoError(t, err)

	report, err := env.detections.GetStatistics(env.family.Baby.ID, env.family.Parent.ID, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.Total)
	assert.Equal(t, int64(1), report.FalsePositives)
	assert.InDelta(t, 2.0/3.0, report.Accuracy, 1e-9)
	assert.Equal(t, int64(2), report.RecentCritical)

	require.Len(t, report.Buckets, 2)
	// Ordered by count, the choking bucket comes first
	assert.Equal(t, models.DetectionChoking, report.Buckets[0].Type)
	assert.Equal(t, int64(2), report.Buckets[0].Count)
	assert.InDelta(t, 0.85, report.Buckets[0].AvgConfidence, 1e-9)

	// viewReports gates the report
	_, err = env.detections.GetStatistics(env.family.Baby.ID, env.family.Sitter.ID, 7)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAcknowledgeAlert(t *testing.T) {
	env := newDetectionEnv(t)
	detection := env.ingest(t, DetectionInput{
		Type:       models.DetectionChoking,
		Severity:   models.SeverityCritical,
		Confidence: 0.95,
	})

	var alert models.DetectionAlert
	require.NoError(t, env.db.Where("detection_id = ? AND user_id = ?", detection.ID, env.family.Caregiver.ID).
		First(&alert).Error)

	// Only the alert's own recipient may act on it
	_, err := env.detections.AcknowledgeAlert(alert.ID, env.family.Parent.ID, models.ActionAcknowledged)
	assert.ErrorIs(t, err, ErrAccessDenied)

	acked, err := env.detections.AcknowledgeAlert(alert.ID, env.family.Caregiver.ID, models.ActionAcknowledged)
	require.NoError(t, err)
	require.NotNil(t, acked.Action)
	assert.Equal(t, models.ActionAcknowledged, *acked.Action)
	assert.Equal(t, models.AlertStatusRead, acked.Status)
	assert.NotNil(t, acked.ActedAt)

	_, err = env.detections.AcknowledgeAlert(alert.ID, env.family.Caregiver.ID, "Ignored")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = env.detections.AcknowledgeAlert(9999, env.family.Caregiver.ID, models.ActionDismissed)
	assert.ErrorIs(t, err, ErrAlertNotFound)
}
