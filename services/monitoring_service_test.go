package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"angeleyes-http-service/models"
)

func newMonitoringEnv(t *testing.T) (*gorm.DB, *family, InterfaceMonitoringService) {
	t.Helper()

	db := setupTestDB(t)
	f := seedFamily(t, db)
	babyService := NewBabyService(db, testConfig(), nil)
	svc := NewMonitoringService(db, testConfig(), babyService, NewNotificationHub())
	return db, f, svc
}

func TestStartSession(t *testing.T) {
	db, f, svc := newMonitoringEnv(t)

	session, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeSleep, nil, []string{"cam-01", "mic-01"})
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusActive, session.Status)
	assert.Equal(t, models.SessionTypeSleep, session.SessionType)
	assert.Equal(t, f.Parent.ID, session.StartedByID)
	assert.Equal(t, models.DefaultSessionSettings(), session.Settings)
	require.NotNil(t, session.ActiveKey)
	assert.Equal(t, f.Baby.ID, *session.ActiveKey)

	var devices []models.SessionDevice
	require.NoError(t, db.Where("session_id = ?", session.ID).Find(&devices).Error)
	assert.Len(t, devices, 2)
}

func TestStartSessionWithSettingsPatch(t *testing.T) {
	_, f, svc := newMonitoringEnv(t)

	nightVision := true
	quality := "1080p"
	session, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeNightWatch, &models.SettingsPatch{
		NightVision:  &nightVision,
		VideoQuality: &quality,
	}, nil)
	require.NoError(t, err)

	assert.True(t, session.Settings.NightVision)
	assert.Equal(t, "1080p", session.Settings.VideoQuality)
	// Unpatched defaults survive
	assert.True(t, session.Settings.SafetyAlerts)
}

func TestStartSessionAlreadyActive(t *testing.T) {
	_, f, svc := newMonitoringEnv(t)

	first, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeSleep, nil, nil)
	require.NoError(t, err)

	// A second start must fail while the first is still active, and
	// name the session that is in the way
	_, err = svc.StartSession(f.Baby.ID, f.Caregiver.ID, models.SessionTypePlay, nil, nil)
	require.Error(t, err)

	var active *AlreadyActiveError
	require.True(t, errors.As(err, &active))
	assert.Equal(t, first.ID, active.ExistingSessionID)
}

func TestStartSessionAfterEnd(t *testing.T) {
	_, f, svc := newMonitoringEnv(t)

	first, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeSleep, nil, nil)
	require.NoError(t, err)

	_, err = svc.EndSession(first.ID, f.Parent.ID)
	require.NoError(t, err)

	// Ending the first session frees the slot for a new one
	second, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypePlay, nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestStartSessionAccess(t *testing.T) {
	_, f, svc := newMonitoringEnv(t)

	_, err := svc.StartSession(f.Baby.ID, f.Stranger.ID, models.SessionTypeSleep, nil, nil)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.StartSession(9999, f.Parent.ID, models.SessionTypeSleep, nil, nil)
	assert.ErrorIs(t, err, ErrBabyNotFound)

	_, err = svc.StartSession(f.Baby.ID, f.Parent.ID, "Nap", nil, nil)
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestStartSessionDeactivatedBaby(t *testing.T) {
	db, f, svc := newMonitoringEnv(t)

	babyService := NewBabyService(db, testConfig(), nil)
	require.NoError(t, babyService.DeactivateBaby(f.Baby.ID, f.Parent.ID))

	// A soft-deleted baby cannot be monitored, even by its parent
	_, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeSleep, nil, nil)
	assert.ErrorIs(t, err, ErrBabyNotFound)
}

func TestEndSession(t *testing.T) {
	db, f, svc := newMonitoringEnv(t)

	session, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeSleep, nil, nil)
	require.NoError(t, err)

	ended, err := svc.EndSession(session.ID, f.Parent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusEnded, ended.Status)
	assert.NotNil(t, ended.EndTime)

	// The active key must be NULL in the database, not just in memory,
	// and the duration is persisted in whole seconds
	var stored models.MonitoringSession
	require.NoError(t, db.First(&stored, session.ID).Error)
	assert.Nil(t, stored.ActiveKey)
	require.NotNil(t, stored.EndTime)
	assert.Equal(t, int64(stored.EndTime.Sub(stored.StartTime).Seconds()), stored.DurationSeconds)

	// Ending again is an error
	_, err = svc.EndSession(session.ID, f.Parent.ID)
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestEndSessionReleasesDevices(t *testing.T) {
	db, f, svc := newMonitoringEnv(t)

	session, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeSleep, nil, []string{"cam-01"})
	require.NoError(t, err)

	_, err = svc.EndSession(session.ID, f.Parent.ID)
	require.NoError(t, err)

	var device models.SessionDevice
	require.NoError(t, db.Where("session_id = ?", session.ID).First(&device).Error)
	assert.NotNil(t, device.LeftAt)
}

func TestUpdateSettings(t *testing.T) {
	db, f, svc := newMonitoringEnv(t)

	session, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeSleep, nil, nil)
	require.NoError(t, err)

	nightVision := true
	audio := false
	updated, err := svc.UpdateSettings(session.ID, f.Parent.ID, models.SettingsPatch{
		NightVision:  &nightVision,
		AudioEnabled: &audio,
	})
	require.NoError(t, err)
	assert.True(t, updated.Settings.NightVision)
	assert.False(t, updated.Settings.AudioEnabled)
	assert.Equal(t, "720p", updated.Settings.VideoQuality)

	var stored models.MonitoringSession
	require.NoError(t, db.First(&stored, session.ID).Error)
	assert.True(t, stored.Settings.NightVision)
	assert.False(t, stored.Settings.AudioEnabled)
}

func TestUpdateSettingsAccess(t *testing.T) {
	_, f, svc := newMonitoringEnv(t)

	session, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeSleep, nil, nil)
	require.NoError(t, err)

	// Anyone with access may adjust a running session
	nightVision := true
	updated, err := svc.UpdateSettings(session.ID, f.Caregiver.ID, models.SettingsPatch{NightVision: &nightVision})
	require.NoError(t, err)
	assert.True(t, updated.Settings.NightVision)

	_, err = svc.UpdateSettings(session.ID, f.Stranger.ID, models.SettingsPatch{NightVision: &nightVision})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestUpdateSettingsOnEndedSession(t *testing.T) {
	_, f, svc := newMonitoringEnv(t)

	session, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeSleep, nil, nil)
	require.NoError(t, err)
	_, err = svc.EndSession(session.ID, f.Parent.ID)
	require.NoError(t, err)

	nightVision := true
	_, err = svc.UpdateSettings(session.ID, f.Parent.ID, models.SettingsPatch{NightVision: &nightVision})
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestGetActiveSession(t *testing.T) {
	_, f, svc := newMonitoringEnv(t)

	_, err := svc.GetActiveSession(f.Baby.ID, f.Parent.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeSleep, nil, nil)
	require.NoError(t, err)

	active, err := svc.GetActiveSession(f.Baby.ID, f.Caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, active.ID)

	_, err = svc.GetActiveSession(f.Baby.ID, f.Stranger.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestListSessions(t *testing.T) {
	_, f, svc := newMonitoringEnv(t)

	for i := 0; i < 3; i++ {
		session, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeGeneral, nil, nil)
		require.NoError(t, err)
		_, err = svc.EndSession(session.ID, f.Parent.ID)
		require.NoError(t, err)
	}

	sessions, page, err := svc.ListSessions(f.Baby.ID, f.Parent.ID, models.PaginationQuery{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, int64(2), page.Pages)

	// The sitter lacks viewReports
	_, _, err = svc.ListSessions(f.Baby.ID, f.Sitter.ID, models.PaginationQuery{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAcknowledgeSessionAlert(t *testing.T) {
	db, f, svc := newMonitoringEnv(t)

	session, err := svc.StartSession(f.Baby.ID, f.Parent.ID, models.SessionTypeSleep, nil, nil)
	require.NoError(t, err)

	alert := models.SessionAlert{
		SessionID: session.ID,
		Type:      models.SessionAlertTechnical,
		Message:   "camera connection lost",
		Timestamp: time.Now(),
	}
	require.NoError(t, db.Create(&alert).Error)

	acked, err := svc.AcknowledgeSessionAlert(session.ID, alert.ID, f.Caregiver.ID)
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged)
	require.NotNil(t, acked.AcknowledgedByID)
	assert.Equal(t, f.Caregiver.ID, *acked.AcknowledgedByID)

	_, err = svc.AcknowledgeSessionAlert(session.ID, 9999, f.Parent.ID)
	assert.ErrorIs(t, err, ErrAlertNotFound)
}
