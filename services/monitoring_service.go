package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"angeleyes-http-service/config"
	"angeleyes-http-service/models"
)

// InterfaceMonitoringService defines the monitoring session lifecycle
// interface
type InterfaceMonitoringService interface {
	StartSession(babyID, userID uint, sessionType models.SessionType, settings *models.SettingsPatch, deviceIDs []string) (*models.MonitoringSession, error)
	EndSession(sessionID, userID uint) (*models.MonitoringSession, error)
	UpdateSettings(sessionID, userID uint, patch models.SettingsPatch) (*models.MonitoringSession, error)
	GetSession(sessionID, userID uint) (*models.MonitoringSession, error)
	GetActiveSession(babyID, userID uint) (*models.MonitoringSession, error)
	ListSessions(babyID, userID uint, query models.PaginationQuery) ([]models.MonitoringSession, models.PaginationResult, error)
	AcknowledgeSessionAlert(sessionID, alertID, userID uint) (*models.SessionAlert, error)
}

// MonitoringService manages monitoring session lifecycles
type MonitoringService struct {
	DB     *gorm.DB
	Config *config.Config
	Baby   InterfaceBabyService
	Hub    InterfaceNotificationService
}

// NewMonitoringService creates a new monitoring service
func NewMonitoringService(db *gorm.DB, cfg *config.Config, babyService InterfaceBabyService, hub InterfaceNotificationService) InterfaceMonitoringService {
	return &MonitoringService{
		DB:     db,
		Config: cfg,
		Baby:   babyService,
		Hub:    hub,
	}
}

// StartSession starts a monitoring session for a baby. At most one session
// per baby can be active; the unique index on the active key makes the
// database the arbiter, so two racing starts cannot both succeed.
func (s *MonitoringService) StartSession(babyID, userID uint, sessionType models.SessionType, settings *models.SettingsPatch, deviceIDs []string) (*models.MonitoringSession, error) {
	if !s.Baby.HasAccess(userID, babyID) {
		// Distinguish a missing baby from a denied one
		if _, err := s.Baby.GetBabyByID(babyID, userID); errors.Is(err, ErrBabyNotFound) {
			return nil, ErrBabyNotFound
		}
		return nil, ErrAccessDenied
	}

	if sessionType == "" {
		sessionType = models.SessionTypeGeneral
	}
	if !models.ValidSessionType(sessionType) {
		return nil, NewValidationError("invalid session type: %s", sessionType)
	}

	sessionSettings := models.DefaultSessionSettings()
	if settings != nil {
		settings.Apply(&sessionSettings)
	}

	activeKey := babyID
	session := &models.MonitoringSession{
		BabyID:      babyID,
		StartedByID: userID,
		SessionType: sessionType,
		Status:      models.SessionStatusActive,
		ActiveKey:   &activeKey,
		StartTime:   time.Now(),
		Settings:    sessionSettings,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		for _, deviceID := range deviceIDs {
			device := models.SessionDevice{
				SessionID: session.ID,
				DeviceID:  deviceID,
			}
			if err := tx.Create(&device).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.MonitoringSession
			if findErr := s.DB.Where("baby_id = ? AND status = ?", babyID, models.SessionStatusActive).
				First(&existing).Error; findErr == nil {
				return nil, &AlreadyActiveError{ExistingSessionID: existing.ID}
			}
			return nil, &AlreadyActiveError{}
		}
		return nil, err
	}

	config.Info("[Monitoring] session %d started for baby %d by user %d", session.ID, babyID, userID)
	if s.Hub != nil {
		s.Hub.Publish(babyID, EventSessionStarted, session)
	}

	return session, nil
}

// EndSession ends an active session. Ending a session that is not active
// is an error.
func (s *MonitoringService) EndSession(sessionID, userID uint) (*models.MonitoringSession, error) {
	session, err := s.GetSession(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, ErrSessionNotActive
	}

	session.End()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Save with Select so the cleared active key is written as NULL
		if err := tx.Model(session).
			Select("Status", "EndTime", "DurationSeconds", "ActiveKey").
			Updates(map[string]interface{}{
				"status":           session.Status,
				"end_time":         session.EndTime,
				"duration_seconds": session.DurationSeconds,
				"active_key":       nil,
			}).Error; err != nil {
			return err
		}
		// Participating devices leave with the session
		return tx.Model(&models.SessionDevice{}).
			Where("session_id = ? AND left_at IS NULL", session.ID).
			Update("left_at", session.EndTime).Error
	})
	if err != nil {
		return nil, err
	}

	config.Info("[Monitoring] session %d ended by user %d (duration %s)", session.ID, userID, session.DurationFormatted())
	if s.Hub != nil {
		s.Hub.Publish(session.BabyID, EventSessionEnded, map[string]interface{}{
			"session_id":         session.ID,
			"duration":           session.DurationSeconds,
			"duration_formatted": session.DurationFormatted(),
			"statistics":         session.Statistics,
		})
	}

	return session, nil
}

// UpdateSettings applies a partial settings update to an active session.
// Anyone with access to the baby may adjust the running session.
func (s *MonitoringService) UpdateSettings(sessionID, userID uint, patch models.SettingsPatch) (*models.MonitoringSession, error) {
	session, err := s.GetSession(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, ErrSessionNotActive
	}

	patch.Apply(&session.Settings)
	if err := s.DB.Model(session).
		Select("setting_video_quality", "setting_audio_enabled", "setting_night_vision",
			"setting_motion_detection", "setting_sound_detection", "setting_safety_alerts",
			"setting_recording_enabled").
		Updates(map[string]interface{}{
			"setting_video_quality":     session.Settings.VideoQuality,
			"setting_audio_enabled":     session.Settings.AudioEnabled,
			"setting_night_vision":      session.Settings.NightVision,
			"setting_motion_detection":  session.Settings.MotionDetection,
			"setting_sound_detection":   session.Settings.SoundDetection,
			"setting_safety_alerts":     session.Settings.SafetyAlerts,
			"setting_recording_enabled": session.Settings.RecordingEnabled,
		}).Error; err != nil {
		return nil, err
	}

	if s.Hub != nil {
		s.Hub.Publish(session.BabyID, EventSettingsUpdated, session.Settings)
	}

	return session, nil
}

// GetSession fetches a session and verifies access to its baby
func (s *MonitoringService) GetSession(sessionID, userID uint) (*models.MonitoringSession, error) {
	var session models.MonitoringSession
	if err := s.DB.Preload("Alerts").Preload("Devices").First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if !s.Baby.HasAccess(userID, session.BabyID) {
		return nil, ErrAccessDenied
	}
	return &session, nil
}

// GetActiveSession returns the baby's currently active session, if any
func (s *MonitoringService) GetActiveSession(babyID, userID uint) (*models.MonitoringSession, error) {
	if !s.Baby.HasAccess(userID, babyID) {
		return nil, ErrAccessDenied
	}

	var session models.MonitoringSession
	err := s.DB.Preload("Alerts").Preload("Devices").
		Where("baby_id = ? AND status = ?", babyID, models.SessionStatusActive).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// ListSessions pages through a baby's session history, newest first.
// Requires the viewReports permission.
func (s *MonitoringService) ListSessions(babyID, userID uint, query models.PaginationQuery) ([]models.MonitoringSession, models.PaginationResult, error) {
	perms, err := s.Baby.PermissionsFor(userID, babyID)
	if err != nil {
		return nil, models.PaginationResult{}, err
	}
	if !perms.ViewReports {
		return nil, models.PaginationResult{}, ErrPermissionDenied
	}

	query.Normalize()

	var total int64
	if err := s.DB.Model(&models.MonitoringSession{}).
		Where("baby_id = ?", babyID).Count(&total).Error; err != nil {
		return nil, models.PaginationResult{}, err
	}

	var sessions []models.MonitoringSession
	if err := s.DB.Where("baby_id = ?", babyID).
		Order("start_time DESC").
		Offset(query.Offset()).Limit(query.PageSize).
		Find(&sessions).Error; err != nil {
		return nil, models.PaginationResult{}, err
	}

	return sessions, models.NewPaginationResult(total, query.Page, query.PageSize), nil
}

// AcknowledgeSessionAlert marks one of a session's alerts acknowledged
func (s *MonitoringService) AcknowledgeSessionAlert(sessionID, alertID, userID uint) (*models.SessionAlert, error) {
	session, err := s.GetSession(sessionID, userID)
	if err != nil {
		return nil, err
	}

	var alert models.SessionAlert
	if err := s.DB.Where("id = ? AND session_id = ?", alertID, session.ID).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}

	alert.Acknowledge(userID)
	if err := s.DB.Save(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}
