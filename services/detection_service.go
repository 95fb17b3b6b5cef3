package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"angeleyes-http-service/config"
	"angeleyes-http-service/models"
)

// InterfaceDetectionService defines the detection ingestion and alerting
// interface
type InterfaceDetectionService interface {
	IngestDetection(input *DetectionInput) (*models.Detection, error)
	GetDetection(detectionID, userID uint) (*models.Detection, error)
	ListDetections(babyID, userID uint, filter DetectionFilter, query models.PaginationQuery) ([]models.Detection, models.PaginationResult, error)
	UpdateStatus(detectionID, userID uint, status models.DetectionStatus) (*models.Detection, error)
	Resolve(detectionID, userID uint, notes string, falsePositive bool) (*models.Detection, error)
	Escalate(detectionID, userID, toUserID uint, reason string) (*models.Detection, error)
	AcknowledgeAlert(alertID, userID uint, action models.AlertAction) (*models.DetectionAlert, error)
	GetStatistics(babyID, userID uint, days int) (*DetectionReport, error)
}

// DetectionInput carries one detection event from the AI pipeline
type DetectionInput struct {
	BabyID      uint                     `json:"baby_id"`
	SessionID   uint                     `json:"session_id"`
	UserID      uint                     `json:"-"`
	Type        models.DetectionType     `json:"type"`
	Severity    models.DetectionSeverity `json:"severity"`
	Confidence  float64                  `json:"confidence"`
	Description string                   `json:"description"`
	Data        models.DetectionData     `json:"data"`
	DetectedAt  *time.Time               `json:"detected_at,omitempty"`
}

// DetectionFilter narrows a detection listing
type DetectionFilter struct {
	Type     models.DetectionType     `form:"type"`
	Severity models.DetectionSeverity `form:"severity"`
	Status   models.DetectionStatus   `form:"status"`
	Since    *time.Time               `form:"since"`
	Until    *time.Time               `form:"until"`
}

// DetectionService handles detection ingestion, alert fan-out and the
// escalation lifecycle
type DetectionService struct {
	DB     *gorm.DB
	Config *config.Config
	Baby   InterfaceBabyService
	Hub    InterfaceNotificationService
	Push   InterfacePushService
	Redis  *RedisService
}

// NewDetectionService creates a new detection service
func NewDetectionService(db *gorm.DB, cfg *config.Config, babyService InterfaceBabyService, hub InterfaceNotificationService, push InterfacePushService, redisService *RedisService) InterfaceDetectionService {
	return &DetectionService{
		DB:     db,
		Config: cfg,
		Baby:   babyService,
		Hub:    hub,
		Push:   push,
		Redis:  redisService,
	}
}

// validate checks an ingest payload before anything is written
func (in *DetectionInput) validate() error {
	if in.BabyID == 0 || in.SessionID == 0 {
		return NewValidationError("baby_id and session_id are required")
	}
	if !models.ValidDetectionType(in.Type) {
		return NewValidationError("invalid detection type: %s", in.Type)
	}
	if !models.ValidSeverity(in.Severity) {
		return NewValidationError("invalid severity: %s", in.Severity)
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return NewValidationError("confidence must be between 0 and 1")
	}
	return nil
}

// IngestDetection records a detection, updates the session statistics and
// fans alerts out to every recipient. The detection and the statistics
// update commit together; alert delivery is best effort afterwards.
func (s *DetectionService) IngestDetection(input *DetectionInput) (*models.Detection, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if input.UserID != 0 && !s.Baby.HasAccess(input.UserID, input.BabyID) {
		return nil, ErrAccessDenied
	}

	detectedAt := time.Now()
	if input.DetectedAt != nil {
		detectedAt = *input.DetectedAt
	}

	detection := &models.Detection{
		BabyID:      input.BabyID,
		SessionID:   input.SessionID,
		Type:        input.Type,
		Severity:    input.Severity,
		Status:      models.DetectionStatusNew,
		Confidence:  input.Confidence,
		Description: input.Description,
		Data:        input.Data,
		DetectedAt:  detectedAt,
	}

	var session models.MonitoringSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&session, input.SessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if session.BabyID != input.BabyID {
			return NewValidationError("session %d does not belong to baby %d", input.SessionID, input.BabyID)
		}
		if !session.IsActive() {
			return ErrSessionNotActive
		}

		if err := tx.Create(detection).Error; err != nil {
			return err
		}

		// Fold the detection into the session statistics. High and
		// Critical detections count as safety incidents whatever their
		// type; motion and sound levels only fold in on their own event
		// types.
		session.Statistics.TotalDetections++
		if detection.Severity.IsSafetyRisk() {
			session.Statistics.SafetyIncidents++
		}
		if detection.Type == models.DetectionMotionDetection {
			session.Statistics.MovementEvents++
			if detection.Data.MotionLevel != nil {
				session.Statistics.FoldMotionLevel(*detection.Data.MotionLevel)
			}
		}
		if detection.Type == models.DetectionSoundDetection {
			session.Statistics.SoundEvents++
			if detection.Data.SoundLevel != nil {
				session.Statistics.FoldSoundLevel(*detection.Data.SoundLevel)
			}
		}

		if err := tx.Model(&session).
			Updates(map[string]interface{}{
				"stat_total_detections":     session.Statistics.TotalDetections,
				"stat_safety_incidents":     session.Statistics.SafetyIncidents,
				"stat_movement_events":      session.Statistics.MovementEvents,
				"stat_sound_events":         session.Statistics.SoundEvents,
				"stat_average_motion_level": session.Statistics.AverageMotionLevel,
				"stat_average_sound_level":  session.Statistics.AverageSoundLevel,
			}).Error; err != nil {
			return err
		}

		// High and Critical detections also leave a mark on the session
		// record, unless safety alerts are switched off
		if detection.Severity.IsSafetyRisk() && session.Settings.SafetyAlerts {
			alert := models.SessionAlert{
				SessionID: session.ID,
				Type:      models.SessionAlertSafety,
				Message:   detection.Description,
				Metadata: map[string]interface{}{
					"detection_id": detection.ID,
					"type":         string(detection.Type),
					"severity":     string(detection.Severity),
				},
				Timestamp: detectedAt,
			}
			if alert.Message == "" {
				alert.Message = string(detection.Type) + " detected"
			}
			if err := tx.Create(&alert).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fanOutAlerts(detection, &session)

	return detection, nil
}

// fanOutAlerts creates alert records for every recipient of every
// detection and delivers them. Failures here never fail the ingest.
func (s *DetectionService) fanOutAlerts(detection *models.Detection, session *models.MonitoringSession) {
	if s.Hub != nil {
		s.Hub.Publish(detection.BabyID, EventDetection, detection)
		if detection.Severity.IsSafetyRisk() {
			s.Hub.Publish(detection.BabyID, EventSafetyAlert, detection)
		}
	}

	recipients, err := s.alertRecipients(detection.BabyID)
	if err != nil {
		config.Error("[Detection] failed to resolve alert recipients for baby %d: %v", detection.BabyID, err)
		return
	}

	now := time.Now()
	for _, userID := range recipients {
		alert := models.DetectionAlert{
			DetectionID: detection.ID,
			UserID:      userID,
			Method:      models.AlertMethodPush,
			Status:      models.AlertStatusSent,
			SentAt:      now,
		}
		if err := s.DB.Create(&alert).Error; err != nil {
			config.Error("[Detection] failed to record alert for user %d: %v", userID, err)
			continue
		}
		detection.Alerts = append(detection.Alerts, alert)

		if s.Push != nil {
			go func(uid uint) {
				if err := s.Push.PushAlertToUser(uid, detection); err != nil {
					config.Warning("[Detection] push to user %d failed: %v", uid, err)
				}
			}(userID)
		}
	}
}

// alertRecipients returns every parent plus every caregiver holding the
// receiveAlerts permission
func (s *DetectionService) alertRecipients(babyID uint) ([]uint, error) {
	var baby models.Baby
	if err := s.DB.Preload("Parents").Preload("Caregivers").First(&baby, babyID).Error; err != nil {
		return nil, err
	}

	recipients := make([]uint, 0, len(baby.Parents)+len(baby.Caregivers))
	for _, parent := range baby.Parents {
		recipients = append(recipients, parent.ID)
	}
	for _, caregiver := range baby.Caregivers {
		if caregiver.Permissions.ReceiveAlerts {
			recipients = append(recipients, caregiver.UserID)
		}
	}
	return recipients, nil
}

// GetDetection fetches a detection and verifies access
func (s *DetectionService) GetDetection(detectionID, userID uint) (*models.Detection, error) {
	var detection models.Detection
	err := s.DB.Preload("Alerts").Preload("Escalations").First(&detection, detectionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDetectionNotFound
		}
		return nil, err
	}
	if !s.Baby.HasAccess(userID, detection.BabyID) {
		return nil, ErrAccessDenied
	}
	return &detection, nil
}

// ListDetections pages through a baby's detections, newest first.
// Requires the viewReports permission.
func (s *DetectionService) ListDetections(babyID, userID uint, filter DetectionFilter, query models.PaginationQuery) ([]models.Detection, models.PaginationResult, error) {
	perms, err := s.Baby.PermissionsFor(userID, babyID)
	if err != nil {
		return nil, models.PaginationResult{}, err
	}
	if !perms.ViewReports {
		return nil, models.PaginationResult{}, ErrPermissionDenied
	}

	query.Normalize()

	db := s.DB.Model(&models.Detection{}).Where("baby_id = ?", babyID)
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.Severity != "" {
		db = db.Where("severity = ?", filter.Severity)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Since != nil {
		db = db.Where("detected_at >= ?", filter.Since)
	}
	if filter.Until != nil {
		db = db.Where("detected_at <= ?", filter.Until)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, models.PaginationResult{}, err
	}

	var detections []models.Detection
	if err := db.Order("detected_at DESC").
		Offset(query.Offset()).Limit(query.PageSize).
		Find(&detections).Error; err != nil {
		return nil, models.PaginationResult{}, err
	}

	return detections, models.NewPaginationResult(total, query.Page, query.PageSize), nil
}

// UpdateStatus moves a detection through its review state machine
func (s *DetectionService) UpdateStatus(detectionID, userID uint, status models.DetectionStatus) (*models.Detection, error) {
	detection, err := s.GetDetection(detectionID, userID)
	if err != nil {
		return nil, err
	}

	if !detection.Status.CanTransitionTo(status) {
		return nil, NewValidationError("cannot change status from %s to %s", detection.Status, status)
	}

	switch status {
	case models.DetectionStatusResolved:
		return s.Resolve(detectionID, userID, "", false)
	case models.DetectionStatusFalsePositive:
		return s.Resolve(detectionID, userID, "", true)
	}

	detection.Status = status
	if err := s.DB.Model(detection).Update("status", status).Error; err != nil {
		return nil, err
	}
	return detection, nil
}

// Resolve closes a detection, as resolved or as a false positive.
// Resolving an already closed detection overwrites the resolution.
func (s *DetectionService) Resolve(detectionID, userID uint, notes string, falsePositive bool) (*models.Detection, error) {
	detection, err := s.GetDetection(detectionID, userID)
	if err != nil {
		return nil, err
	}

	if falsePositive {
		detection.MarkFalsePositive(userID, notes)
	} else {
		detection.Resolve(userID, notes)
	}

	if err := s.DB.Model(detection).
		Updates(map[string]interface{}{
			"status":           detection.Status,
			"resolved_by_id":   detection.ResolvedByID,
			"resolved_at":      detection.ResolvedAt,
			"resolution_notes": detection.ResolutionNotes,
		}).Error; err != nil {
		return nil, err
	}

	config.Info("[Detection] detection %d closed as %s by user %d", detection.ID, detection.Status, userID)
	if s.Hub != nil {
		s.Hub.Publish(detection.BabyID, EventResolution, map[string]interface{}{
			"detection_id": detection.ID,
			"status":       detection.Status,
			"resolved_by":  userID,
		})
	}

	return detection, nil
}

// Escalate raises a detection's escalation level, records the user it
// was escalated to and notifies recipients. The level is capped and never
// decreases; closed detections cannot escalate.
func (s *DetectionService) Escalate(detectionID, userID, toUserID uint, reason string) (*models.Detection, error) {
	detection, err := s.GetDetection(detectionID, userID)
	if err != nil {
		return nil, err
	}

	var target models.User
	if err := s.DB.First(&target, toUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	record, err := detection.Escalate(toUserID, reason)
	if err != nil {
		if detection.Status.IsTerminal() {
			return nil, ErrDetectionClosed
		}
		return nil, ErrEscalationLimit
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(detection).Update("escalation_level", detection.EscalationLevel).Error; err != nil {
			return err
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, err
	}

	config.Warning("[Detection] detection %d escalated to level %d: %s", detection.ID, detection.EscalationLevel, reason)
	if s.Hub != nil {
		s.Hub.Publish(detection.BabyID, EventEscalation, map[string]interface{}{
			"detection_id":     detection.ID,
			"escalation_level": detection.EscalationLevel,
			"escalated_to":     toUserID,
			"reason":           reason,
		})
	}

	if s.Push != nil {
		recipients, rErr := s.alertRecipients(detection.BabyID)
		if rErr == nil {
			for _, uid := range recipients {
				go func(uid uint) {
					if err := s.Push.PushAlertToUser(uid, map[string]interface{}{
						"detection_id":     detection.ID,
						"escalation_level": detection.EscalationLevel,
						"reason":           reason,
					}); err != nil {
						config.Warning("[Detection] escalation push to user %d failed: %v", uid, err)
					}
				}(uid)
			}
		}
	}

	return detection, nil
}

// DetectionReport aggregates a baby's detections over a reporting window
type DetectionReport struct {
	BabyID         uint              `json:"baby_id"`
	Days           int               `json:"days"`
	Total          int64             `json:"total"`
	FalsePositives int64             `json:"false_positives"`
	Accuracy       float64           `json:"accuracy"`
	RecentCritical int64             `json:"recent_critical"`
	Buckets        []DetectionBucket `json:"buckets"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// DetectionBucket is one (type, severity) group in a detection report
type DetectionBucket struct {
	Type          models.DetectionType     `json:"type"`
	Severity      models.DetectionSeverity `json:"severity"`
	Count         int64                    `json:"count"`
	AvgConfidence float64                  `json:"avg_confidence"`
	Latest        time.Time                `json:"latest"`
}

// reportCacheTTL bounds how stale a cached detection report may get
const reportCacheTTL = 2 * time.Minute

// GetStatistics builds a detection report over the last N days. Requires
// the viewReports permission. Reports are cached in Redis when a cache is
// available.
func (s *DetectionService) GetStatistics(babyID, userID uint, days int) (*DetectionReport, error) {
	perms, err := s.Baby.PermissionsFor(userID, babyID)
	if err != nil {
		return nil, err
	}
	if !perms.ViewReports {
		return nil, ErrPermissionDenied
	}

	if days < 1 {
		days = 7
	}

	if s.Redis != nil {
		var cached DetectionReport
		if err := s.Redis.GetDetectionReport(babyID, days, &cached); err == nil {
			return &cached, nil
		}
	}

	since := time.Now().AddDate(0, 0, -days)
	report := &DetectionReport{
		BabyID:      babyID,
		Days:        days,
		GeneratedAt: time.Now(),
	}

	window := s.DB.Model(&models.Detection{}).
		Where("baby_id = ? AND detected_at >= ?", babyID, since)

	if err := window.Session(&gorm.Session{}).Count(&report.Total).Error; err != nil {
		return nil, err
	}
	if err := window.Session(&gorm.Session{}).
		Where("status = ?", models.DetectionStatusFalsePositive).
		Count(&report.FalsePositives).Error; err != nil {
		return nil, err
	}
	if report.Total > 0 {
		report.Accuracy = float64(report.Total-report.FalsePositives) / float64(report.Total)
	}

	if err := s.DB.Model(&models.Detection{}).
		Where("baby_id = ? AND severity = ? AND detected_at >= ?",
			babyID, models.SeverityCritical, time.Now().Add(-24*time.Hour)).
		Count(&report.RecentCritical).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Model(&models.Detection{}).
		Select("type, severity, COUNT(*) AS count, AVG(confidence) AS avg_confidence, MAX(detected_at) AS latest").
		Where("baby_id = ? AND detected_at >= ?", babyID, since).
		Group("type").Group("severity").
		Order("count DESC").
		Scan(&report.Buckets).Error; err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if err := s.Redis.CacheDetectionReport(babyID, days, report, reportCacheTTL); err != nil {
			config.Warning("[Detection] failed to cache report for baby %d: %v", babyID, err)
		}
	}

	return report, nil
}

// AcknowledgeAlert records what a recipient did about their alert. Only
// the alert's own recipient may act on it.
func (s *DetectionService) AcknowledgeAlert(alertID, userID uint, action models.AlertAction) (*models.DetectionAlert, error) {
	var alert models.DetectionAlert
	if err := s.DB.First(&alert, alertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	if alert.UserID != userID {
		return nil, ErrAccessDenied
	}

	switch action {
	case models.ActionAcknowledged, models.ActionDismissed, models.ActionEscalated, models.ActionResolved:
	default:
		return nil, NewValidationError("invalid alert action: %s", action)
	}

	now := time.Now()
	alert.Action = &action
	alert.ActedAt = &now
	alert.Status = models.AlertStatusRead

	if err := s.DB.Model(&alert).
		Updates(map[string]interface{}{
			"action":   alert.Action,
			"acted_at": alert.ActedAt,
			"status":   alert.Status,
		}).Error; err != nil {
		return nil, err
	}

	return &alert, nil
}
