package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"angeleyes-http-service/config"
	"angeleyes-http-service/models"
)

// InterfaceBabyService defines the baby profile and access service interface
type InterfaceBabyService interface {
	CreateBaby(baby *models.Baby) error
	GetBabyByID(babyID, userID uint) (*models.Baby, error)
	GetBabiesForUser(userID uint) ([]models.Baby, error)
	UpdateBaby(babyID, userID uint, updates map[string]interface{}) (*models.Baby, error)
	DeactivateBaby(babyID, userID uint) error
	AddParent(babyID, actorID, userID uint) error

	HasAccess(userID, babyID uint) bool
	PermissionsFor(userID, babyID uint) (models.PermissionSet, error)

	AddCaregiver(babyID, actorID, userID uint, role models.CaregiverRole, perms *models.PermissionSet) (*models.Caregiver, error)
	UpdateCaregiverPermissions(babyID, actorID, caregiverID uint, perms models.PermissionSet) (*models.Caregiver, error)
	RemoveCaregiver(babyID, actorID, caregiverID uint) error

	AddEmergencyContact(babyID, actorID uint, contact *models.EmergencyContact) error
	GetEmergencyContacts(babyID, userID uint) ([]models.EmergencyContact, error)

	AddMilestone(babyID, actorID uint, milestone *models.Milestone) error
	GetMilestones(babyID, userID uint) ([]models.Milestone, error)

	GetBabyStatistics(babyID, userID uint) (*BabyStatistics, error)
}

// BabyStatistics aggregates monitoring activity across all of a baby's
// sessions
type BabyStatistics struct {
	BabyID           uint       `json:"baby_id"`
	TotalSessions    int64      `json:"total_sessions"`
	TotalDetections  int64      `json:"total_detections"`
	SafetyIncidents  int64      `json:"safety_incidents"`
	OpenDetections   int64      `json:"open_detections"`
	MonitoredSeconds float64    `json:"monitored_seconds"`
	AgeInMonths      int        `json:"age_in_months"`
	CaregiverCount   int64      `json:"caregiver_count"`
	LastSessionEnded *time.Time `json:"last_session_ended,omitempty"`
}

// BabyService provides baby profiles, caregiver access and aggregates
type BabyService struct {
	DB     *gorm.DB
	Config *config.Config
	Redis  *RedisService
}

// NewBabyService creates a new baby service
func NewBabyService(db *gorm.DB, cfg *config.Config, redisService *RedisService) InterfaceBabyService {
	return &BabyService{
		DB:     db,
		Config: cfg,
		Redis:  redisService,
	}
}

// loadBaby fetches an active baby with parents and caregivers preloaded.
// Deactivated babies read as not found everywhere.
func (s *BabyService) loadBaby(babyID uint) (*models.Baby, error) {
	var baby models.Baby
	err := s.DB.Preload("Parents").Preload("Caregivers").
		Where("is_active = ?", true).
		First(&baby, babyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBabyNotFound
		}
		return nil, err
	}
	return &baby, nil
}

// CreateBaby creates a baby profile owned by its parent
func (s *BabyService) CreateBaby(baby *models.Baby) error {
	if err := baby.Validate(); err != nil {
		return NewValidationError("%s", err.Error())
	}
	baby.IsActive = true
	return s.DB.Create(baby).Error
}

// GetBabyByID returns an active baby if the user has access to it
func (s *BabyService) GetBabyByID(babyID, userID uint) (*models.Baby, error) {
	var baby models.Baby
	err := s.DB.Preload("Parents").Preload("Caregivers").Preload("Caregivers.User").
		Preload("EmergencyContacts").
		Where("is_active = ?", true).
		First(&baby, babyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBabyNotFound
		}
		return nil, err
	}
	if !baby.HasAccess(userID) {
		return nil, ErrAccessDenied
	}
	return &baby, nil
}

// GetBabiesForUser lists every baby the user parents or cares for
func (s *BabyService) GetBabiesForUser(userID uint) ([]models.Baby, error) {
	var babies []models.Baby
	err := s.DB.Preload("Parents").Preload("Caregivers").
		Where("is_active = ?", true).
		Where("id IN (?) OR id IN (?)",
			s.DB.Table("baby_parents").Select("baby_id").Where("user_id = ?", userID),
			s.DB.Model(&models.Caregiver{}).Select("baby_id").Where("user_id = ?", userID)).
		Find(&babies).Error
	if err != nil {
		return nil, err
	}
	return babies, nil
}

// UpdateBaby applies profile changes. Requires the editProfile permission,
// which only parents hold.
func (s *BabyService) UpdateBaby(babyID, userID uint, updates map[string]interface{}) (*models.Baby, error) {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return nil, err
	}
	if !baby.HasAccess(userID) {
		return nil, ErrAccessDenied
	}
	if !baby.PermissionsFor(userID).EditProfile {
		return nil, ErrPermissionDenied
	}

	allowed := map[string]bool{
		"first_name": true, "last_name": true, "date_of_birth": true,
		"gender": true, "profile_photo": true,
	}
	filtered := make(map[string]interface{})
	for k, v := range updates {
		if allowed[k] {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return baby, nil
	}

	if err := s.DB.Model(baby).Updates(filtered).Error; err != nil {
		return nil, err
	}
	return s.loadBaby(babyID)
}

// DeactivateBaby soft-deletes a baby profile. Parent only.
func (s *BabyService) DeactivateBaby(babyID, userID uint) error {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return err
	}
	if !baby.IsParent(userID) {
		return ErrPermissionDenied
	}
	return s.DB.Model(baby).Update("is_active", false).Error
}

// AddParent grants a user full parent ownership of a baby. Only an
// existing parent may add another.
func (s *BabyService) AddParent(babyID, actorID, userID uint) error {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return err
	}
	if !baby.IsParent(actorID) {
		return ErrPermissionDenied
	}
	if baby.IsParent(userID) {
		return NewValidationError("user %d is already a parent", userID)
	}

	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return s.DB.Model(baby).Association("Parents").Append(&user)
}

// HasAccess reports whether a user may interact with a baby at all
func (s *BabyService) HasAccess(userID, babyID uint) bool {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return false
	}
	return baby.HasAccess(userID)
}

// PermissionsFor returns the effective permission set of a user on a baby
func (s *BabyService) PermissionsFor(userID, babyID uint) (models.PermissionSet, error) {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return models.PermissionSet{}, err
	}
	if !baby.HasAccess(userID) {
		return models.PermissionSet{}, ErrAccessDenied
	}
	return baby.PermissionsFor(userID), nil
}

// AddCaregiver grants a user caregiver access to a baby. The actor needs
// the manageUsers permission. The parent cannot be added as a caregiver.
func (s *BabyService) AddCaregiver(babyID, actorID, userID uint, role models.CaregiverRole, perms *models.PermissionSet) (*models.Caregiver, error) {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return nil, err
	}
	if !baby.HasAccess(actorID) {
		return nil, ErrAccessDenied
	}
	if !baby.PermissionsFor(actorID).ManageUsers {
		return nil, ErrPermissionDenied
	}
	if !models.ValidRole(role) {
		return nil, NewValidationError("invalid caregiver role: %s", role)
	}
	if baby.IsParent(userID) {
		return nil, NewValidationError("the parent already has full access")
	}

	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var count int64
	if err := s.DB.Model(&models.Caregiver{}).
		Where("baby_id = ? AND user_id = ?", babyID, userID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCaregiverExists
	}

	permissions := models.DefaultCaregiverPermissions()
	if perms != nil {
		permissions = *perms
	}
	// Parent-only flags are never stored on a caregiver
	permissions.EditProfile = false
	permissions.ManageUsers = false

	caregiver := &models.Caregiver{
		BabyID:      babyID,
		UserID:      userID,
		Role:        role,
		Permissions: permissions,
		AddedAt:     time.Now(),
	}
	if err := s.DB.Create(caregiver).Error; err != nil {
		return nil, err
	}
	caregiver.User = &user
	return caregiver, nil
}

// UpdateCaregiverPermissions replaces a caregiver's permission set
func (s *BabyService) UpdateCaregiverPermissions(babyID, actorID, caregiverID uint, perms models.PermissionSet) (*models.Caregiver, error) {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return nil, err
	}
	if !baby.HasAccess(actorID) {
		return nil, ErrAccessDenied
	}
	if !baby.PermissionsFor(actorID).ManageUsers {
		return nil, ErrPermissionDenied
	}

	var caregiver models.Caregiver
	if err := s.DB.Where("id = ? AND baby_id = ?", caregiverID, babyID).First(&caregiver).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaregiverNotFound
		}
		return nil, err
	}

	perms.EditProfile = false
	perms.ManageUsers = false
	caregiver.Permissions = perms
	if err := s.DB.Save(&caregiver).Error; err != nil {
		return nil, err
	}
	return &caregiver, nil
}

// RemoveCaregiver revokes a caregiver's access
func (s *BabyService) RemoveCaregiver(babyID, actorID, caregiverID uint) error {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return err
	}
	if !baby.HasAccess(actorID) {
		return ErrAccessDenied
	}
	if !baby.PermissionsFor(actorID).ManageUsers {
		return ErrPermissionDenied
	}

	result := s.DB.Where("id = ? AND baby_id = ?", caregiverID, babyID).Delete(&models.Caregiver{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCaregiverNotFound
	}
	return nil
}

// AddEmergencyContact adds a contact to notify on escalations
func (s *BabyService) AddEmergencyContact(babyID, actorID uint, contact *models.EmergencyContact) error {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return err
	}
	if !baby.HasAccess(actorID) {
		return ErrAccessDenied
	}
	if !baby.PermissionsFor(actorID).ManageUsers {
		return ErrPermissionDenied
	}
	if contact.Name == "" || contact.PhoneNumber == "" {
		return NewValidationError("name and phone number are required")
	}

	contact.BabyID = babyID
	return s.DB.Create(contact).Error
}

// GetEmergencyContacts lists a baby's emergency contacts, primary first
func (s *BabyService) GetEmergencyContacts(babyID, userID uint) ([]models.EmergencyContact, error) {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return nil, err
	}
	if !baby.HasAccess(userID) {
		return nil, ErrAccessDenied
	}

	var contacts []models.EmergencyContact
	if err := s.DB.Where("baby_id = ?", babyID).
		Order("is_primary DESC, name ASC").Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

// AddMilestone records a developmental milestone
func (s *BabyService) AddMilestone(babyID, actorID uint, milestone *models.Milestone) error {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return err
	}
	if !baby.HasAccess(actorID) {
		return ErrAccessDenied
	}
	if milestone.Title == "" {
		return NewValidationError("milestone title is required")
	}
	if milestone.AchievedAt.IsZero() {
		milestone.AchievedAt = time.Now()
	}

	milestone.BabyID = babyID
	return s.DB.Create(milestone).Error
}

// GetMilestones lists a baby's milestones, newest first
func (s *BabyService) GetMilestones(babyID, userID uint) ([]models.Milestone, error) {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return nil, err
	}
	if !baby.HasAccess(userID) {
		return nil, ErrAccessDenied
	}

	var milestones []models.Milestone
	if err := s.DB.Where("baby_id = ?", babyID).
		Order("achieved_at DESC").Find(&milestones).Error; err != nil {
		return nil, err
	}
	return milestones, nil
}

// statsCacheTTL bounds how stale the aggregate statistics may get
const statsCacheTTL = 5 * time.Minute

// GetBabyStatistics aggregates activity across all of a baby's sessions.
// Results are cached in Redis when a cache is available.
func (s *BabyService) GetBabyStatistics(babyID, userID uint) (*BabyStatistics, error) {
	baby, err := s.loadBaby(babyID)
	if err != nil {
		return nil, err
	}
	if !baby.HasAccess(userID) {
		return nil, ErrAccessDenied
	}
	if !baby.PermissionsFor(userID).ViewReports {
		return nil, ErrPermissionDenied
	}

	if s.Redis != nil {
		var cached BabyStatistics
		if err := s.Redis.GetBabyStatistics(babyID, &cached); err == nil {
			return &cached, nil
		}
	}

	stats := &BabyStatistics{
		BabyID:      babyID,
		AgeInMonths: baby.AgeInMonths(),
	}

	if err := s.DB.Model(&models.MonitoringSession{}).
		Where("baby_id = ?", babyID).Count(&stats.TotalSessions).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Detection{}).
		Where("baby_id = ?", babyID).Count(&stats.TotalDetections).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.MonitoringSession{}).
		Where("baby_id = ?", babyID).
		Select("COALESCE(SUM(stat_safety_incidents), 0)").Scan(&stats.SafetyIncidents).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Detection{}).
		Where("baby_id = ? AND status IN ?", babyID,
			[]models.DetectionStatus{models.DetectionStatusNew, models.DetectionStatusAcknowledged, models.DetectionStatusInvestigating}).
		Count(&stats.OpenDetections).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Caregiver{}).
		Where("baby_id = ?", babyID).Count(&stats.CaregiverCount).Error; err != nil {
		return nil, err
	}

	var sessions []models.MonitoringSession
	if err := s.DB.Where("baby_id = ? AND end_time IS NOT NULL", babyID).Find(&sessions).Error; err != nil {
		return nil, err
	}
	for _, session := range sessions {
		stats.MonitoredSeconds += session.Duration().Seconds()
		if stats.LastSessionEnded == nil || session.EndTime.After(*stats.LastSessionEnded) {
			stats.LastSessionEnded = session.EndTime
		}
	}

	if s.Redis != nil {
		if err := s.Redis.CacheBabyStatistics(babyID, stats, statsCacheTTL); err != nil {
			config.Warning("[Baby] failed to cache statistics for baby %d: %v", babyID, err)
		}
	}

	return stats, nil
}
