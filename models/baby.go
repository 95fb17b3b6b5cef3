package models

import (
	"errors"
	"time"
)

// Gender of a baby
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// CaregiverRole describes the relationship of a caregiver to a baby
type CaregiverRole string

const (
	RoleGrandparent CaregiverRole = "Grandparent"
	RoleNanny       CaregiverRole = "Nanny"
	RoleRelative    CaregiverRole = "Relative"
	RoleFriend      CaregiverRole = "Friend"
	RoleOther       CaregiverRole = "Other"
)

// PermissionSet is the effective access granted to a user for a baby.
// EditProfile and ManageUsers are reserved for parents; a caregiver's
// stored values for them are ignored.
type PermissionSet struct {
	ViewLiveStream bool `json:"view_live_stream"`
	ReceiveAlerts  bool `json:"receive_alerts"`
	EditRoutines   bool `json:"edit_routines"`
	ViewReports    bool `json:"view_reports"`
	EditProfile    bool `json:"edit_profile"`
	ManageUsers    bool `json:"manage_users"`
}

// FullPermissions returns the permission set of a parent (everything granted)
func FullPermissions() PermissionSet {
	return PermissionSet{
		ViewLiveStream: true,
		ReceiveAlerts:  true,
		EditRoutines:   true,
		ViewReports:    true,
		EditProfile:    true,
		ManageUsers:    true,
	}
}

// DefaultCaregiverPermissions returns the permissions of a newly added
// caregiver before a parent grants any: nothing at all
func DefaultCaregiverPermissions() PermissionSet {
	return PermissionSet{}
}

// Baby represents a monitored child
type Baby struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FirstName    string    `gorm:"type:varchar(50);not null" json:"first_name"`
	LastName     string    `gorm:"type:varchar(50);not null" json:"last_name"`
	DateOfBirth  time.Time `gorm:"not null" json:"date_of_birth"`
	Gender       Gender    `gorm:"type:varchar(10);not null" json:"gender"`
	ProfilePhoto string    `gorm:"type:varchar(255)" json:"profile_photo,omitempty"`

	// Parents own the baby record with full permissions; caregivers are
	// granted scoped access. At least one parent is required.
	Parents []User `gorm:"many2many:baby_parents" json:"parents,omitempty"`

	Caregivers        []Caregiver        `gorm:"foreignKey:BabyID" json:"caregivers,omitempty"`
	EmergencyContacts []EmergencyContact `gorm:"foreignKey:BabyID" json:"emergency_contacts,omitempty"`
	Milestones        []Milestone        `gorm:"foreignKey:BabyID" json:"milestones,omitempty"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Caregiver links a user to a baby with a scoped permission set
type Caregiver struct {
	ID     uint  `gorm:"primaryKey" json:"id"`
	BabyID uint  `gorm:"not null;uniqueIndex:idx_baby_user" json:"baby_id"`
	UserID uint  `gorm:"not null;uniqueIndex:idx_baby_user" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Role CaregiverRole `gorm:"type:varchar(20);not null" json:"role"`

	// Permission columns are flattened into the caregivers table
	Permissions PermissionSet `gorm:"embedded;embeddedPrefix:perm_" json:"permissions"`

	AddedAt   time.Time `json:"added_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmergencyContact is a person to notify when an alert escalates
type EmergencyContact struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	BabyID       uint      `gorm:"not null;index" json:"baby_id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	Relationship string    `gorm:"type:varchar(50);not null" json:"relationship"`
	PhoneNumber  string    `gorm:"type:varchar(20);not null" json:"phone_number"`
	IsPrimary    bool      `gorm:"default:false" json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Milestone records a developmental event for a baby
type Milestone struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BabyID      uint      `gorm:"not null;index" json:"baby_id"`
	Title       string    `gorm:"type:varchar(100);not null" json:"title"`
	Description string    `gorm:"type:varchar(500)" json:"description,omitempty"`
	AchievedAt  time.Time `gorm:"not null" json:"achieved_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsParent reports whether the given user owns this baby record.
// Parents must be loaded.
func (b *Baby) IsParent(userID uint) bool {
	for _, p := range b.Parents {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// HasAccess reports whether the given user is a parent or a caregiver.
// Parents and caregivers must be loaded for the checks to succeed.
func (b *Baby) HasAccess(userID uint) bool {
	if b.IsParent(userID) {
		return true
	}
	for _, c := range b.Caregivers {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// PermissionsFor returns the effective permissions of a user on this baby.
// Parents hold every permission; caregivers hold their granted set with the
// parent-only flags masked off; anyone else holds nothing.
func (b *Baby) PermissionsFor(userID uint) PermissionSet {
	if b.IsParent(userID) {
		return FullPermissions()
	}
	for _, c := range b.Caregivers {
		if c.UserID == userID {
			perms := c.Permissions
			perms.EditProfile = false
			perms.ManageUsers = false
			return perms
		}
	}
	return PermissionSet{}
}

// AgeInMonths returns the baby's age in whole months
func (b *Baby) AgeInMonths() int {
	now := time.Now()
	months := (now.Year()-b.DateOfBirth.Year())*12 + int(now.Month()) - int(b.DateOfBirth.Month())
	if now.Day() < b.DateOfBirth.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// AgeInDays returns the baby's age in whole days
func (b *Baby) AgeInDays() int {
	days := int(time.Since(b.DateOfBirth).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Validate checks the baby record for required fields
func (b *Baby) Validate() error {
	if b.FirstName == "" || b.LastName == "" {
		return errors.New("first name and last name are required")
	}
	if b.DateOfBirth.IsZero() {
		return errors.New("date of birth is required")
	}
	if b.DateOfBirth.After(time.Now()) {
		return errors.New("date of birth cannot be in the future")
	}
	switch b.Gender {
	case GenderMale, GenderFemale, GenderOther:
	default:
		return errors.New("gender must be Male, Female or Other")
	}
	if len(b.Parents) == 0 {
		return errors.New("at least one parent is required")
	}
	return nil
}

// ValidRole reports whether the caregiver role is one of the known values
func ValidRole(role CaregiverRole) bool {
	switch role {
	case RoleGrandparent, RoleNanny, RoleRelative, RoleFriend, RoleOther:
		return true
	}
	return false
}
