package services

import (
	"errors"

	"gorm.io/gorm"

	"angeleyes-http-service/config"
	"angeleyes-http-service/models"
)

// InterfaceUserService defines the user account service interface
type InterfaceUserService interface {
	Register(user *models.User) error
	Login(email, password string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	UpdateUser(user *models.User) error
}

// UserService provides account management
type UserService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, cfg *config.Config) InterfaceUserService {
	return &UserService{
		DB:     db,
		Config: cfg,
	}
}

// Register creates a new user account. The password is hashed by the
// model hook.
func (s *UserService) Register(user *models.User) error {
	if user.Email == "" || user.Password == "" {
		return NewValidationError("email and password are required")
	}
	if user.FirstName == "" || user.LastName == "" {
		return NewValidationError("first name and last name are required")
	}

	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}

	return s.DB.Create(user).Error
}

// Login verifies credentials and returns the account
func (s *UserService) Login(email, password string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("email = ? AND is_active = ?", email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, err
	}

	if !models.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidLogin
	}

	return &user, nil
}

// GetUserByID finds a user by ID
func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail finds a user by email
func (s *UserService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser saves profile changes
func (s *UserService) UpdateUser(user *models.User) error {
	return s.DB.Save(user).Error
}
