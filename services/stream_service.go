package services

import (
	"fmt"
	"time"

	"github.com/tencentyun/tls-sig-api-v2-golang/tencentyun"

	"angeleyes-http-service/config"
)

// InterfaceStreamService defines the live stream token service interface
type InterfaceStreamService interface {
	GetUserSig(userID string) (*StreamTokenInfo, error)
	RoomIDForBaby(babyID uint) string
}

// StreamTokenInfo carries the credentials a client needs to join a live
// video room
type StreamTokenInfo struct {
	SDKAppID    int       `json:"sdk_app_id"`
	UserID      string    `json:"user_id"`
	UserSig     string    `json:"user_sig"`
	RoomID      string    `json:"room_id,omitempty"`
	ExpireTime  time.Time `json:"expire_time"`
	RequestTime time.Time `json:"request_time"`
}

// StreamService generates TRTC credentials for live baby monitoring video
type StreamService struct {
	Config *config.Config
}

// NewStreamService creates a new stream service
func NewStreamService(cfg *config.Config) InterfaceStreamService {
	return &StreamService{
		Config: cfg,
	}
}

// GetUserSig generates a server-side UserSig for TRTC. The secret key
// never leaves the server.
func (s *StreamService) GetUserSig(userID string) (*StreamTokenInfo, error) {
	if s.Config.TencentSDKAppID == 0 || s.Config.TencentSecretKey == "" {
		return nil, fmt.Errorf("missing required TRTC configuration")
	}

	// UserSig is valid for 24 hours
	expireSeconds := 86400
	now := time.Now()
	expireTime := now.Add(time.Duration(expireSeconds) * time.Second)

	userSig, err := tencentyun.GenUserSig(
		s.Config.TencentSDKAppID,
		s.Config.TencentSecretKey,
		userID,
		expireSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate UserSig: %w", err)
	}

	return &StreamTokenInfo{
		SDKAppID:    s.Config.TencentSDKAppID,
		UserID:      userID,
		UserSig:     userSig,
		ExpireTime:  expireTime,
		RequestTime: now,
	}, nil
}

// RoomIDForBaby returns the stable video room for a baby's camera feed.
// Every viewer of the same baby joins the same room.
func (s *StreamService) RoomIDForBaby(babyID uint) string {
	return fmt.Sprintf("baby_%d", babyID)
}
