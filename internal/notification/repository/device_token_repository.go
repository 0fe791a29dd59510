package repository

import (
	"context"
	"time"

	"pmchat-backend/internal/notification/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceTokenRepository stores push notification tokens per user email
type DeviceTokenRepository interface {
	SaveToken(ctx context.Context, email, token, deviceInfo string) error
	GetTokensByEmail(ctx context.Context, email string) ([]domain.DeviceToken, error)
	DeleteToken(ctx context.Context, token string) error
	DeleteTokensByEmail(ctx context.Context, email string) error
}

type deviceTokenRepository struct {
	db *gorm.DB
}

func NewDeviceTokenRepository(db *gorm.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

// SaveToken inserts the token or moves it to email when it already exists
func (r *deviceTokenRepository) SaveToken(ctx context.Context, email, token, deviceInfo string) error {
	now := time.Now()
	deviceToken := &domain.DeviceToken{
		ID:         uuid.New().String(),
		Email:      email,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// INSERT ... ON CONFLICT (token) DO UPDATE
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "device_info", "updated_at"}),
	}).Create(deviceToken).Error
}

func (r *deviceTokenRepository) GetTokensByEmail(ctx context.Context, email string) ([]domain.DeviceToken, error) {
	var tokens []domain.DeviceToken
	if err := r.db.WithContext(ctx).Where("email = ?", email).Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *deviceTokenRepository) DeleteToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&domain.DeviceToken{}).Error
}

func (r *deviceTokenRepository) DeleteTokensByEmail(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).Where("email = ?", email).Delete(&domain.DeviceToken{}).Error
}
