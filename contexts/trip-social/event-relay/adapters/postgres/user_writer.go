package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"waypoint/contexts/trip-social/event-relay/domain/entities"
	domainerrors "waypoint/contexts/trip-social/event-relay/domain/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// UserWriter applies relayed user events to the users table owned by the
// CRUD layer. Writes are idempotent-friendly: duplicate creates surface as
// ErrDuplicateUser so consumer retries can treat them as already applied.
type UserWriter struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewUserWriter(db *gorm.DB, logger *slog.Logger) *UserWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserWriter{
		db:     db,
		logger: logger,
	}
}

func (w *UserWriter) CreateUser(ctx context.Context, user entities.UserSnapshot) error {
	now := time.Now().UTC()
	row := userModel{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (w *UserWriter) UpdateUserPassword(ctx context.Context, update entities.PasswordUpdate) error {
	return w.updateUser(ctx, update.ID, map[string]any{
		"salt":     update.Salt,
		"password": update.Password,
	})
}

func (w *UserWriter) UpdateUserAdditionalInfo(ctx context.Context, info entities.UserAdditionalInfo) error {
	return w.updateUser(ctx, info.ID, map[string]any{
		"gender":        info.Gender,
		"age":           info.Age,
		"description":   info.Desc,
		"profile_image": info.ProfileImage,
	})
}

func (w *UserWriter) SoftDeleteUser(ctx context.Context, del entities.UserDelete) error {
	return w.updateUser(ctx, del.ID, map[string]any{
		"status": false,
	})
}

func (w *UserWriter) updateUser(ctx context.Context, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	result := w.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

type userModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Username     string    `gorm:"column:username"`
	Email        string    `gorm:"column:email"`
	Role         string    `gorm:"column:role"`
	Status       bool      `gorm:"column:status"`
	Salt         string    `gorm:"column:salt"`
	Password     string    `gorm:"column:password"`
	Gender       string    `gorm:"column:gender"`
	Age          int       `gorm:"column:age"`
	Description  string    `gorm:"column:description"`
	ProfileImage string    `gorm:"column:profile_image"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string {
	return "users"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
