// Package repository contains the repository layer for the Misbar API
package repository

import (
	"context"
	"time"

	"github.com/nsvirk/misbarapi/internal/models"
	"gorm.io/gorm"
)

// UserRepository stores users and the identity links attached to them
type UserRepository struct {
	DB *gorm.DB
}

// NewUserRepository creates a new repository for users
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Create inserts a user. A taken email or provider id yields models.ErrDuplicateKey.
func (r *UserRepository) Create(ctx context.Context, user *models.UserModel) error {
	return translateError(r.DB.WithContext(ctx).Create(user).Error)
}

// GetByID gets a user by id
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.UserModel, error) {
	var user models.UserModel
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// GetByEmail gets a user by the exact stored email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.UserModel, error) {
	var user models.UserModel
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// GetByProviderID gets the user linked to a federated subject
func (r *UserRepository) GetByProviderID(ctx context.Context, kind models.CredentialKind, subject string) (*models.UserModel, error) {
	column := kind.Column()
	if column == "" {
		return nil, models.ErrNotFound
	}
	var user models.UserModel
	if err := r.DB.WithContext(ctx).Where(column+" = ?", subject).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// LinkProvider attaches a federated subject to an existing user and records the
// link. The provider column is only written while it is still empty; a row that
// already carries a subject for the provider yields models.ErrAlreadyLinked.
func (r *UserRepository) LinkProvider(ctx context.Context, link *models.IdentityLinkModel) error {
	column := link.Provider.Column()
	if column == "" {
		return models.ErrNotFound
	}
	if link.LinkedAt.IsZero() {
		link.LinkedAt = time.Now()
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserModel{}).
			Where("id = ? AND "+column+" IS NULL", link.UserID).
			Updates(map[string]interface{}{column: link.ProviderSubject, "updated_at": link.LinkedAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrAlreadyLinked
		}
		return tx.Create(link).Error
	})
	return translateError(err)
}

// UpdateProfile updates the self-editable fields of a user
func (r *UserRepository) UpdateProfile(ctx context.Context, id uint, update models.ProfileUpdate) (*models.UserModel, error) {
	return r.update(ctx, id, map[string]interface{}{
		"name":         update.Name,
		"last_name":    update.LastName,
		"institution":  update.Institution,
		"phone_number": update.PhoneNumber,
	})
}

// UpdateByAdmin updates a user on behalf of an administrator
func (r *UserRepository) UpdateByAdmin(ctx context.Context, id uint, update models.AdminUpdate) (*models.UserModel, error) {
	return r.update(ctx, id, map[string]interface{}{
		"name":         update.Name,
		"last_name":    update.LastName,
		"email":        update.Email,
		"institution":  update.Institution,
		"phone_number": update.PhoneNumber,
		"role":         update.Role,
	})
}

func (r *UserRepository) update(ctx context.Context, id uint, fields map[string]interface{}) (*models.UserModel, error) {
	fields["updated_at"] = time.Now()
	res := r.DB.WithContext(ctx).Model(&models.UserModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// List returns all users, newest first
func (r *UserRepository) List(ctx context.Context) ([]models.UserModel, error) {
	var users []models.UserModel
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Delete removes a user and every row owned by it in one transaction
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.UserModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return models.ErrNotFound
		}

		userPosts := tx.Model(&models.ForumPostModel{}).Select("id").Where("user_id = ?", id)
		userSessions := tx.Model(&models.ChatSessionModel{}).Select("id").Where("user_id = ?", id)

		steps := []struct {
			model interface{}
			query interface{}
			args  []interface{}
		}{
			{&models.LoginLogModel{}, "user_id = ?", []interface{}{id}},
			{&models.IdentityLinkModel{}, "user_id = ?", []interface{}{id}},
			{&models.ChatMessageModel{}, "session_id IN (?)", []interface{}{userSessions}},
			{&models.ChatSessionModel{}, "user_id = ?", []interface{}{id}},
			{&models.ForumReplyModel{}, "user_id = ? OR post_id IN (?)", []interface{}{id, userPosts}},
			{&models.ForumPostModel{}, "user_id = ?", []interface{}{id}},
			{&models.UserModel{}, "id = ?", []interface{}{id}},
		}
		for _, step := range steps {
			if err := tx.Where(step.query, step.args...).Delete(step.model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translateError(err)
}
