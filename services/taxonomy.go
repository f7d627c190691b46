package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/utils"
)

// CategoryService manages the category list.
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService returns a CategoryService backed by db.
func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

// ListCategories returns all categories ordered by name.
func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

// GetCategory loads one category.
func (s *CategoryService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFoundOr(err, "category")
	}
	return &c, nil
}

// CreateCategory adds a category. Administrators only.
func (s *CategoryService) CreateCategory(ctx context.Context, actor *Actor, name, description string) (*models.Category, error) {
	if err := authorizeActive(actor, ActionManageCategories, Resource{}); err != nil {
		return nil, err
	}
	c := &models.Category{}
	if err := s.fill(ctx, c, name, description); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, categoryUniqueOr(err)
	}
	return c, nil
}

// UpdateCategory renames or redescribes a category. Administrators only.
func (s *CategoryService) UpdateCategory(ctx context.Context, actor *Actor, id uint, name, description string) (*models.Category, error) {
	if err := authorizeActive(actor, ActionManageCategories, Resource{}); err != nil {
		return nil, err
	}
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fill(ctx, c, name, description); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, categoryUniqueOr(err)
	}
	return c, nil
}

// DeleteCategory removes a category that no menfess references.
func (s *CategoryService) DeleteCategory(ctx context.Context, actor *Actor, id uint) error {
	if err := authorizeActive(actor, ActionManageCategories, Resource{}); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Category
		if err := tx.First(&c, id).Error; err != nil {
			return notFoundOr(err, "category")
		}
		var n int64
		if err := tx.Model(&models.Menfess{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return newError(KindCategoryInUse, "category %q is used by %d menfess", c.Name, n)
		}
		return tx.Delete(&c).Error
	})
}

func (s *CategoryService) fill(ctx context.Context, c *models.Category, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return newError(KindEmptyContent, "category name cannot be empty")
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("name = ? AND id <> ?", name, c.ID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return newError(KindUniqueViolation, "category %q already exists", name)
	}
	c.Name = name
	c.Description = utils.StripTags(strings.TrimSpace(description))
	return nil
}

func categoryUniqueOr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &AppError{Kind: KindUniqueViolation, Message: "category already exists", Err: err}
	}
	return err
}
