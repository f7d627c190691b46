package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/utils"
)

// SeedConfig names the administrator account created on first start.
type SeedConfig struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// DefaultCategories are created on first start.
var DefaultCategories = []models.Category{
	{Name: "General", Description: "General discussions and topics"},
	{Name: "Confession", Description: "Personal confessions and secrets"},
	{Name: "Question", Description: "Questions and inquiries"},
	{Name: "Story", Description: "Personal stories and experiences"},
	{Name: "Advice", Description: "Seeking or giving advice"},
}

// Bootstrap makes sure the seed administrator and default categories exist.
// Running it again changes nothing. An existing account holding the seed
// username, or failing that the seed email, is taken as the seed admin and
// promoted when it is not one already.
func Bootstrap(ctx context.Context, db *gorm.DB, cfg SeedConfig) error {
	if err := ensureSeedAdmin(ctx, db, cfg); err != nil {
		return err
	}

	for _, def := range DefaultCategories {
		c := models.Category{}
		if err := db.WithContext(ctx).
			Where(models.Category{Name: def.Name}).
			Attrs(models.Category{Description: def.Description}).
			FirstOrCreate(&c).Error; err != nil {
			return fmt.Errorf("seed category %s: %w", def.Name, err)
		}
	}
	return nil
}

func ensureSeedAdmin(ctx context.Context, db *gorm.DB, cfg SeedConfig) error {
	var holder models.User
	err := db.WithContext(ctx).Where("username = ?", cfg.AdminUsername).First(&holder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.WithContext(ctx).Where("email = ?", cfg.AdminEmail).First(&holder).Error
		if err == nil {
			utils.Sugar.Warnf("seed admin email %q belongs to user %q; using that account as the seed admin",
				cfg.AdminEmail, holder.Username)
		}
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		ids := NewIdentityService(db, nil)
		if _, err := ids.CreateUser(ctx, NewUser{
			Username: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
			Role:     models.RoleAdmin,
		}); err != nil {
			return fmt.Errorf("create seed admin: %w", err)
		}
		utils.Sugar.Infof("created seed admin %q", cfg.AdminUsername)
		return nil
	case err != nil:
		return err
	}

	if holder.Role == models.RoleAdmin {
		return nil
	}
	previous := holder.Role
	if err := db.WithContext(ctx).Model(&holder).Update("role", models.RoleAdmin).Error; err != nil {
		return fmt.Errorf("promote seed admin %q: %w", holder.Username, err)
	}
	utils.Sugar.Warnf("promoted existing %s account %q to seed admin", previous, holder.Username)
	return nil
}
