package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/utils"
)

// NewUser is the input to CreateUser. Role defaults to user and
// ProfilePicture to the placeholder.
type NewUser struct {
	Username       string
	Email          string
	Password       string
	Role           string
	ProfilePicture string
}

// ProfilePatch updates the caller's own account. Nil or empty fields are left alone.
type ProfilePatch struct {
	Username        *string
	Email           *string
	ThemePreference *string
	NewPassword     string
	ProfilePicture  string
}

// AdminUserPatch is what an administrator may change on any account.
type AdminUserPatch struct {
	Username       *string
	Email          *string
	Role           *string
	ProfilePicture string
}

// UserPage is one page of the user directory.
type UserPage struct {
	Items      []models.User `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// bcrypt ignores everything past this many bytes and x/crypto refuses longer input.
const maxPasswordBytes = 72

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// hashPassword rejects passwords bcrypt cannot hold before hashing.
func hashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", newError(KindInvalidInput, "password must be at most %d bytes", maxPasswordBytes)
	}
	return utils.HashPassword(password)
}

// unknownUserHash is compared against when no account matches, so a login
// for a missing username costs the same bcrypt round as a wrong password.
func unknownUserHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = utils.HashPassword("menfess-unknown-user")
	})
	return dummyHash
}

// IdentityService owns accounts, credentials and suspension.
type IdentityService struct {
	db    *gorm.DB
	media BlobReleaser
}

// NewIdentityService returns an IdentityService backed by db.
func NewIdentityService(db *gorm.DB, media BlobReleaser) *IdentityService {
	return &IdentityService{db: db, media: media}
}

// CreateUser registers an account. Username and email must each be unused.
func (s *IdentityService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, newError(KindEmptyContent, "username, email and password are required")
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, newError(KindInvalidInput, "unknown role %q", role)
	}
	if err := s.checkUnique(ctx, s.db, 0, username, email); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Username:       username,
		Email:          email,
		PasswordHash:   hash,
		Role:           role,
		ProfilePicture: in.ProfilePicture,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, uniqueOr(err)
	}
	return u, nil
}

// Authenticate checks a username and password. Suspended accounts still
// authenticate; the flag is on the returned user.
func (s *IdentityService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CheckPassword(unknownUserHash(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// GetUser loads a user by id.
func (s *IdentityService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &u, nil
}

// ListUsers pages through all accounts, newest first. Administrators only.
func (s *IdentityService) ListUsers(ctx context.Context, actor *Actor, q PageQuery) (*UserPage, error) {
	if err := Authorize(actor, ActionListUsers, Resource{}); err != nil {
		return nil, err
	}
	q = q.normalize()
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").
		Offset(q.offset()).Limit(q.PageSize).Find(&users).Error; err != nil {
		return nil, err
	}
	return &UserPage{Items: users, Pagination: newPagination(q, total)}, nil
}

// UpdateProfile applies patch to the user's own account. A new profile
// picture replaces the old one, whose blob is released afterwards. On
// failure the newly stored picture is released instead.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID uint, patch ProfilePatch) (_ *models.User, err error) {
	defer s.releaseOnError(ctx, patch.ProfilePicture, &err)

	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.applyNames(ctx, u, patch.Username, patch.Email); err != nil {
		return nil, err
	}
	if patch.ThemePreference != nil {
		if !models.ValidTheme(*patch.ThemePreference) {
			return nil, newError(KindInvalidInput, "theme must be light or dark")
		}
		u.ThemePreference = *patch.ThemePreference
	}
	if patch.NewPassword != "" {
		hash, err := hashPassword(patch.NewPassword)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	return s.saveWithPicture(ctx, u, patch.ProfilePicture)
}

// AdminUpdateUser lets an administrator edit any account.
func (s *IdentityService) AdminUpdateUser(ctx context.Context, actor *Actor, userID uint, patch AdminUserPatch) (_ *models.User, err error) {
	defer s.releaseOnError(ctx, patch.ProfilePicture, &err)

	if err := authorizeActive(actor, ActionEditUser, Resource{}); err != nil {
		return nil, err
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.applyNames(ctx, u, patch.Username, patch.Email); err != nil {
		return nil, err
	}
	if patch.Role != nil {
		if !models.ValidRole(*patch.Role) {
			return nil, newError(KindInvalidInput, "unknown role %q", *patch.Role)
		}
		u.Role = *patch.Role
	}
	return s.saveWithPicture(ctx, u, patch.ProfilePicture)
}

// SetTheme stores the user's theme preference.
func (s *IdentityService) SetTheme(ctx context.Context, userID uint, theme string) error {
	if !models.ValidTheme(theme) {
		return newError(KindInvalidInput, "theme must be light or dark")
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("theme_preference", theme)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// mysql reports zero affected rows when the value is unchanged
		if _, err := s.GetUser(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// SetSuspended sets the suspension flag. Administrators cannot be suspended.
func (s *IdentityService) SetSuspended(ctx context.Context, actor *Actor, userID uint, suspended bool) (*models.User, error) {
	// checked before the lookup: a missing target and a forbidden one must look alike
	if err := authorizeActive(actor, ActionSuspendUser, Resource{}); err != nil {
		return nil, err
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, ActionSuspendUser, Resource{TargetRole: u.Role}); err != nil {
		return nil, err
	}
	if u.Suspended == suspended {
		return u, nil
	}
	if err := s.db.WithContext(ctx).Model(u).Update("suspended", suspended).Error; err != nil {
		return nil, err
	}
	action := "unsuspend"
	if suspended {
		action = "suspend"
	}
	utils.ModerationActions.WithLabelValues(action).Inc()
	return u, nil
}

// ToggleSuspended flips the suspension flag.
func (s *IdentityService) ToggleSuspended(ctx context.Context, actor *Actor, userID uint) (*models.User, error) {
	if err := authorizeActive(actor, ActionSuspendUser, Resource{}); err != nil {
		return nil, err
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.SetSuspended(ctx, actor, userID, !u.Suspended)
}

func (s *IdentityService) applyNames(ctx context.Context, u *models.User, username, email *string) error {
	newName, newEmail := "", ""
	if username != nil {
		newName = strings.TrimSpace(*username)
		if newName == "" {
			return newError(KindEmptyContent, "username cannot be empty")
		}
		if newName == u.Username {
			newName = ""
		}
	}
	if email != nil {
		newEmail = strings.TrimSpace(*email)
		if newEmail == "" {
			return newError(KindEmptyContent, "email cannot be empty")
		}
		if newEmail == u.Email {
			newEmail = ""
		}
	}
	if err := s.checkUnique(ctx, s.db, u.ID, newName, newEmail); err != nil {
		return err
	}
	if newName != "" {
		u.Username = newName
	}
	if newEmail != "" {
		u.Email = newEmail
	}
	return nil
}

func (s *IdentityService) saveWithPicture(ctx context.Context, u *models.User, picture string) (*models.User, error) {
	old := u.ProfilePicture
	if picture != "" {
		u.ProfilePicture = picture
	}
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return nil, uniqueOr(err)
	}
	if picture != "" && old != picture {
		s.release(ctx, old)
	}
	return u, nil
}

// checkUnique fails with UniqueViolation if another account (not exceptID)
// already uses username or email. Empty values are skipped.
func (s *IdentityService) checkUnique(ctx context.Context, db *gorm.DB, exceptID uint, username, email string) error {
	check := func(column, value string) error {
		if value == "" {
			return nil
		}
		var n int64
		if err := db.WithContext(ctx).Model(&models.User{}).
			Where(column+" = ? AND id <> ?", value, exceptID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return newError(KindUniqueViolation, "%s already exists", column)
		}
		return nil
	}
	if err := check("username", username); err != nil {
		return err
	}
	return check("email", email)
}

func (s *IdentityService) releaseOnError(ctx context.Context, ref string, errp *error) {
	if *errp != nil && ref != "" {
		s.release(ctx, ref)
	}
}

func (s *IdentityService) release(ctx context.Context, ref string) {
	if s.media == nil || ref == "" || ref == models.DefaultProfilePicture {
		return
	}
	if err := s.media.Release(ctx, MediaProfilePicture, ref); err != nil {
		utils.Sugar.Warnw("release profile picture failed", "ref", ref, "err", err)
	}
}

// uniqueOr maps a duplicate key error raised by the database into
// UniqueViolation. It covers the window between checkUnique and the write.
func uniqueOr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &AppError{Kind: KindUniqueViolation, Message: "username or email already exists", Err: err}
	}
	return err
}
