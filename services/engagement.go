package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/utils"
)

// LikeResult is the state after a toggle.
type LikeResult struct {
	Liked      bool  `json:"liked"`
	TotalLikes int64 `json:"total_likes"`
}

// UserSummary is the public face of a user shown next to comments and reports.
type UserSummary struct {
	ID                uint   `json:"id"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

func summarize(u models.User) UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, ProfilePictureURL: MediaURL(MediaProfilePicture, u.ProfilePicture)}
}

// CommentView is a comment with its author.
type CommentView struct {
	ID        uint        `json:"id"`
	MenfessID uint        `json:"menfess_id"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	Author    UserSummary `json:"author"`
}

// ReportView is a report with the flagged menfess and its reporter.
type ReportView struct {
	ID        uint         `json:"id"`
	Reason    string       `json:"reason"`
	CreatedAt time.Time    `json:"created_at"`
	MenfessID uint         `json:"menfess_id"`
	Menfess   *MenfessBody `json:"menfess,omitempty"`
	Reporter  *UserSummary `json:"reporter,omitempty"`
}

// MenfessBody is the minimal menfess payload shown in the report queue.
type MenfessBody struct {
	Content  string `json:"content"`
	Rendered string `json:"rendered"`
	Approved bool   `json:"approved"`
}

// ReportPage is one page of the report queue.
type ReportPage struct {
	Items      []ReportView `json:"items"`
	Pagination Pagination   `json:"pagination"`
}

// EngagementService handles likes, comments and reports.
type EngagementService struct {
	db *gorm.DB
}

// NewEngagementService returns an EngagementService backed by db.
func NewEngagementService(db *gorm.DB) *EngagementService {
	return &EngagementService{db: db}
}

// ToggleLike flips the actor's like on a menfess and returns the new state.
// The delete-then-insert runs in one transaction against a unique
// (menfess_id, user_id) index, so racing toggles never leave two rows.
func (s *EngagementService) ToggleLike(ctx context.Context, actor *Actor, menfessID uint) (*LikeResult, error) {
	if err := RequireActive(actor); err != nil {
		return nil, err
	}
	if _, err := loadVisible(ctx, s.db, actor, menfessID); err != nil {
		return nil, err
	}

	res := &LikeResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("menfess_id = ? AND user_id = ?", menfessID, actor.ID).Delete(&models.Like{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			like := models.Like{MenfessID: menfessID, UserID: actor.ID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
			res.Liked = true
		}
		return tx.Model(&models.Like{}).Where("menfess_id = ?", menfessID).Count(&res.TotalLikes).Error
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AddComment attaches a comment. Commenting on a pending menfess is allowed
// only for its author and staff.
func (s *EngagementService) AddComment(ctx context.Context, author *Actor, menfessID uint, text string) (*CommentView, error) {
	if err := RequireActive(author); err != nil {
		return nil, err
	}
	var m models.Menfess
	if err := s.db.WithContext(ctx).First(&m, menfessID).Error; err != nil {
		return nil, notFoundOr(err, "menfess")
	}
	if !m.Approved {
		if err := Authorize(author, ActionViewUnapproved, Resource{OwnerID: m.UserID}); err != nil {
			return nil, err
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, newError(KindEmptyContent, "comment cannot be empty")
	}

	c := models.Comment{MenfessID: m.ID, UserID: author.ID, Content: text}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, author.ID).Error; err != nil {
		return nil, err
	}
	return &CommentView{ID: c.ID, MenfessID: c.MenfessID, Content: c.Content, CreatedAt: c.CreatedAt, Author: summarize(u)}, nil
}

// DeleteComment removes a comment. Its author and staff may do this.
func (s *EngagementService) DeleteComment(ctx context.Context, actor *Actor, commentID uint) (*models.Comment, error) {
	if err := RequireActive(actor); err != nil {
		return nil, err
	}
	var c models.Comment
	if err := s.db.WithContext(ctx).First(&c, commentID).Error; err != nil {
		return nil, notFoundOr(err, "comment")
	}
	if err := Authorize(actor, ActionDeleteComment, Resource{OwnerID: c.UserID}); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(&c).Error; err != nil {
		return nil, err
	}
	if actor.ID != c.UserID {
		utils.ModerationActions.WithLabelValues("delete_comment").Inc()
	}
	return &c, nil
}

// ListComments returns the comments on a visible menfess, oldest first.
func (s *EngagementService) ListComments(ctx context.Context, viewer *Actor, menfessID uint) ([]CommentView, error) {
	if _, err := loadVisible(ctx, s.db, viewer, menfessID); err != nil {
		return nil, err
	}
	var comments []models.Comment
	if err := s.db.WithContext(ctx).Where("menfess_id = ?", menfessID).
		Order("created_at ASC, id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		userIDs = append(userIDs, c.UserID)
	}
	authors, err := s.usersByID(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		out = append(out, CommentView{
			ID:        c.ID,
			MenfessID: c.MenfessID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			Author:    authors[c.UserID],
		})
	}
	return out, nil
}

func (s *EngagementService) usersByID(ctx context.Context, ids []uint) (map[uint]UserSummary, error) {
	out := map[uint]UserSummary{}
	ids = utils.Unique(ids)
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = summarize(u)
	}
	return out, nil
}

// FileReport records a report. The same user may report the same menfess
// more than once.
func (s *EngagementService) FileReport(ctx context.Context, reporter *Actor, menfessID uint, reason string) (*models.Report, error) {
	if err := RequireActive(reporter); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}
	if _, err := loadVisible(ctx, s.db, reporter, menfessID); err != nil {
		return nil, err
	}
	r := &models.Report{Reason: reason, MenfessID: menfessID, ReporterID: reporter.ID}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// ListReports is the staff report queue, newest first.
func (s *EngagementService) ListReports(ctx context.Context, actor *Actor, q PageQuery) (*ReportPage, error) {
	if err := Authorize(actor, ActionListReports, Resource{}); err != nil {
		return nil, err
	}
	q = q.normalize()

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Report{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var reports []models.Report
	if err := s.db.WithContext(ctx).Preload("Menfess").Preload("Reporter").
		Order("created_at DESC, id DESC").
		Offset(q.offset()).Limit(q.PageSize).
		Find(&reports).Error; err != nil {
		return nil, err
	}

	items := make([]ReportView, 0, len(reports))
	for _, r := range reports {
		v := ReportView{ID: r.ID, Reason: r.Reason, CreatedAt: r.CreatedAt, MenfessID: r.MenfessID}
		if r.Menfess != nil {
			v.Menfess = &MenfessBody{Content: r.Menfess.Content, Rendered: RenderMarkup(r.Menfess.Content), Approved: r.Menfess.Approved}
		}
		if r.Reporter != nil {
			sum := summarize(*r.Reporter)
			v.Reporter = &sum
		}
		items = append(items, v)
	}
	return &ReportPage{Items: items, Pagination: newPagination(q, total)}, nil
}
