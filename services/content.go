package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/utils"
)

// DisplayNameKind is how a submission names its author.
type DisplayNameKind string

const (
	DisplayAnonymous DisplayNameKind = "anonymous"
	DisplayUsername  DisplayNameKind = "username"
	DisplayCustom    DisplayNameKind = "custom"
)

// DisplayName is the author's choice of attribution.
type DisplayName struct {
	Kind   DisplayNameKind
	Custom string
}

// ParseDisplayName reads the form values "display_name_type" and
// "custom_name". Unknown kinds mean anonymous.
func ParseDisplayName(kind, custom string) DisplayName {
	switch DisplayNameKind(strings.ToLower(strings.TrimSpace(kind))) {
	case DisplayUsername:
		return DisplayName{Kind: DisplayUsername}
	case DisplayCustom:
		return DisplayName{Kind: DisplayCustom, Custom: custom}
	default:
		return DisplayName{Kind: DisplayAnonymous}
	}
}

func (d DisplayName) resolve(author *Actor) *string {
	switch d.Kind {
	case DisplayUsername:
		name := author.Username
		return &name
	case DisplayCustom:
		name := strings.TrimSpace(d.Custom)
		if name == "" {
			return nil
		}
		return &name
	}
	return nil
}

// SubmitInput carries a new submission. VoiceRef is a reference already
// returned by MediaStore.Store, or empty.
type SubmitInput struct {
	Text        string
	CategoryID  *uint
	VoiceRef    string
	DisplayName DisplayName
}

// ListQuery selects a page of menfesses, optionally within one category.
type ListQuery struct {
	PageQuery
	CategoryID *uint
}

// MenfessView is a menfess decorated for one viewer.
type MenfessView struct {
	models.Menfess
	Rendered     string `json:"rendered"`
	VoiceNoteURL string `json:"voice_note_url,omitempty"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	UserLiked    bool   `json:"user_liked"`
	IsOwner      bool   `json:"is_owner"`
}

// MenfessPage is one page of decorated menfesses.
type MenfessPage struct {
	Items      []MenfessView `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// ContentService runs the submission, moderation and deletion lifecycle.
type ContentService struct {
	db    *gorm.DB
	media BlobReleaser
}

// NewContentService wires the lifecycle to db and the blob store.
func NewContentService(db *gorm.DB, media BlobReleaser) *ContentService {
	return &ContentService{db: db, media: media}
}

// Submit records a new menfess. Posts by staff are approved immediately;
// everything else waits in the moderation queue.
func (s *ContentService) Submit(ctx context.Context, author *Actor, in SubmitInput) (*models.Menfess, error) {
	if err := RequireActive(author); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyContent
	}
	if in.CategoryID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", *in.CategoryID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, newError(KindNotFound, "category not found")
		}
	}

	m := &models.Menfess{
		Content:     text,
		Approved:    author.IsStaff(),
		UserID:      author.ID,
		CategoryID:  in.CategoryID,
		DisplayName: in.DisplayName.resolve(author),
	}
	if in.VoiceRef != "" {
		ref := in.VoiceRef
		m.VoiceNote = &ref
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	utils.Submissions.Inc()
	return m, nil
}

// Approve publishes a pending menfess. Approving twice is a no-op.
func (s *ContentService) Approve(ctx context.Context, actor *Actor, id uint) (*models.Menfess, error) {
	if err := authorizeActive(actor, ActionApprove, Resource{}); err != nil {
		return nil, err
	}
	var m models.Menfess
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFoundOr(err, "menfess")
	}
	if m.Approved {
		return &m, nil
	}
	if err := s.db.WithContext(ctx).Model(&m).Update("approved", true).Error; err != nil {
		return nil, err
	}
	utils.ModerationActions.WithLabelValues("approve").Inc()
	return &m, nil
}

// Reject discards a menfess from the moderation queue. Only staff may reject.
func (s *ContentService) Reject(ctx context.Context, actor *Actor, id uint) (*models.Menfess, error) {
	if err := authorizeActive(actor, ActionReject, Resource{}); err != nil {
		return nil, err
	}
	return s.remove(ctx, actor, id, "reject")
}

// RejectOrDelete removes a menfess and everything attached to it. The author
// and staff may do this; the voice note is released after the rows are gone.
func (s *ContentService) RejectOrDelete(ctx context.Context, actor *Actor, id uint) (*models.Menfess, error) {
	if err := RequireActive(actor); err != nil {
		return nil, err
	}
	return s.remove(ctx, actor, id, "delete")
}

func (s *ContentService) remove(ctx context.Context, actor *Actor, id uint, action string) (*models.Menfess, error) {
	var m models.Menfess
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return notFoundOr(err, "menfess")
		}
		if err := Authorize(actor, ActionDeleteContent, Resource{OwnerID: m.UserID}); err != nil {
			if !m.Approved {
				return newError(KindNotFound, "menfess not found")
			}
			return err
		}
		return deleteMenfessRows(tx, m.ID)
	})
	if err != nil {
		return nil, err
	}
	utils.ModerationActions.WithLabelValues(action).Inc()

	if m.VoiceNote != nil && s.media != nil {
		if err := s.media.Release(ctx, MediaVoiceNote, *m.VoiceNote); err != nil {
			utils.Sugar.Warnw("release voice note failed", "menfess_id", m.ID, "ref", *m.VoiceNote, "err", err)
		}
	}
	return &m, nil
}

// deleteMenfessRows removes a menfess and its dependants inside tx.
func deleteMenfessRows(tx *gorm.DB, id uint) error {
	for _, dep := range []interface{}{&models.Like{}, &models.Comment{}, &models.Report{}} {
		if err := tx.Where("menfess_id = ?", id).Delete(dep).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&models.Menfess{}, id).Error
}

// View returns a menfess if the viewer may see it. Unapproved posts are
// reported as missing to everyone except their author and staff.
func (s *ContentService) View(ctx context.Context, viewer *Actor, id uint) (*models.Menfess, error) {
	return loadVisible(ctx, s.db, viewer, id)
}

func loadVisible(ctx context.Context, db *gorm.DB, viewer *Actor, id uint) (*models.Menfess, error) {
	var m models.Menfess
	if err := db.WithContext(ctx).Preload("Category").First(&m, id).Error; err != nil {
		return nil, notFoundOr(err, "menfess")
	}
	if !m.Approved && Authorize(viewer, ActionViewUnapproved, Resource{OwnerID: m.UserID}) != nil {
		return nil, newError(KindNotFound, "menfess not found")
	}
	return &m, nil
}

// ListApproved is the public feed, newest first.
func (s *ContentService) ListApproved(ctx context.Context, viewer *Actor, q ListQuery) (*MenfessPage, error) {
	return s.list(ctx, viewer, q, "approved = ?", true)
}

// ListMine lists everything the author submitted, approved or not.
func (s *ContentService) ListMine(ctx context.Context, author *Actor, q ListQuery) (*MenfessPage, error) {
	if author == nil {
		return nil, ErrUnauthenticated
	}
	return s.list(ctx, author, q, "user_id = ?", author.ID)
}

// ListPending is the moderation queue.
func (s *ContentService) ListPending(ctx context.Context, actor *Actor, q ListQuery) (*MenfessPage, error) {
	if err := Authorize(actor, ActionListPending, Resource{}); err != nil {
		return nil, err
	}
	return s.list(ctx, actor, q, "approved = ?", false)
}

func (s *ContentService) list(ctx context.Context, viewer *Actor, q ListQuery, cond string, args ...interface{}) (*MenfessPage, error) {
	q.PageQuery = q.PageQuery.normalize()
	query := s.db.WithContext(ctx).Model(&models.Menfess{}).Where(cond, args...)
	if q.CategoryID != nil {
		query = query.Where("category_id = ?", *q.CategoryID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var rows []models.Menfess
	if err := query.Preload("Category").Order("created_at DESC, id DESC").
		Offset(q.offset()).Limit(q.PageSize).Find(&rows).Error; err != nil {
		return nil, err
	}
	items, err := s.Decorate(ctx, viewer, rows)
	if err != nil {
		return nil, err
	}
	return &MenfessPage{Items: items, Pagination: newPagination(q.PageQuery, total)}, nil
}

type countRow struct {
	MenfessID uint
	N         int64
}

// Decorate attaches counts, the viewer's like state and rendered markup.
func (s *ContentService) Decorate(ctx context.Context, viewer *Actor, rows []models.Menfess) ([]MenfessView, error) {
	views := make([]MenfessView, 0, len(rows))
	if len(rows) == 0 {
		return views, nil
	}
	ids := make([]uint, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.ID)
	}

	likes, err := s.countBy(ctx, &models.Like{}, ids)
	if err != nil {
		return nil, err
	}
	comments, err := s.countBy(ctx, &models.Comment{}, ids)
	if err != nil {
		return nil, err
	}
	liked := map[uint]bool{}
	if viewer != nil {
		var likedIDs []uint
		if err := s.db.WithContext(ctx).Model(&models.Like{}).
			Where("user_id = ? AND menfess_id IN ?", viewer.ID, ids).
			Pluck("menfess_id", &likedIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range likedIDs {
			liked[id] = true
		}
	}

	for _, m := range rows {
		v := MenfessView{
			Menfess:      m,
			Rendered:     RenderMarkup(m.Content),
			LikeCount:    likes[m.ID],
			CommentCount: comments[m.ID],
			UserLiked:    liked[m.ID],
			IsOwner:      viewer != nil && viewer.ID == m.UserID,
		}
		if m.VoiceNote != nil {
			v.VoiceNoteURL = MediaURL(MediaVoiceNote, *m.VoiceNote)
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *ContentService) countBy(ctx context.Context, model interface{}, ids []uint) (map[uint]int64, error) {
	var rows []countRow
	if err := s.db.WithContext(ctx).Model(model).
		Select("menfess_id, COUNT(*) AS n").
		Where("menfess_id IN ?", ids).
		Group("menfess_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.MenfessID] = r.N
	}
	return out, nil
}
