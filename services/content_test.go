package services

import (
	"context"
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menfessboard/menfess/models"
)

func TestSubmitApprovalDependsOnRole(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, nil)
	ctx := context.Background()

	for role, approved := range map[string]bool{
		models.RoleUser:      false,
		models.RoleModerator: true,
		models.RoleAdmin:     true,
	} {
		u := createUser(t, db, role)
		m, err := svc.Submit(ctx, actorOf(u), SubmitInput{Text: gofakeit.Sentence(6)})
		require.NoError(t, err, role)
		assert.Equal(t, approved, m.Approved, role)
	}
}

func TestSubmitDisplayName(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, nil)
	ctx := context.Background()
	u := createUser(t, db, models.RoleUser)
	a := actorOf(u)

	m, err := svc.Submit(ctx, a, SubmitInput{Text: "x", DisplayName: ParseDisplayName("anonymous", "")})
	require.NoError(t, err)
	assert.Nil(t, m.DisplayName)

	m, err = svc.Submit(ctx, a, SubmitInput{Text: "x", DisplayName: ParseDisplayName("username", "")})
	require.NoError(t, err)
	require.NotNil(t, m.DisplayName)
	assert.Equal(t, u.Username, *m.DisplayName)

	m, err = svc.Submit(ctx, a, SubmitInput{Text: "x", DisplayName: ParseDisplayName("custom", "Secret Admirer")})
	require.NoError(t, err)
	require.NotNil(t, m.DisplayName)
	assert.Equal(t, "Secret Admirer", *m.DisplayName)

	m, err = svc.Submit(ctx, a, SubmitInput{Text: "x", DisplayName: ParseDisplayName("custom", "   ")})
	require.NoError(t, err)
	assert.Nil(t, m.DisplayName)
}

func TestSubmitRejections(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, nil)
	ctx := context.Background()
	u := createUser(t, db, models.RoleUser)

	_, err := svc.Submit(ctx, actorOf(u), SubmitInput{Text: "  \n\t "})
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = svc.Submit(ctx, nil, SubmitInput{Text: "hi"})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	missing := uint(999)
	_, err = svc.Submit(ctx, actorOf(u), SubmitInput{Text: "hi", CategoryID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)

	suspended := actorOf(u)
	suspended.Suspended = true
	_, err = svc.Submit(ctx, suspended, SubmitInput{Text: "hi"})
	assert.ErrorIs(t, err, ErrAccountSuspended)

	assert.Zero(t, countRows(t, db, &models.Menfess{}, "1 = 1"))
}

func TestSubmitStoresCategoryAndVoice(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, nil)
	ctx := context.Background()
	cat := models.Category{Name: "Story"}
	require.NoError(t, db.Create(&cat).Error)
	u := createUser(t, db, models.RoleAdmin)

	m, err := svc.Submit(ctx, actorOf(u), SubmitInput{Text: "once", CategoryID: &cat.ID, VoiceRef: "abc.ogg"})
	require.NoError(t, err)

	got, err := svc.View(ctx, nil, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Story", got.Category.Name)
	require.NotNil(t, got.VoiceNote)
	assert.Equal(t, "abc.ogg", *got.VoiceNote)

	views, err := svc.Decorate(ctx, nil, []models.Menfess{*got})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/voice_notes/abc.ogg", views[0].VoiceNoteURL)
}

func TestViewHidesPendingContent(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, nil)
	ctx := context.Background()
	author := createUser(t, db, models.RoleUser)
	stranger := createUser(t, db, models.RoleUser)
	mod := createUser(t, db, models.RoleModerator)
	m := submit(t, db, author, "pending")

	_, err := svc.View(ctx, nil, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.View(ctx, actorOf(stranger), m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.View(ctx, actorOf(author), m.ID)
	assert.NoError(t, err)
	_, err = svc.View(ctx, actorOf(mod), m.ID)
	assert.NoError(t, err)

	_, err = svc.Approve(ctx, actorOf(mod), m.ID)
	require.NoError(t, err)
	_, err = svc.View(ctx, nil, m.ID)
	assert.NoError(t, err)

	_, err = svc.View(ctx, nil, 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApprove(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, nil)
	ctx := context.Background()
	author := createUser(t, db, models.RoleUser)
	mod := createUser(t, db, models.RoleModerator)
	m := submit(t, db, author, "wait for me")

	_, err := svc.Approve(ctx, actorOf(author), m.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Approve(ctx, nil, m.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	got, err := svc.Approve(ctx, actorOf(mod), m.ID)
	require.NoError(t, err)
	assert.True(t, got.Approved)

	got, err = svc.Approve(ctx, actorOf(mod), m.ID)
	require.NoError(t, err)
	assert.True(t, got.Approved)

	_, err = svc.Approve(ctx, actorOf(mod), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectOrDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	media := &recordingReleaser{}
	svc := NewContentService(db, media)
	eng := NewEngagementService(db)
	ctx := context.Background()

	admin := createUser(t, db, models.RoleAdmin)
	fan := createUser(t, db, models.RoleUser)
	m, err := svc.Submit(ctx, actorOf(admin), SubmitInput{Text: "bye", VoiceRef: "v.mp3"})
	require.NoError(t, err)
	keep := submit(t, db, admin, "stays")

	_, err = eng.ToggleLike(ctx, actorOf(fan), m.ID)
	require.NoError(t, err)
	_, err = eng.ToggleLike(ctx, actorOf(fan), keep.ID)
	require.NoError(t, err)
	_, err = eng.AddComment(ctx, actorOf(fan), m.ID, "nice")
	require.NoError(t, err)
	_, err = eng.FileReport(ctx, actorOf(fan), m.ID, "spam")
	require.NoError(t, err)

	_, err = svc.RejectOrDelete(ctx, actorOf(fan), m.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	deleted, err := svc.RejectOrDelete(ctx, actorOf(admin), m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, deleted.ID)

	assert.Zero(t, countRows(t, db, &models.Menfess{}, "id = ?", m.ID))
	assert.Zero(t, countRows(t, db, &models.Like{}, "menfess_id = ?", m.ID))
	assert.Zero(t, countRows(t, db, &models.Comment{}, "menfess_id = ?", m.ID))
	assert.Zero(t, countRows(t, db, &models.Report{}, "menfess_id = ?", m.ID))
	assert.Equal(t, int64(1), countRows(t, db, &models.Like{}, "menfess_id = ?", keep.ID))
	assert.Equal(t, []string{"voice_notes/v.mp3"}, media.refs())

	_, err = svc.RejectOrDelete(ctx, actorOf(admin), m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSurvivesBlobFailure(t *testing.T) {
	db := newTestDB(t)
	media := &recordingReleaser{err: errors.New("disk on fire")}
	svc := NewContentService(db, media)
	ctx := context.Background()
	author := createUser(t, db, models.RoleUser)

	m, err := svc.Submit(ctx, actorOf(author), SubmitInput{Text: "x", VoiceRef: "v.webm"})
	require.NoError(t, err)
	_, err = svc.RejectOrDelete(ctx, actorOf(author), m.ID)
	require.NoError(t, err)
	assert.Zero(t, countRows(t, db, &models.Menfess{}, "id = ?", m.ID))
	assert.Len(t, media.refs(), 1)
}

func TestRejectIsStaffOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, nil)
	ctx := context.Background()
	author := createUser(t, db, models.RoleUser)
	mod := createUser(t, db, models.RoleModerator)
	m := submit(t, db, author, "mine")

	_, err := svc.Reject(ctx, actorOf(author), m.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Reject(ctx, actorOf(mod), m.ID)
	require.NoError(t, err)
	assert.Zero(t, countRows(t, db, &models.Menfess{}, "id = ?", m.ID))
}

func TestStrangerCannotProbePendingContent(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, nil)
	ctx := context.Background()
	author := createUser(t, db, models.RoleUser)
	stranger := createUser(t, db, models.RoleUser)
	m := submit(t, db, author, "pending")

	_, err := svc.RejectOrDelete(ctx, actorOf(stranger), m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(1), countRows(t, db, &models.Menfess{}, "id = ?", m.ID))
}

func TestListings(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, nil)
	eng := NewEngagementService(db)
	ctx := context.Background()

	cat := models.Category{Name: "Advice"}
	require.NoError(t, db.Create(&cat).Error)
	admin := createUser(t, db, models.RoleAdmin)
	user := createUser(t, db, models.RoleUser)

	first, err := svc.Submit(ctx, actorOf(admin), SubmitInput{Text: "#bold#first#bold#", CategoryID: &cat.ID})
	require.NoError(t, err)
	second := submit(t, db, admin, "second")
	pending := submit(t, db, user, "pending")

	_, err = eng.ToggleLike(ctx, actorOf(user), first.ID)
	require.NoError(t, err)
	_, err = eng.AddComment(ctx, actorOf(user), first.ID, "c1")
	require.NoError(t, err)
	_, err = eng.AddComment(ctx, actorOf(admin), first.ID, "c2")
	require.NoError(t, err)

	page, err := svc.ListApproved(ctx, actorOf(user), ListQuery{PageQuery: PageQuery{Page: 1, PageSize: 10}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Pagination.Total)
	assert.Equal(t, second.ID, page.Items[0].ID, "newest first")
	assert.Equal(t, first.ID, page.Items[1].ID)
	assert.Equal(t, int64(1), page.Items[1].LikeCount)
	assert.Equal(t, int64(2), page.Items[1].CommentCount)
	assert.True(t, page.Items[1].UserLiked)
	assert.False(t, page.Items[0].UserLiked)
	assert.Equal(t, "<strong>first</strong>", page.Items[1].Rendered)

	byCat, err := svc.ListApproved(ctx, nil, ListQuery{PageQuery: PageQuery{Page: 1, PageSize: 10}, CategoryID: &cat.ID})
	require.NoError(t, err)
	require.Len(t, byCat.Items, 1)
	assert.Equal(t, first.ID, byCat.Items[0].ID)

	paged, err := svc.ListApproved(ctx, nil, ListQuery{PageQuery: PageQuery{Page: 2, PageSize: 1}})
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, first.ID, paged.Items[0].ID)
	assert.Equal(t, 2, paged.Pagination.TotalPages)

	mine, err := svc.ListMine(ctx, actorOf(user), ListQuery{PageQuery: PageQuery{Page: 1, PageSize: 10}})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, pending.ID, mine.Items[0].ID)
	assert.True(t, mine.Items[0].IsOwner)

	_, err = svc.ListPending(ctx, actorOf(user), ListQuery{})
	assert.ErrorIs(t, err, ErrForbidden)
	queue, err := svc.ListPending(ctx, actorOf(admin), ListQuery{})
	require.NoError(t, err)
	require.Len(t, queue.Items, 1)
	assert.Equal(t, pending.ID, queue.Items[0].ID)
}

func TestModerationScenario(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, nil)
	eng := NewEngagementService(db)
	ctx := context.Background()

	alice := createUser(t, db, models.RoleUser)
	bob := createUser(t, db, models.RoleUser)
	mod := createUser(t, db, models.RoleModerator)

	m, err := svc.Submit(ctx, actorOf(alice), SubmitInput{Text: "#bold#hi#bold#", DisplayName: ParseDisplayName("username", "")})
	require.NoError(t, err)
	assert.False(t, m.Approved)
	assert.Equal(t, alice.Username, *m.DisplayName)

	_, err = svc.View(ctx, actorOf(bob), m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Approve(ctx, actorOf(mod), m.ID)
	require.NoError(t, err)

	got, err := svc.View(ctx, actorOf(bob), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "<strong>hi</strong>", RenderMarkup(got.Content))

	res, err := eng.ToggleLike(ctx, actorOf(bob), m.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Liked: true, TotalLikes: 1}, *res)
	res, err = eng.ToggleLike(ctx, actorOf(bob), m.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Liked: false, TotalLikes: 0}, *res)

	_, err = svc.RejectOrDelete(ctx, actorOf(bob), m.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.RejectOrDelete(ctx, actorOf(alice), m.ID)
	require.NoError(t, err)
	_, err = svc.View(ctx, actorOf(alice), m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
