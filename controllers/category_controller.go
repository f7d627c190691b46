package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/services"
	"github.com/menfessboard/menfess/utils"
)

const categoriesCacheKey = utils.CachePrefixCategories + "all"

// CategoryController lists and manages categories.
type CategoryController struct {
	categories *services.CategoryService
}

// NewCategoryController creates a new CategoryController instance.
func NewCategoryController(categories *services.CategoryService) *CategoryController {
	return &CategoryController{categories: categories}
}

type categoryRequest struct {
	Name        string `form:"name" json:"name"`
	Description string `form:"description" json:"description"`
}

// List returns every category.
func (c *CategoryController) List(ctx *gin.Context) {
	var cached []models.Category
	if utils.CacheGetJSON(categoriesCacheKey, &cached) {
		utils.Success(ctx, gin.H{"items": cached})
		return
	}
	cats, err := c.categories.ListCategories(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.CacheSetJSON(categoriesCacheKey, cats, 0)
	utils.Success(ctx, gin.H{"items": cats})
}

// Create adds a category.
func (c *CategoryController) Create(ctx *gin.Context) {
	var req categoryRequest
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, err)
		return
	}
	cat, err := c.categories.CreateCategory(ctx.Request.Context(), actor(ctx), req.Name, req.Description)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixCategories)
	utils.Created(ctx, gin.H{"category": cat})
}

// Update renames or redescribes a category.
func (c *CategoryController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, err)
		return
	}
	cat, err := c.categories.UpdateCategory(ctx.Request.Context(), actor(ctx), id, req.Name, req.Description)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixCategories)
	invalidateFeed()
	utils.Success(ctx, gin.H{"category": cat})
}

// Delete removes an unused category.
func (c *CategoryController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.categories.DeleteCategory(ctx.Request.Context(), actor(ctx), id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixCategories)
	utils.Success(ctx, gin.H{"message": "category deleted"})
}
