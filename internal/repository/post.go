package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chirp/internal/database"
	"chirp/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListPostsParams filters and pages GET /posts.
type ListPostsParams struct {
	Limit  int
	Skip   int
	Search string
}

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetWithVotes(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, params ListPostsParams) ([]models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func postNotFound(id uint) error {
	return models.NewNotFoundError(fmt.Sprintf("Post with id: %d does not exist", id))
}

// Create inserts the post and loads its owner for the response.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	db := database.Conn(ctx, r.db)
	if err := db.Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewInternalError(fmt.Errorf("create post: %w", err))
	}
	if err := db.Take(&post.Owner, post.OwnerID).Error; err != nil {
		return models.NewInternalError(fmt.Errorf("load post owner: %w", err))
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := database.Conn(ctx, r.db).Preload("Owner").Take(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, postNotFound(id)
		}
		return nil, models.NewInternalError(fmt.Errorf("get post %d: %w", id, err))
	}
	return &post, nil
}

// withVoteCounts selects posts with their vote tally in vote_count.
func (r *postRepository) withVoteCounts(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db).
		Model(&models.Post{}).
		Select("posts.*, COUNT(votes.post_id) AS vote_count").
		Joins("LEFT JOIN votes ON votes.post_id = posts.id").
		Group("posts.id").
		Preload("Owner")
}

func (r *postRepository) GetWithVotes(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.withVoteCounts(ctx).Where("posts.id = ?", id).Take(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, postNotFound(id)
		}
		return nil, models.NewInternalError(fmt.Errorf("get post %d with votes: %w", id, err))
	}
	return &post, nil
}

// List returns newest posts first; Search matches a literal substring of the title.
func (r *postRepository) List(ctx context.Context, params ListPostsParams) ([]models.Post, error) {
	q := r.withVoteCounts(ctx)
	if params.Search != "" {
		q = q.Where(`posts.title LIKE ? ESCAPE '\'`, "%"+escapeLike(params.Search)+"%")
	}

	var posts []models.Post
	err := q.Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(params.Limit).
		Offset(params.Skip).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("list posts: %w", err))
	}
	return posts, nil
}

// Update writes title, content and published, including zero values.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	result := database.Conn(ctx, r.db).
		Model(&models.Post{ID: post.ID}).
		Select("title", "content", "published").
		Updates(map[string]interface{}{
			"title":     post.Title,
			"content":   post.Content,
			"published": post.Published,
		})
	if result.Error != nil {
		return models.NewInternalError(fmt.Errorf("update post %d: %w", post.ID, result.Error))
	}
	if result.RowsAffected == 0 {
		return postNotFound(post.ID)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	result := database.Conn(ctx, r.db).Delete(&models.Post{}, id)
	if result.Error != nil {
		return models.NewInternalError(fmt.Errorf("delete post %d: %w", id, result.Error))
	}
	if result.RowsAffected == 0 {
		return postNotFound(id)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
