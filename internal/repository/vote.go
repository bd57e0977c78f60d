package repository

import (
	"context"
	"fmt"

	"chirp/internal/database"
	"chirp/internal/models"

	"gorm.io/gorm"
)

// VoteRepository defines persistence operations for votes.
type VoteRepository interface {
	Exists(ctx context.Context, userID, postID uint) (bool, error)
	Create(ctx context.Context, userID, postID uint) error
	Delete(ctx context.Context, userID, postID uint) error
	CountForPost(ctx context.Context, postID uint) (int64, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository returns a new VoteRepository implementation.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func duplicateVote(userID, postID uint) error {
	return models.NewConflictError(fmt.Sprintf("User %d has already voted on post %d", userID, postID))
}

func (r *voteRepository) Exists(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&models.Vote{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(fmt.Errorf("check vote: %w", err))
	}
	return count > 0, nil
}

// Create inserts the vote row. A concurrent duplicate that slips past the
// existence check fails on the composite key and maps to the same conflict.
func (r *voteRepository) Create(ctx context.Context, userID, postID uint) error {
	vote := models.Vote{UserID: userID, PostID: postID}
	if err := database.Conn(ctx, r.db).Omit("User", "Post").Create(&vote).Error; err != nil {
		if isUniqueConstraintError(err) {
			return duplicateVote(userID, postID)
		}
		return models.NewInternalError(fmt.Errorf("create vote: %w", err))
	}
	return nil
}

func (r *voteRepository) Delete(ctx context.Context, userID, postID uint) error {
	result := database.Conn(ctx, r.db).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Vote{})
	if result.Error != nil {
		return models.NewInternalError(fmt.Errorf("delete vote: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Vote does not exist")
	}
	return nil
}

func (r *voteRepository) CountForPost(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&models.Vote{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(fmt.Errorf("count votes: %w", err))
	}
	return count, nil
}
