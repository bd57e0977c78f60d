package service

import (
	"context"
	"fmt"

	"chirp/internal/database"
	"chirp/internal/models"
	"chirp/internal/notifications"
	"chirp/internal/observability"
	"chirp/internal/repository"
)

// Messages returned by POST /vote.
const (
	MessageVoteAdded   = "Successfully added vote"
	MessageVoteDeleted = "Successfully deleted vote"
)

// VoteService applies the per-(user, post) vote toggle.
type VoteService struct {
	posts  repository.PostRepository
	votes  repository.VoteRepository
	tx     Transactor
	events EventPublisher
}

type VoteInput struct {
	PostID uint
	Dir    models.VoteDirection
}

func NewVoteService(posts repository.PostRepository, votes repository.VoteRepository, tx Transactor, events EventPublisher) *VoteService {
	return &VoteService{
		posts:  posts,
		votes:  votes,
		tx:     tx,
		events: events,
	}
}

// Apply adds (VoteUp) or removes (VoteDown) user's vote on the post and
// returns the response message.
//
// UP on an existing vote is a conflict; DOWN without one is not found. The
// composite key on votes backs the existence check under concurrent UPs.
func (s *VoteService) Apply(ctx context.Context, user *models.User, in VoteInput) (message string, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "VoteService", "Apply")
	defer func() {
		observability.EndSpan(span, err)
		if err != nil {
			observability.RecordVote(in.Dir.String(), voteResult(err))
		}
	}()

	if !in.Dir.Valid() {
		return "", models.NewValidationError("dir must be 0 or 1")
	}
	if in.PostID == 0 {
		return "", models.NewValidationError("post_id must be a positive integer")
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.posts.GetByID(ctx, in.PostID); err != nil {
			return err
		}

		if in.Dir == models.VoteUp {
			return s.addVote(ctx, user.ID, in.PostID)
		}
		return s.removeVote(ctx, user.ID, in.PostID)
	})
	if err != nil {
		return "", err
	}

	if in.Dir == models.VoteUp {
		return MessageVoteAdded, nil
	}
	return MessageVoteDeleted, nil
}

func (s *VoteService) addVote(ctx context.Context, userID, postID uint) error {
	exists, err := s.votes.Exists(ctx, userID, postID)
	if err != nil {
		return err
	}
	if exists {
		return duplicateVoteError(userID, postID)
	}
	if err := s.votes.Create(ctx, userID, postID); err != nil {
		return err
	}
	s.afterCommit(ctx, models.VoteUp, notifications.EventVoteAdded, userID, postID)
	return nil
}

func (s *VoteService) removeVote(ctx context.Context, userID, postID uint) error {
	if err := s.votes.Delete(ctx, userID, postID); err != nil {
		return err
	}
	s.afterCommit(ctx, models.VoteDown, notifications.EventVoteRemoved, userID, postID)
	return nil
}

func (s *VoteService) afterCommit(ctx context.Context, dir models.VoteDirection, eventType string, userID, postID uint) {
	result := "added"
	if dir == models.VoteDown {
		result = "removed"
	}
	database.AfterCommit(ctx, func(context.Context) {
		observability.RecordVote(dir.String(), result)
	})
	publishAfterCommit(ctx, s.events, notifications.ChannelVotes, eventType, notifications.VoteEventPayload{
		PostID: postID,
		UserID: userID,
		Dir:    int(dir),
	})
}

func duplicateVoteError(userID, postID uint) error {
	return models.NewConflictError(fmt.Sprintf("User %d has already voted on post %d", userID, postID))
}

func voteResult(err error) string {
	switch {
	case models.IsCode(err, models.CodeConflict):
		return "conflict"
	case models.IsCode(err, models.CodeNotFound):
		return "not_found"
	case models.IsCode(err, models.CodeValidation):
		return "invalid"
	default:
		return "error"
	}
}
