package service

import (
	"context"
	"fmt"

	"chirp/internal/database"
	"chirp/internal/models"
	"chirp/internal/notifications"
	"chirp/internal/observability"
	"chirp/internal/repository"
	"chirp/internal/validation"
)

// Listing bounds for GET /posts.
const (
	DefaultPostLimit = 10
	MaxPostLimit     = 100
)

type PostService struct {
	posts  repository.PostRepository
	tx     Transactor
	events EventPublisher
}

type ListPostsInput struct {
	Limit  int
	Skip   int
	Search string
}

// PostInput is the full post payload used by both create and update.
// A nil Published means true.
type PostInput struct {
	Title     string
	Content   string
	Published *bool
}

func NewPostService(posts repository.PostRepository, tx Transactor, events EventPublisher) *PostService {
	return &PostService{
		posts:  posts,
		tx:     tx,
		events: events,
	}
}

func (in PostInput) validate() error {
	if err := validation.ValidatePostContent(in.Title, in.Content); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

func (in PostInput) published() bool {
	return in.Published == nil || *in.Published
}

func postEvent(post *models.Post) notifications.PostEventPayload {
	return notifications.PostEventPayload{
		PostID:    post.ID,
		OwnerID:   post.OwnerID,
		Title:     post.Title,
		Published: post.Published,
	}
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]models.PostWithVotes, error) {
	if in.Limit <= 0 {
		in.Limit = DefaultPostLimit
	}
	if in.Limit > MaxPostLimit {
		in.Limit = MaxPostLimit
	}
	if in.Skip < 0 {
		in.Skip = 0
	}

	posts, err := s.posts.List(ctx, repository.ListPostsParams{
		Limit:  in.Limit,
		Skip:   in.Skip,
		Search: in.Search,
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.PostWithVotes, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.WithVotes())
	}
	return out, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.PostWithVotes, error) {
	post, err := s.posts.GetWithVotes(ctx, id)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundError(fmt.Sprintf("Post with id: %d was not found", id))
		}
		return nil, err
	}
	out := post.WithVotes()
	return &out, nil
}

func (s *PostService) CreatePost(ctx context.Context, user *models.User, in PostInput) (*models.Post, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:     in.Title,
		Content:   in.Content,
		Published: in.published(),
		OwnerID:   user.ID,
	}
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.posts.Create(ctx, post); err != nil {
			return err
		}
		s.afterCommit(ctx, "created", notifications.EventPostCreated, post)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost replaces title, content and published on a post owned by user.
func (s *PostService) UpdatePost(ctx context.Context, user *models.User, id uint, in PostInput) (*models.Post, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var updated *models.Post
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		post, err := s.posts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := AssertOwner(user, post); err != nil {
			return err
		}

		post.Title = in.Title
		post.Content = in.Content
		post.Published = in.published()
		if err := s.posts.Update(ctx, post); err != nil {
			return err
		}

		updated = post
		s.afterCommit(ctx, "updated", notifications.EventPostUpdated, post)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostService) DeletePost(ctx context.Context, user *models.User, id uint) error {
	return s.tx.InTransaction(ctx, func(ctx context.Context) error {
		post, err := s.posts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := AssertOwner(user, post); err != nil {
			return err
		}
		if err := s.posts.Delete(ctx, id); err != nil {
			return err
		}
		s.afterCommit(ctx, "deleted", notifications.EventPostDeleted, post)
		return nil
	})
}

func (s *PostService) afterCommit(ctx context.Context, operation, eventType string, post *models.Post) {
	payload := postEvent(post)
	database.AfterCommit(ctx, func(context.Context) {
		observability.PostsTotal.WithLabelValues(operation).Inc()
	})
	publishAfterCommit(ctx, s.events, notifications.ChannelPosts, eventType, payload)
}
