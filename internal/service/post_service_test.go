package service

import (
	"context"
	"errors"
	"testing"

	"chirp/internal/models"
	"chirp/internal/notifications"
	"chirp/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestAssertOwner(t *testing.T) {
	owner := &models.User{ID: 1}
	other := &models.User{ID: 2}
	post := &models.Post{ID: 10, OwnerID: 1}

	assert.NoError(t, AssertOwner(owner, post))

	err := AssertOwner(other, post)
	assertAppError(t, err, models.CodeForbidden)
	assert.Equal(t, "Not authorized to perform requested action", err.Error())

	assertAppError(t, AssertOwner(nil, post), models.CodeForbidden)
}

func TestPostService_CreatePost(t *testing.T) {
	user := &models.User{ID: 3}

	tests := []struct {
		name          string
		in            PostInput
		wantPublished bool
	}{
		{"published defaults to true", PostInput{Title: "T", Content: "C"}, true},
		{"explicit false is kept", PostInput{Title: "T", Content: "C", Published: boolPtr(false)}, false},
		{"explicit true", PostInput{Title: "T", Content: "C", Published: boolPtr(true)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopPostRepo()
			var created *models.Post
			repo.createFn = func(_ context.Context, p *models.Post) error {
				p.ID = 42
				created = p
				return nil
			}
			events := &eventRecorder{}
			svc := NewPostService(repo, passthroughTx{}, events)

			post, err := svc.CreatePost(context.Background(), user, tt.in)
			require.NoError(t, err)
			require.NotNil(t, created)
			assert.Equal(t, tt.wantPublished, post.Published)
			assert.Equal(t, user.ID, post.OwnerID)

			got := events.Events()
			require.Len(t, got, 1)
			assert.Equal(t, notifications.ChannelPosts, got[0].Channel)
			assert.Equal(t, notifications.EventPostCreated, got[0].Type)
			assert.Equal(t, notifications.PostEventPayload{
				PostID: 42, OwnerID: 3, Title: "T", Published: tt.wantPublished,
			}, got[0].Payload)
		})
	}
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	repo := noopPostRepo()
	repo.createFn = func(context.Context, *models.Post) error {
		t.Fatal("Create must not be called for invalid input")
		return nil
	}
	svc := NewPostService(repo, passthroughTx{}, nil)

	for _, in := range []PostInput{
		{Content: "C"},
		{Title: "   ", Content: "C"},
		{Title: "T"},
	} {
		_, err := svc.CreatePost(context.Background(), &models.User{ID: 1}, in)
		assertAppError(t, err, models.CodeValidation)
	}
}

func TestPostService_CreatePost_PublishFailureIsIgnored(t *testing.T) {
	events := &eventRecorder{err: errors.New("redis down")}
	svc := NewPostService(noopPostRepo(), passthroughTx{}, events)

	_, err := svc.CreatePost(context.Background(), &models.User{ID: 1}, PostInput{Title: "T", Content: "C"})
	assert.NoError(t, err)
	assert.Len(t, events.Events(), 1)
}

func TestPostService_GetPost(t *testing.T) {
	repo := noopPostRepo()
	repo.getWithVotesFn = func(_ context.Context, id uint) (*models.Post, error) {
		if id == 1 {
			return &models.Post{ID: 1, Title: "T", VoteCount: 3}, nil
		}
		return nil, models.NewNotFoundError("Post with id: 2 does not exist")
	}
	svc := NewPostService(repo, passthroughTx{}, nil)

	got, err := svc.GetPost(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Votes)
	assert.Equal(t, "T", got.Post.Title)

	_, err = svc.GetPost(context.Background(), 2)
	assertAppError(t, err, models.CodeNotFound)
	assert.Equal(t, "Post with id: 2 was not found", err.Error())
}

func TestPostService_ListPosts_Bounds(t *testing.T) {
	tests := []struct {
		name string
		in   ListPostsInput
		want repository.ListPostsParams
	}{
		{"defaults", ListPostsInput{}, repository.ListPostsParams{Limit: DefaultPostLimit}},
		{"clamps limit", ListPostsInput{Limit: 1000}, repository.ListPostsParams{Limit: MaxPostLimit}},
		{"negative skip", ListPostsInput{Limit: 5, Skip: -3}, repository.ListPostsParams{Limit: 5}},
		{"passes search", ListPostsInput{Limit: 2, Skip: 4, Search: "go"}, repository.ListPostsParams{Limit: 2, Skip: 4, Search: "go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopPostRepo()
			var got repository.ListPostsParams
			repo.listFn = func(_ context.Context, p repository.ListPostsParams) ([]models.Post, error) {
				got = p
				return []models.Post{{ID: 1, VoteCount: 2}}, nil
			}
			svc := NewPostService(repo, passthroughTx{}, nil)

			posts, err := svc.ListPosts(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.Len(t, posts, 1)
			assert.Equal(t, int64(2), posts[0].Votes)
		})
	}
}

func TestPostService_UpdatePost(t *testing.T) {
	owner := &models.User{ID: 1}
	other := &models.User{ID: 2}

	newRepo := func() (*postRepoStub, *int) {
		repo := noopPostRepo()
		calls := 0
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			if id != 10 {
				return nil, models.NewNotFoundError("Post with id: 11 does not exist")
			}
			return &models.Post{ID: 10, Title: "old", Content: "old", Published: true, OwnerID: owner.ID}, nil
		}
		repo.updateFn = func(context.Context, *models.Post) error {
			calls++
			return nil
		}
		return repo, &calls
	}

	t.Run("owner replaces every field", func(t *testing.T) {
		repo, calls := newRepo()
		events := &eventRecorder{}
		svc := NewPostService(repo, passthroughTx{}, events)

		post, err := svc.UpdatePost(context.Background(), owner, 10, PostInput{Title: "new", Content: "body", Published: boolPtr(false)})
		require.NoError(t, err)
		assert.Equal(t, "new", post.Title)
		assert.Equal(t, "body", post.Content)
		assert.False(t, post.Published)
		assert.Equal(t, 1, *calls)
		require.Len(t, events.Events(), 1)
		assert.Equal(t, notifications.EventPostUpdated, events.Events()[0].Type)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		repo, calls := newRepo()
		events := &eventRecorder{}
		svc := NewPostService(repo, passthroughTx{}, events)

		_, err := svc.UpdatePost(context.Background(), other, 10, PostInput{Title: "new", Content: "body"})
		assertAppError(t, err, models.CodeForbidden)
		assert.Zero(t, *calls)
		assert.Empty(t, events.Events())
	})

	t.Run("missing post", func(t *testing.T) {
		repo, _ := newRepo()
		svc := NewPostService(repo, passthroughTx{}, nil)

		_, err := svc.UpdatePost(context.Background(), owner, 11, PostInput{Title: "new", Content: "body"})
		assertAppError(t, err, models.CodeNotFound)
	})

	t.Run("invalid payload", func(t *testing.T) {
		repo, _ := newRepo()
		svc := NewPostService(repo, passthroughTx{}, nil)

		_, err := svc.UpdatePost(context.Background(), owner, 10, PostInput{Title: "new"})
		assertAppError(t, err, models.CodeValidation)
	})
}

func TestPostService_DeletePost(t *testing.T) {
	owner := &models.User{ID: 1}
	other := &models.User{ID: 2}

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, OwnerID: owner.ID}, nil
	}
	var deleted []uint
	repo.deleteFn = func(_ context.Context, id uint) error {
		deleted = append(deleted, id)
		return nil
	}
	events := &eventRecorder{}
	svc := NewPostService(repo, passthroughTx{}, events)

	err := svc.DeletePost(context.Background(), other, 10)
	assertAppError(t, err, models.CodeForbidden)
	assert.Empty(t, deleted)
	assert.Empty(t, events.Events())

	require.NoError(t, svc.DeletePost(context.Background(), owner, 10))
	assert.Equal(t, []uint{10}, deleted)
	require.Len(t, events.Events(), 1)
	assert.Equal(t, notifications.EventPostDeleted, events.Events()[0].Type)
}
