package seed

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"chirp/internal/auth"
	"chirp/internal/database"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/repository"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Result counts the rows a plan created.
type Result struct {
	Users int
	Posts int
	Votes int
}

// Seeder writes plans through the same repositories the API uses.
type Seeder struct {
	db          *gorm.DB
	hasher      *auth.PasswordHasher
	users       repository.UserRepository
	posts       repository.PostRepository
	votes       repository.VoteRepository
	concurrency int
	now         func() time.Time
}

func NewSeeder(db *gorm.DB, hasher *auth.PasswordHasher) *Seeder {
	return &Seeder{
		db:          db,
		hasher:      hasher,
		users:       repository.NewUserRepository(db),
		posts:       repository.NewPostRepository(db),
		votes:       repository.NewVoteRepository(db),
		concurrency: runtime.NumCPU(),
		now:         time.Now,
	}
}

// Apply creates everything in plan inside one transaction. Posts get
// increasing creation times in plan order, one minute apart.
func (s *Seeder) Apply(ctx context.Context, plan *Plan) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed plan: %w", err)
	}

	hashes, err := s.hashPasswords(ctx, plan.Users)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	err = database.InTransaction(ctx, s.db, func(ctx context.Context) error {
		users := make(map[string]*models.User, len(plan.Users))
		for i, u := range plan.Users {
			user := &models.User{Email: u.Email, Password: hashes[i]}
			if err := s.users.Create(ctx, user); err != nil {
				return fmt.Errorf("create user %s: %w", u.Email, err)
			}
			users[u.Email] = user
		}
		result.Users = len(users)

		start := s.now().Add(-time.Duration(len(plan.Posts)) * time.Minute)
		posts := make(map[string]*models.Post, len(plan.Posts))
		for i, p := range plan.Posts {
			post := &models.Post{
				Title:     p.Title,
				Content:   p.Content,
				Published: p.IsPublished(),
				OwnerID:   users[p.Owner].ID,
				CreatedAt: start.Add(time.Duration(i) * time.Minute),
			}
			if err := s.posts.Create(ctx, post); err != nil {
				return fmt.Errorf("create post %q: %w", p.Title, err)
			}
			posts[p.Title] = post
		}
		result.Posts = len(posts)

		for _, v := range plan.Votes {
			if err := s.votes.Create(ctx, users[v.User].ID, posts[v.Post].ID); err != nil {
				return fmt.Errorf("create vote %s on %q: %w", v.User, v.Post, err)
			}
		}
		result.Votes = len(plan.Votes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "seed plan applied",
		slog.Int("users", result.Users),
		slog.Int("posts", result.Posts),
		slog.Int("votes", result.Votes))
	return result, nil
}

// hashPasswords runs bcrypt for every user with at most s.concurrency workers.
func (s *Seeder) hashPasswords(ctx context.Context, users []PlanUser) ([]string, error) {
	hashes := make([]string, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, u := range users {
		password := u.Password
		if password == "" {
			password = DefaultPassword
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hash, err := s.hasher.Hash(password)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", u.Email, err)
			}
			hashes[i] = hash
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hashes, nil
}

// Clear deletes all votes, posts and users.
func (s *Seeder) Clear(ctx context.Context) error {
	return database.InTransaction(ctx, s.db, func(ctx context.Context) error {
		tx := database.Conn(ctx, s.db)
		for _, model := range []any{&models.Vote{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}
