// Package seed loads demo users, posts and votes into the database. It is
// intended for development and testing only.
package seed

import (
	"errors"
	"fmt"
	"os"

	"chirp/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
)

// DefaultPassword is given to plan users that do not set one.
const DefaultPassword = "password_1"

// Plan describes the rows to create. Posts reference users by email and votes
// reference posts by title, so titles must be unique within a plan.
type Plan struct {
	Users []PlanUser `yaml:"users"`
	Posts []PlanPost `yaml:"posts"`
	Votes []PlanVote `yaml:"votes"`
}

type PlanUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type PlanPost struct {
	Owner     string `yaml:"owner"`
	Title     string `yaml:"title"`
	Content   string `yaml:"content"`
	Published *bool  `yaml:"published"`
}

// IsPublished defaults to true when the plan leaves it out.
func (p PlanPost) IsPublished() bool {
	return p.Published == nil || *p.Published
}

type PlanVote struct {
	User string `yaml:"user"`
	Post string `yaml:"post"`
}

// LoadPlan reads and validates a YAML plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes and validates a YAML plan.
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse seed plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Validate checks payloads and cross references.
func (p *Plan) Validate() error {
	var errs []error

	users := make(map[string]struct{}, len(p.Users))
	for i, u := range p.Users {
		if err := validation.ValidateEmail(u.Email); err != nil {
			errs = append(errs, fmt.Errorf("users[%d]: %w", i, err))
			continue
		}
		if _, dup := users[u.Email]; dup {
			errs = append(errs, fmt.Errorf("users[%d]: duplicate email %s", i, u.Email))
		}
		users[u.Email] = struct{}{}
		if u.Password != "" {
			if err := validation.ValidatePassword(u.Password); err != nil {
				errs = append(errs, fmt.Errorf("users[%d]: %w", i, err))
			}
		}
	}

	posts := make(map[string]struct{}, len(p.Posts))
	for i, post := range p.Posts {
		if _, ok := users[post.Owner]; !ok {
			errs = append(errs, fmt.Errorf("posts[%d]: unknown owner %q", i, post.Owner))
		}
		if err := validation.ValidatePostContent(post.Title, post.Content); err != nil {
			errs = append(errs, fmt.Errorf("posts[%d]: %w", i, err))
		}
		if _, dup := posts[post.Title]; dup {
			errs = append(errs, fmt.Errorf("posts[%d]: duplicate title %q", i, post.Title))
		}
		posts[post.Title] = struct{}{}
	}

	votes := make(map[PlanVote]struct{}, len(p.Votes))
	for i, v := range p.Votes {
		if _, ok := users[v.User]; !ok {
			errs = append(errs, fmt.Errorf("votes[%d]: unknown user %q", i, v.User))
		}
		if _, ok := posts[v.Post]; !ok {
			errs = append(errs, fmt.Errorf("votes[%d]: unknown post %q", i, v.Post))
		}
		if _, dup := votes[v]; dup {
			errs = append(errs, fmt.Errorf("votes[%d]: duplicate vote", i))
		}
		votes[v] = struct{}{}
	}

	return errors.Join(errs...)
}

// RandomPlan generates numUsers users and numPosts posts with gofakeit. Each
// user votes on roughly a third of the posts. The same seed yields the same plan.
func RandomPlan(seed int64, numUsers, numPosts int) *Plan {
	faker := gofakeit.New(seed)
	plan := &Plan{}
	if numUsers <= 0 {
		return plan
	}

	emails := make(map[string]struct{}, numUsers)
	for len(plan.Users) < numUsers {
		email := faker.Email()
		if _, dup := emails[email]; dup {
			continue
		}
		emails[email] = struct{}{}
		plan.Users = append(plan.Users, PlanUser{Email: email, Password: DefaultPassword})
	}

	for i := 0; i < numPosts; i++ {
		owner := plan.Users[faker.Number(0, numUsers-1)]
		published := faker.Number(0, 9) > 0
		plan.Posts = append(plan.Posts, PlanPost{
			Owner:     owner.Email,
			Title:     fmt.Sprintf("%s #%d", faker.Sentence(4), i+1),
			Content:   faker.Paragraph(1, 3, 8, "\n"),
			Published: &published,
		})
	}

	for _, u := range plan.Users {
		for _, post := range plan.Posts {
			if faker.Number(0, 2) == 0 {
				plan.Votes = append(plan.Votes, PlanVote{User: u.Email, Post: post.Title})
			}
		}
	}
	return plan
}
