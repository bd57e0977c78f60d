// Command main loads demo data into the Chirp database.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"chirp/internal/auth"
	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/seed"
)

func main() {
	planPath := flag.String("plan", "", "YAML seed plan; random data is generated when empty")
	numUsers := flag.Int("users", 10, "Number of users to generate without a plan")
	numPosts := flag.Int("posts", 50, "Number of posts to generate without a plan")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for generated data")
	shouldClean := flag.Bool("clean", false, "Delete existing users, posts and votes first")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var plan *seed.Plan
	if *planPath != "" {
		plan, err = seed.LoadPlan(*planPath)
		if err != nil {
			log.Fatalf("Failed to load seed plan: %v", err)
		}
		log.Printf("Seeding from %s", *planPath)
	} else {
		plan = seed.RandomPlan(*randSeed, *numUsers, *numPosts)
		log.Printf("Seeding %d users and %d posts (seed=%d)", *numUsers, *numPosts, *randSeed)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, auth.NewPasswordHasher(cfg.BcryptCost))

	if *shouldClean {
		if err := s.Clear(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	result, err := s.Apply(ctx, plan)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d posts and %d votes", result.Users, result.Posts, result.Votes)
	if *planPath == "" {
		log.Printf("All generated users have the password: %s", seed.DefaultPassword)
	}
}
