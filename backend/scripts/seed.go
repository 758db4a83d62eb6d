package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"

	"go.uber.org/zap"

	"socialblog/backend/internal/app"
	"socialblog/backend/internal/blog"
	"socialblog/backend/pkg/config"
	"socialblog/backend/pkg/logger"
)

var demoUsers = []blog.User{
	{Username: "maria_dev", Email: "maria@example.com", FirstName: "Maria", LastName: "Garcia", Profile: &blog.Profile{Bio: "Frontend developer"}},
	{Username: "carlos_tech", Email: "carlos@example.com", FirstName: "Carlos", LastName: "Lopez", Profile: &blog.Profile{Bio: "Backend and databases"}},
	{Username: "ana_design", Email: "ana@example.com", FirstName: "Ana", LastName: "Martinez", Profile: &blog.Profile{Bio: "Interfaces and UX"}},
	{Username: "luis_data", Email: "luis@example.com", FirstName: "Luis", LastName: "Rodriguez", Profile: &blog.Profile{Bio: "Data engineering"}},
	{Username: "sofia_code", Email: "sofia@example.com", FirstName: "Sofia", LastName: "Hernandez", Profile: &blog.Profile{Bio: "Learning in public"}},
}

var demoPosts = map[string][]string{
	"maria_dev": {
		"Learning #react today, loving it #javascript #frontend",
		"My first full-stack project with #go and #react #webdev",
		"Tips for #react beginners #frontend #webdev",
	},
	"carlos_tech": {
		"Optimizing #neo4j queries for better performance #database",
		"Why a #graphdb changes how we think about relationships #neo4j",
		"Connection pooling in #go services #backend",
	},
	"ana_design": {
		"Designing interfaces with #react and #tailwindcss #design",
		"UX tips for developers #design #webdev",
	},
	"luis_data": {
		"#neo4j for social network analysis #graphdb #datascience",
		"ETL pipelines that do not fall over #dataengineering",
		"Relational vs graph storage #database #neo4j",
	},
	"sofia_code": {
		"100 days of code with #go #100daysofcode",
		"Contributing to open source #opensource",
		"Clean code principles #cleancode #bestpractices",
	},
}

var demoComments = []string{
	"Great post!",
	"Very interesting, thanks for sharing",
	"Could you share more details?",
	"Exactly what I needed",
	"Learned something new today",
}

func main() {
	reset := flag.Bool("reset", false, "Drop every blog table and clear the graph first")
	skipConfirm := flag.Bool("y", false, "Skip confirmation prompt")
	seed := flag.Uint64("seed", 42, "Random seed for comments, likes and relationships")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development", ""); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting demo data seeding...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	if *reset {
		if !*skipConfirm {
			fmt.Print("This deletes every user, post and graph node. Continue? [y/N]: ")
			var response string
			fmt.Scanln(&response)
			if response != "y" && response != "Y" {
				log.Info("Aborted")
				os.Exit(0)
			}
		}
		if err := resetStores(ctx, cfg); err != nil {
			log.Fatal("Failed to reset stores", zap.Error(err))
		}
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close(context.Background())

	rng := rand.New(rand.NewPCG(*seed, *seed))
	if err := seedDemo(ctx, application, rng, log); err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}
	log.Info("Seeding completed")
}

// resetStores drops the blog tables and clears the graph, then lets app.New
// recreate both schemas
func resetStores(ctx context.Context, cfg *config.Config) error {
	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close(ctx)

	err = application.DB.Migrator().DropTable(
		"post_likes", &blog.PostTag{}, &blog.Tag{}, &blog.Comment{}, &blog.Post{}, &blog.Profile{}, &blog.User{},
	)
	if err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return application.Graph.Clear(ctx)
}

func seedDemo(ctx context.Context, a *app.App, rng *rand.Rand, log *zap.Logger) error {
	existing, err := a.Blog.Repository().ListUsers(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]int64, len(existing))
	for _, user := range existing {
		byName[user.Username] = user.ID
	}

	users := make([]*blog.User, 0, len(demoUsers))
	for _, demo := range demoUsers {
		user := demo
		profile := *demo.Profile
		user.Profile = &profile

		if id, ok := byName[user.Username]; ok {
			user.ID = id
			log.Info("User exists, updating", zap.String("username", user.Username))
		}
		saved, err := a.Blog.SaveUser(ctx, &user)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", user.Username, err)
		}
		users = append(users, saved)
	}

	var posts []*blog.Post
	for _, user := range users {
		for _, content := range demoPosts[user.Username] {
			post, err := a.Blog.CreatePost(ctx, user.ID, content)
			if err != nil {
				return err
			}
			posts = append(posts, post)
		}
	}
	log.Info("Posts created", zap.Int("count", len(posts)))

	for range len(posts) * 2 {
		post := posts[rng.IntN(len(posts))]
		user := users[rng.IntN(len(users))]
		if _, err := a.Blog.CreateComment(ctx, user.ID, post.ID, demoComments[rng.IntN(len(demoComments))]); err != nil {
			return err
		}
	}

	likes := 0
	for _, post := range posts {
		for _, user := range users {
			if user.ID == post.AuthorID || rng.Float64() > 0.4 {
				continue
			}
			if _, _, err := a.Blog.ToggleLike(ctx, user.ID, post.ID); err != nil {
				return err
			}
			likes++
		}
	}
	log.Info("Likes created", zap.Int("count", likes))

	follows, friendships := 0, 0
	for i, user := range users {
		for j, other := range users {
			if i == j {
				continue
			}
			if rng.Float64() < 0.5 {
				if _, err := a.Social.Follow(ctx, user.ID, other.ID); err != nil {
					return err
				}
				follows++
			}
			if j > i && rng.Float64() < 0.3 {
				if _, err := a.Social.AddFriend(ctx, user.ID, other.ID); err != nil {
					return err
				}
				friendships++
			}
		}
	}
	log.Info("Relationships created", zap.Int("follows", follows), zap.Int("friendships", friendships))
	return nil
}
