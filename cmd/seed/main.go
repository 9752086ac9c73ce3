// Command seed fills the configured database with demo data.
package main

import (
	"flag"
	"log/slog"
	"os"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/middleware"
	"agora/internal/seed"
)

func main() {
	def := seed.DefaultOptions()
	numUsers := flag.Int("users", def.NumUsers, "Number of users to create")
	numDiscussions := flag.Int("discussions", def.NumDiscussions, "Number of discussions to create")
	numComments := flag.Int("comments", def.CommentsPerDiscussion, "Comments per discussion")
	numGroups := flag.Int("groups", def.NumGroups, "Number of group conversations to create")
	numMessages := flag.Int("messages", def.MessagesPerConversation, "Messages per conversation")
	shouldClean := flag.Bool("clean", def.ShouldClean, "Clean database before seeding")
	randSeed := flag.Int64("seed", def.RandSeed, "Random seed for generated content")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	middleware.InitLogger(cfg.Env)

	db, err := database.Connect(cfg)
	if err != nil {
		middleware.Logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	_, err = seed.Run(db, seed.Options{
		NumUsers:                *numUsers,
		NumDiscussions:          *numDiscussions,
		CommentsPerDiscussion:   *numComments,
		NumGroups:               *numGroups,
		MessagesPerConversation: *numMessages,
		ShouldClean:             *shouldClean,
		RandSeed:                *randSeed,
	})
	if err != nil {
		middleware.Logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	middleware.Logger.Info("demo accounts use password " + seed.DemoPassword)
}
