package seed

import (
	"fmt"
	"log/slog"

	"agora/internal/middleware"
	"agora/internal/models"

	"gorm.io/gorm"
)

// Options controls how much demo data Run creates.
type Options struct {
	NumUsers                int
	NumDiscussions          int
	CommentsPerDiscussion   int
	NumGroups               int
	MessagesPerConversation int
	ShouldClean             bool
	// SkipBcrypt stores the demo password unhashed; those accounts cannot log in.
	SkipBcrypt bool
	RandSeed   int64
}

// DefaultOptions is a small but lively community.
func DefaultOptions() Options {
	return Options{
		NumUsers:                20,
		NumDiscussions:          30,
		CommentsPerDiscussion:   4,
		NumGroups:               3,
		MessagesPerConversation: 8,
		ShouldClean:             true,
		RandSeed:                42,
	}
}

// Summary counts what Run created.
type Summary struct {
	Users         int
	Discussions   int
	Comments      int
	Conversations int
	Messages      int
}

// Run populates db with demo data.
func Run(db *gorm.DB, opts Options) (*Summary, error) {
	if opts.NumUsers < 2 {
		return nil, fmt.Errorf("at least 2 users are required, got %d", opts.NumUsers)
	}
	if opts.ShouldClean {
		if err := ClearAll(db); err != nil {
			return nil, err
		}
	}

	f, err := NewFactory(db, opts.RandSeed, opts.SkipBcrypt)
	if err != nil {
		return nil, err
	}
	sum := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser(func(u *models.User) { u.IsAdmin = i == 0 })
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	pick := func() *models.User { return users[f.faker.Number(0, len(users)-1)] }

	for i := 0; i < opts.NumDiscussions; i++ {
		d, err := f.CreateDiscussion(pick())
		if err != nil {
			return nil, err
		}
		sum.Discussions++

		var thread []*models.Comment
		for j := 0; j < opts.CommentsPerDiscussion; j++ {
			var parent *models.Comment
			if len(thread) > 0 && f.faker.Bool() {
				parent = thread[f.faker.Number(0, len(thread)-1)]
			}
			c, err := f.CreateComment(d, pick(), parent)
			if err != nil {
				return nil, err
			}
			thread = append(thread, c)
			sum.Comments++
		}
		if len(thread) > 0 && i%3 == 0 {
			solution := thread[f.faker.Number(0, len(thread)-1)]
			if err := db.Model(solution).Update("is_solution", true).Error; err != nil {
				return nil, fmt.Errorf("mark solution: %w", err)
			}
		}
	}

	// Every user gets a direct conversation with the next one.
	var convs []*models.Conversation
	for i := range users {
		other := users[(i+1)%len(users)]
		if len(users) == 2 && i == 1 {
			break
		}
		conv, err := f.CreateDirect(users[i], other)
		if err != nil {
			return nil, err
		}
		conv.Members = []models.ConversationMember{{UserID: users[i].ID}, {UserID: other.ID}}
		convs = append(convs, conv)
	}
	for i := 0; i < opts.NumGroups && len(users) >= 3; i++ {
		members := []*models.User{pick()}
		for len(members) < 3 {
			candidate := pick()
			if !containsUser(members, candidate) {
				members = append(members, candidate)
			}
		}
		conv, err := f.CreateGroup(members)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			conv.Members = append(conv.Members, models.ConversationMember{UserID: m.ID})
		}
		convs = append(convs, conv)
	}
	sum.Conversations = len(convs)

	byID := make(map[uint]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, conv := range convs {
		ids := conv.MemberIDs()
		for j := 0; j < opts.MessagesPerConversation; j++ {
			author := byID[ids[f.faker.Number(0, len(ids)-1)]]
			if _, err := f.CreateMessage(conv, author); err != nil {
				return nil, err
			}
			sum.Messages++
		}
	}

	middleware.Logger.Info("seed complete",
		slog.Int("users", sum.Users),
		slog.Int("discussions", sum.Discussions),
		slog.Int("comments", sum.Comments),
		slog.Int("conversations", sum.Conversations),
		slog.Int("messages", sum.Messages),
	)
	return sum, nil
}

func containsUser(users []*models.User, u *models.User) bool {
	for _, x := range users {
		if x.ID == u.ID {
			return true
		}
	}
	return false
}

// ClearAll deletes every row of every table, children first.
func ClearAll(db *gorm.DB) error {
	tables := []any{
		&models.Message{},
		&models.ConversationMember{},
		&models.Conversation{},
		&models.Comment{},
		&models.Discussion{},
		&models.User{},
	}
	for _, t := range tables {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(t).Error; err != nil {
			return fmt.Errorf("clear %T: %w", t, err)
		}
	}
	return nil
}
