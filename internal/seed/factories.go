// Package seed creates demo data for development databases and tests.
package seed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"agora/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "Password123"

var nonNameChars = regexp.MustCompile(`[^a-z0-9]`)

// Factory builds domain entities with fake content and persists them.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	hash  string
	seq   int
	clock time.Time
}

// NewFactory returns a Factory. The same seed always produces the same content.
func NewFactory(db *gorm.DB, seed int64, skipBcrypt bool) (*Factory, error) {
	hash := DemoPassword
	if !skipBcrypt {
		b, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash demo password: %w", err)
		}
		hash = string(b)
	}
	return &Factory{
		db:    db,
		faker: gofakeit.New(seed),
		hash:  hash,
		clock: time.Now().UTC().Add(-60 * 24 * time.Hour),
	}, nil
}

// tick advances the factory clock so seeded rows have strictly increasing timestamps.
func (f *Factory) tick() time.Time {
	f.clock = f.clock.Add(time.Duration(f.faker.Number(1, 20)) * time.Minute)
	return f.clock
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

// CreateUser persists a user with a unique, valid name.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	f.seq++
	base := nonNameChars.ReplaceAllString(strings.ToLower(f.faker.FirstName()), "")
	if base == "" {
		base = "user"
	}
	name := fmt.Sprintf("%s_%d", base, f.seq)

	user := &models.User{
		Name:     name,
		Email:    name + "@agora.local",
		Password: f.hash,
	}
	for _, o := range overrides {
		o(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Name, err)
	}
	return user, nil
}

// CreateDiscussion persists a discussion in a random category.
func (f *Factory) CreateDiscussion(author *models.User) (*models.Discussion, error) {
	at := f.tick()
	d := &models.Discussion{
		Title:     strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), "."),
		Content:   f.faker.Paragraph(1, 3, 12, "\n\n"),
		Category:  f.faker.RandomString(models.Categories),
		UserID:    author.ID,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := f.db.Omit("User", "Comments").Create(d).Error; err != nil {
		return nil, fmt.Errorf("create discussion: %w", err)
	}
	return d, nil
}

// CreateComment persists a comment, optionally as a reply to parent.
func (f *Factory) CreateComment(d *models.Discussion, author *models.User, parent *models.Comment) (*models.Comment, error) {
	at := f.tick()
	c := &models.Comment{
		DiscussionID: d.ID,
		UserID:       author.ID,
		Content:      f.faker.Sentence(f.faker.Number(6, 20)),
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	if err := f.db.Omit("User").Create(c).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}

// CreateDirect persists the direct conversation between a and b.
func (f *Factory) CreateDirect(a, b *models.User) (*models.Conversation, error) {
	key := models.DirectKeyFor(a.ID, b.ID)
	at := f.tick()
	conv := &models.Conversation{CreatedBy: a.ID, DirectKey: &key, CreatedAt: at, UpdatedAt: at}
	return conv, f.createConversation(conv, []*models.User{a, b}, at)
}

// CreateGroup persists a group conversation owned by members[0].
func (f *Factory) CreateGroup(members []*models.User) (*models.Conversation, error) {
	at := f.tick()
	conv := &models.Conversation{
		Name:      capitalize(f.faker.HipsterWord()) + " " + f.faker.RandomString([]string{"Club", "Crew", "Circle", "Guild"}),
		IsGroup:   true,
		CreatedBy: members[0].ID,
		CreatedAt: at,
		UpdatedAt: at,
	}
	return conv, f.createConversation(conv, members, at)
}

func (f *Factory) createConversation(conv *models.Conversation, members []*models.User, at time.Time) error {
	return f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members").Create(conv).Error; err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		rows := make([]models.ConversationMember, 0, len(members))
		for i, m := range members {
			rows = append(rows, models.ConversationMember{
				ConversationID: conv.ID,
				UserID:         m.ID,
				IsAdmin:        conv.IsGroup && i == 0,
				JoinedAt:       at,
			})
		}
		return tx.Omit("User").Create(&rows).Error
	})
}

// CreateMessage appends a message from author and bumps the conversation's activity time.
func (f *Factory) CreateMessage(conv *models.Conversation, author *models.User) (*models.Message, error) {
	at := f.tick()
	msg := &models.Message{
		ConversationID: conv.ID,
		UserID:         author.ID,
		Content:        f.faker.Sentence(f.faker.Number(2, 14)),
		Type:           models.MessageTypeText,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	if err := f.db.Omit("User").Create(msg).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := f.db.Model(conv).UpdateColumn("updated_at", at).Error; err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	return msg, nil
}
