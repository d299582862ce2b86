package announcer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/config"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

const batchSize = 100

type Store interface {
	ListPendingAnnouncements(ctx context.Context, limit int) ([]*models.User, error)
	AddAnnouncement(ctx context.Context, a *models.Announcement) error
}

// Announcer posts a congratulation to the team chat for every level change
// that has not been announced yet.
type Announcer struct {
	config  *config.Config
	storage Store
	bot     telebot.API
}

func New(cfg *config.Config, storage Store, bot telebot.API) *Announcer {
	return &Announcer{
		config:  cfg,
		storage: storage,
		bot:     bot,
	}
}

func (a *Announcer) Run(ctx context.Context) {
	interval := a.config.AnnounceInterval
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	logger := logrus.WithField("component", "announcer")

	for {
		select {
		case <-t.C:
			sent, err := a.AnnouncePending(ctx)
			if err != nil {
				logger.Errorf("failed to announce: %v", err)
				continue
			}
			if sent == 0 {
				logger.Debug("nothing to announce")
			}
		case <-ctx.Done():
			return
		}
	}
}

// AnnouncePending sends one message per pending user and returns how many were sent.
// A user whose message failed or was not recorded stays pending until the next call.
func (a *Announcer) AnnouncePending(ctx context.Context) (int, error) {
	logger := logrus.WithField("component", "announcer")

	users, err := a.storage.ListPendingAnnouncements(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("getting pending users: %w", err)
	}
	if len(users) == 0 {
		return 0, nil
	}

	logger.Infof("fetched %d users to congratulate", len(users))

	chat := &telebot.Chat{ID: a.config.AnnounceChatID}
	sent := 0
	for _, user := range users {
		msg, err := a.bot.Send(chat, congratulation(user), telebot.ModeMarkdownV2)
		if err != nil {
			logger.Errorf("failed to congratulate user %s: %v", user.ID, err)
			continue
		}

		sent++

		announcement := &models.Announcement{
			ChatID:    chat.ID,
			MessageID: strconv.Itoa(msg.ID),
			UserID:    user.ID,
			Level:     user.Level,
		}
		// Unrecorded messages are sent again on the next run.
		if err := a.storage.AddAnnouncement(ctx, announcement); err != nil {
			logger.Errorf("failed to record %v: %v", announcement, err)
			continue
		}

		logger.Infof("congratulated user %s: %v", user.ID, announcement)
	}

	return sent, nil
}

func congratulation(user *models.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Email
	}
	return fmt.Sprintf(
		`Congratulations, *%s*\! You have reached the *%s* level\.`,
		escapeMarkdown(name),
		escapeMarkdown(string(user.Level)),
	)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`~`, `\~`,
	"`", "\\`",
	`>`, `\>`,
	`#`, `\#`,
	`+`, `\+`,
	`-`, `\-`,
	`=`, `\=`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`.`, `\.`,
	`!`, `\!`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
