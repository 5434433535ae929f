// Package bot is the Telegram surface: it renders every view as a message
// with an inline keyboard and drives the navigation, quiz, profile and
// achievement components from callback queries.
package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/recoverybot/internal/achievements"
	"github.com/example/recoverybot/internal/config"
	"github.com/example/recoverybot/internal/content"
	"github.com/example/recoverybot/internal/navigation"
	"github.com/example/recoverybot/internal/profile"
	"github.com/example/recoverybot/internal/quiz"
	"github.com/example/recoverybot/internal/vault"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MenuButton represents a button in an inline menu. A button with a URL
// opens it directly instead of sending callback data.
type MenuButton struct {
	Text         string
	CallbackData string
	URL          string
}

// createKeyboard creates a keyboard from menu buttons.
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			if button.URL != "" {
				keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonURL(button.Text, button.URL))
				continue
			}
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// userSession is the per-user UI state: the navigation machine plus whatever
// flow (quiz, reset confirmation, import upload) is currently in progress.
// mu serializes all handling for the user: updates arrive on their own
// goroutines and the answer-feedback timer adds another writer, so every
// entry point takes the lock before touching the session.
type userSession struct {
	mu sync.Mutex

	chatID int64
	nav    *navigation.Machine

	quizID      string
	quizSession *quiz.Session

	lastCallback   string
	pendingReset   bool
	awaitingImport bool
}

// Bot wires the application components to the Telegram update loop.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      config.Config
	store    *profile.Store
	registry *content.Registry
	badges   *achievements.Engine
	vault    *vault.Client
	bridge   HostBridge

	adminUserIDs map[int64]bool

	mu       sync.Mutex
	sessions map[int64]*userSession
}

// New creates a bot over already-constructed components. The vault client
// may be nil when no account is configured; the dashboard then shows a stub.
func New(api *tgbotapi.BotAPI, cfg config.Config, store *profile.Store, registry *content.Registry, badges *achievements.Engine, vaultClient *vault.Client, bridge HostBridge) *Bot {
	if bridge == nil {
		bridge = NopBridge{}
	}
	b := &Bot{
		api:          api,
		cfg:          cfg,
		store:        store,
		registry:     registry,
		badges:       badges,
		vault:        vaultClient,
		bridge:       bridge,
		adminUserIDs: make(map[int64]bool),
		sessions:     make(map[int64]*userSession),
	}
	for _, idStr := range strings.Split(cfg.AdminUserIDs, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			log.Printf("bot: invalid admin user id %q, skipping", idStr)
			continue
		}
		b.adminUserIDs[id] = true
	}
	return b
}

// Start blocks on the Telegram update loop until the context is canceled.
func (b *Bot) Start(ctx context.Context) error {
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// SendStreakReminder implements scheduler.Notifier.
func (b *Bot) SendStreakReminder(userID int64, days int) error {
	text := fmt.Sprintf("🔥 Ваша серия %d %s под угрозой! Зайдите сегодня, чтобы её сохранить.",
		days, dayWord(days))
	msg := tgbotapi.NewMessage(userID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "Открыть приложение", CallbackData: "tab:home"}},
	})
	_, err := b.api.Send(msg)
	if err != nil {
		log.Printf("bot: failed to send streak reminder to user %d: %v", userID, err)
	}
	return err
}

func dayWord(n int) string {
	switch {
	case n%100 >= 11 && n%100 <= 14:
		return "дней"
	case n%10 == 1:
		return "день"
	case n%10 >= 2 && n%10 <= 4:
		return "дня"
	}
	return "дней"
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.adminUserIDs[userID]
}

// session returns the user's UI session, creating it on first contact. The
// navigation machine is built with the complete renderer table; a wiring
// mistake surfaces immediately at first use, not on some rarely-hit route.
func (b *Bot) session(userID, chatID int64) *userSession {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions[userID]; ok {
		s.chatID = chatID
		return s
	}

	s := &userSession{chatID: chatID}
	nav, err := navigation.NewMachine(b.renderers(userID, s), sessionListener{b: b, s: s})
	if err != nil {
		// Unreachable as long as renderers() covers navigation.Routes.
		log.Printf("bot: renderer table incomplete: %v", err)
		return s
	}
	s.nav = nav
	b.sessions[userID] = s
	return s
}

// sessionListener forwards navigation side effects to the host bridge.
type sessionListener struct {
	b *Bot
	s *userSession
}

func (l sessionListener) TransitionStarted(navigation.Route) {
	l.b.bridge.Haptic(l.s.lastCallback, HapticSelect, "")
	l.s.lastCallback = ""
}

func (l sessionListener) FragmentChanged(string) {
	// The /link command reads the fragment straight off the machine.
}

func (l sessionListener) TabPersisted(navigation.Tab) {}

// send delivers a message and logs delivery failures, matching the
// fire-and-forget persistence policy: UI errors never crash a handler.
func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("bot: failed to send message: %v", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

// ambient gathers the content totals badge predicates may read. Totals for
// modules that are not loaded yet count as zero, which can only delay an
// unlock, never revoke one.
func (b *Bot) ambient(ctx context.Context) achievements.Ambient {
	a := achievements.Ambient{TotalBadges: len(achievements.Catalog())}
	if quizzes, err := b.registry.QuizList(ctx); err == nil {
		a.TotalQuizzes = len(quizzes)
	}
	if terms, err := b.registry.GlossaryTerms(ctx); err == nil {
		a.TotalTerms = len(terms)
	}
	return a
}

// announceBadges notifies the user about fresh unlocks, in rule order.
func (b *Bot) announceBadges(chatID int64, unlocked []string) {
	if len(unlocked) == 0 {
		return
	}
	byID := make(map[string]int)
	for i, badge := range achievements.Catalog() {
		byID[badge.ID] = i
	}
	catalog := achievements.Catalog()
	for _, id := range unlocked {
		i, ok := byID[id]
		if !ok {
			continue
		}
		b.sendText(chatID, fmt.Sprintf("🎉 Новое достижение!\n\n%s %s\n%s",
			catalog[i].Icon, catalog[i].Name, catalog[i].Description))
	}
}

// answerDelay is how long correct/incorrect feedback stays on screen before
// the next question appears.
func (b *Bot) answerDelay() time.Duration {
	if b.cfg.AnswerDelay > 0 {
		return b.cfg.AnswerDelay
	}
	return 1500 * time.Millisecond
}
