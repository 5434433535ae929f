package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/example/recoverybot/internal/content"
	"github.com/example/recoverybot/internal/navigation"
	"github.com/example/recoverybot/internal/quiz"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleUpdate dispatches one Telegram update. Every message-side mutation
// of a given user's state happens through that user's session.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Document != nil:
		b.handleDocument(ctx, update.Message)
	case update.Message != nil:
		b.sendText(update.Message.Chat.ID, "Используйте /menu, чтобы открыть меню.")
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	s := b.session(userID, message.Chat.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch message.Command() {
	case "start":
		// The command payload is the deep-link fragment: /start glossary
		// reopens the glossary exactly like a fragment URL would.
		if payload := message.CommandArguments(); payload != "" {
			s.nav.Restore(ctx, strings.TrimSpace(payload))
			return
		}
		b.sendText(message.Chat.ID, "Добро пожаловать в MC Recovery Fund! 🎓\n\n"+
			"Здесь вы найдёте квизы, глоссарий и данные фонда.\n"+
			"Команды:\n/menu — главное меню\n/link — ссылка на текущий раздел\n/reset — сбросить прогресс")
		s.nav.SwitchTab(ctx, navigation.TabHome)
	case "menu":
		s.nav.SwitchTab(ctx, navigation.TabHome)
	case "link":
		link := fmt.Sprintf("https://t.me/%s?start=%s", b.api.Self.UserName, s.nav.Fragment())
		b.sendText(message.Chat.ID, "Ссылка на текущий раздел:\n"+link)
	case "reset":
		b.promptReset(s)
	case "import":
		if !b.isAdmin(userID) {
			b.sendText(message.Chat.ID, "Команда доступна только администраторам.")
			return
		}
		s.awaitingImport = true
		b.sendText(message.Chat.ID, "Отправьте файл глоссария (.xlsx или .csv) с колонками: id, термин, определение, ссылка на видео.")
	case "admin_stats":
		if !b.isAdmin(userID) {
			b.sendText(message.Chat.ID, "Команда доступна только администраторам.")
			return
		}
		b.handleAdminStats(ctx, message.Chat.ID)
	case "refresh":
		if !b.isAdmin(userID) {
			b.sendText(message.Chat.ID, "Команда доступна только администраторам.")
			return
		}
		for _, name := range content.ModuleNames {
			b.registry.Invalidate(name)
		}
		b.sendText(message.Chat.ID, "Кэш контента сброшен. Разделы будут загружены заново.")
	default:
		b.sendText(message.Chat.ID, "Неизвестная команда. Используйте /menu.")
	}
}

func (b *Bot) handleAdminStats(ctx context.Context, chatID int64) {
	var sb strings.Builder
	sb.WriteString("Статистика системы\n\n")

	loaded := 0
	for _, name := range content.ModuleNames {
		if b.registry.Loaded(name) {
			loaded++
		}
	}
	fmt.Fprintf(&sb, "Загружено модулей контента: %d из %d\n", loaded, len(content.ModuleNames))

	if ids, err := b.store.UserIDs(ctx); err == nil {
		fmt.Fprintf(&sb, "Пользователей: %d\n", len(ids))
	}
	fmt.Fprintf(&sb, "Время сервера: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	b.sendText(chatID, sb.String())
}

// handleCallbackQuery routes button presses. Unknown data is ignored rather
// than treated as an error, matching the unknown-route policy.
func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	userID := callback.From.ID
	s := b.session(userID, callback.Message.Chat.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCallback = callback.ID

	data := callback.Data
	switch {
	case strings.HasPrefix(data, "tab:"):
		s.nav.SwitchTab(ctx, navigation.Tab(strings.TrimPrefix(data, "tab:")))
	case strings.HasPrefix(data, "nav:"):
		s.nav.NavigateTo(ctx, navigation.Route(strings.TrimPrefix(data, "nav:")), nil)
	case data == "back":
		s.nav.GoBack(ctx)
	case strings.HasPrefix(data, "quiz:"):
		id := strings.TrimPrefix(data, "quiz:")
		s.nav.NavigateTo(ctx, navigation.RouteQuiz, navigation.Params{"id": id})
	case strings.HasPrefix(data, "quizstart:"):
		b.startQuiz(ctx, userID, s, strings.TrimPrefix(data, "quizstart:"))
	case strings.HasPrefix(data, "answer:"):
		b.handleAnswer(ctx, userID, s, strings.TrimPrefix(data, "answer:"))
	case data == "hint":
		b.handleHint(s)
	case data == "skip":
		b.handleSkip(ctx, userID, s)
	case strings.HasPrefix(data, "term:"):
		b.handleTerm(ctx, userID, s, strings.TrimPrefix(data, "term:"))
	case strings.HasPrefix(data, "open:"):
		b.handleOpenLink(ctx, s, strings.TrimPrefix(data, "open:"))
	case data == "reset":
		b.promptReset(s)
	case data == "reset:confirm":
		b.handleResetConfirm(ctx, userID, s)
	case data == "reset:cancel":
		s.pendingReset = false
		s.nav.NavigateTo(ctx, navigation.RouteProfile, nil)
	case data == "settings:theme":
		b.promptTheme(s)
	case strings.HasPrefix(data, "theme:"):
		b.handleThemeChange(ctx, userID, s, strings.TrimPrefix(data, "theme:"))
	default:
		log.Printf("bot: unknown callback data %q from user %d", data, userID)
		b.bridge.Haptic(callback.ID, HapticSelect, "")
	}
}

// startQuiz creates a fresh session for the quiz and enters the question
// flow. Starting over from the result view reuses the same path.
func (b *Bot) startQuiz(ctx context.Context, userID int64, s *userSession, quizID string) {
	q, err := b.registry.QuizByID(ctx, quizID)
	if err != nil {
		log.Printf("bot: failed to load quiz %q: %v", quizID, err)
		b.renderLoadError(s, "Квиз", navigation.RouteQuizzes)
		return
	}
	session, err := quiz.NewSession(q)
	if err != nil {
		log.Printf("bot: cannot start quiz %q for user %d: %v", quizID, userID, err)
		s.nav.NavigateTo(ctx, navigation.RouteQuizzes, nil)
		return
	}
	s.quizID = quizID
	s.quizSession = session
	s.nav.NavigateTo(ctx, navigation.RouteQuizQuestion, nil)
}

func (b *Bot) handleAnswer(ctx context.Context, userID int64, s *userSession, raw string) {
	sess := s.quizSession
	// Answer buttons outlive the session: taps on an old question message
	// after the quiz finished (or was abandoned) land here too.
	if sess == nil || sess.State() != quiz.InProgress {
		s.nav.NavigateTo(ctx, navigation.RouteQuizzes, nil)
		return
	}
	selected, err := strconv.Atoi(raw)
	if err != nil {
		selected = -1
	}

	correct, err := sess.SubmitAnswer(selected)
	if err != nil {
		// No selection (or a stale presentation): reject with an error pulse
		// and leave the question on screen.
		b.bridge.Haptic(s.lastCallback, HapticError, "Сначала выберите ответ")
		s.lastCallback = ""
		return
	}
	// Submit does not advance, so the answered question is still current.
	question := sess.Quiz().Questions[sess.QuestionIndex()]

	if correct {
		b.bridge.Haptic(s.lastCallback, HapticSuccess, "")
		b.sendText(s.chatID, "✅ Правильно!")
	} else {
		b.bridge.Haptic(s.lastCallback, HapticError, "")
		b.sendText(s.chatID, fmt.Sprintf("❌ Неверно. Правильный ответ: %s",
			question.Options[question.Correct]))
	}
	s.lastCallback = ""

	// Keep the feedback on screen for the fixed delay, then move on. The
	// timer re-checks under the session lock that this submit is still the
	// latest event: a skip or restart during the delay wins and the timer
	// becomes a no-op.
	answered := sess.QuestionIndex()
	time.AfterFunc(b.answerDelay(), func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.quizSession != sess || sess.State() != quiz.InProgress || sess.QuestionIndex() != answered {
			return
		}
		if sess.Advance() == quiz.Finished {
			b.finishQuiz(context.Background(), userID, s)
			return
		}
		s.nav.NavigateTo(context.Background(), navigation.RouteQuizQuestion, nil)
	})
}

func (b *Bot) handleHint(s *userSession) {
	if s.quizSession == nil || s.quizSession.State() != quiz.InProgress {
		return
	}
	hint := s.quizSession.Quiz().Questions[s.quizSession.QuestionIndex()].Hint
	if hint == "" {
		return
	}
	b.sendText(s.chatID, "💡 "+hint)
}

func (b *Bot) handleSkip(ctx context.Context, userID int64, s *userSession) {
	if s.quizSession == nil {
		s.nav.NavigateTo(ctx, navigation.RouteQuizzes, nil)
		return
	}
	if err := s.quizSession.Skip(); err != nil {
		// A skip tapped during the answer-feedback pause arrives after the
		// answer was recorded; the pending timer will advance, so drop it.
		if errors.Is(err, quiz.ErrNotPresented) {
			return
		}
		s.nav.NavigateTo(ctx, navigation.RouteQuizzes, nil)
		return
	}
	if s.quizSession.State() == quiz.Finished {
		b.finishQuiz(ctx, userID, s)
		return
	}
	s.nav.NavigateTo(ctx, navigation.RouteQuizQuestion, nil)
}

// finishQuiz folds the finished session into the profile, runs the badge
// table and shows the result view. Save happens after all mutations so the
// stored record reflects the whole completion atomically.
func (b *Bot) finishQuiz(ctx context.Context, userID int64, s *userSession) {
	sess := s.quizSession
	if sess == nil {
		return
	}
	percentage := sess.Percentage()

	p := b.store.Load(ctx, userID)
	quiz.ApplyResult(p, s.quizID, percentage)
	unlocked := b.badges.Evaluate(p, b.ambient(ctx))
	b.store.Save(ctx, p)

	s.nav.NavigateTo(ctx, navigation.RouteQuizResult, nil)
	b.announceBadges(s.chatID, unlocked)
}

// handleTerm shows one glossary term and records the view.
func (b *Bot) handleTerm(ctx context.Context, userID int64, s *userSession, termID string) {
	term, err := b.registry.TermByID(ctx, termID)
	if err != nil || term == nil {
		log.Printf("bot: failed to load term %q: %v", termID, err)
		b.renderLoadError(s, "Глоссарий", navigation.RouteGlossary)
		return
	}

	p := b.store.Load(ctx, userID)
	if p.MarkTermViewed(term.ID) {
		unlocked := b.badges.Evaluate(p, b.ambient(ctx))
		b.store.Save(ctx, p)
		defer b.announceBadges(s.chatID, unlocked)
	}

	msg := tgbotapi.NewMessage(s.chatID, fmt.Sprintf("*%s*\n\n%s", term.Term, term.Definition))
	msg.ParseMode = "Markdown"
	rows := [][]MenuButton{backRow()}
	if term.VideoURL != "" {
		rows = [][]MenuButton{
			{{Text: "🎬 Смотреть видео", CallbackData: "open:" + content.Glossary + ":" + term.ID}},
			backRow(),
		}
	}
	msg.ReplyMarkup = createKeyboard(rows)
	b.send(msg)
}

// handleOpenLink resolves "open:<module>:<id>" to the item's URL and hands
// it to the host bridge.
func (b *Bot) handleOpenLink(ctx context.Context, s *userSession, rest string) {
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return
	}
	module, id := parts[0], parts[1]

	if module == content.Glossary {
		term, err := b.registry.TermByID(ctx, id)
		if err == nil && term != nil && term.VideoURL != "" {
			b.bridge.OpenLink(s.chatID, term.Term, term.VideoURL)
		}
		return
	}

	items, err := b.moduleItems(ctx, module)
	if err != nil {
		return
	}
	for _, item := range items {
		if item.ID == id && item.URL != "" {
			b.bridge.OpenLink(s.chatID, firstNonEmpty(item.Title, "Материал"), item.URL)
			return
		}
	}
}

// promptReset asks for confirmation. The destructive step only happens on
// the explicit second tap.
func (b *Bot) promptReset(s *userSession) {
	s.pendingReset = true
	msg := tgbotapi.NewMessage(s.chatID,
		"⚠️ Сбросить весь прогресс?\n\nСерия, пройденные квизы и достижения будут удалены. Это действие нельзя отменить.")
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "Да, сбросить", CallbackData: "reset:confirm"}},
		{{Text: "Отмена", CallbackData: "reset:cancel"}},
	})
	b.send(msg)
}

func (b *Bot) handleResetConfirm(ctx context.Context, userID int64, s *userSession) {
	if !s.pendingReset {
		// A stale confirm button from before a restart: require a fresh prompt.
		b.promptReset(s)
		return
	}
	s.pendingReset = false
	s.quizSession = nil
	s.quizID = ""

	b.store.Reset(ctx, userID)
	b.sendText(s.chatID, "Прогресс сброшен. Начнём сначала! 🌱")
	s.nav.SwitchTab(ctx, navigation.TabHome)
}

func (b *Bot) promptTheme(s *userSession) {
	msg := tgbotapi.NewMessage(s.chatID, "Выберите тему оформления:")
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "Как в системе", CallbackData: "theme:auto"}},
		{{Text: "Светлая", CallbackData: "theme:light"}},
		{{Text: "Тёмная", CallbackData: "theme:dark"}},
	})
	b.send(msg)
}

func (b *Bot) handleThemeChange(ctx context.Context, userID int64, s *userSession, theme string) {
	switch theme {
	case "auto", "light", "dark":
	default:
		return
	}
	p := b.store.Load(ctx, userID)
	p.Settings.Theme = theme
	b.store.Save(ctx, p)
	s.nav.NavigateTo(ctx, navigation.RouteProfile, nil)
}

// handleDocument processes an admin glossary upload: download, import,
// write the module file and drop the cached copy so the next view reloads.
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	s := b.session(userID, message.Chat.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.awaitingImport || !b.isAdmin(userID) {
		b.sendText(message.Chat.ID, "Используйте /menu, чтобы открыть меню.")
		return
	}
	s.awaitingImport = false

	path, err := b.downloadDocument(ctx, message.Document)
	if err != nil {
		log.Printf("bot: failed to download import file: %v", err)
		b.sendText(message.Chat.ID, "❌ Не удалось скачать файл. Попробуйте ещё раз.")
		return
	}
	defer os.Remove(path)

	cfg := content.DefaultImportConfig()
	cfg.FilePath = path
	terms, result, err := content.ImportGlossary(cfg)
	if err != nil {
		log.Printf("bot: glossary import failed: %v", err)
		b.sendText(message.Chat.ID, fmt.Sprintf("❌ Ошибка импорта: %v", err))
		return
	}

	if err := content.WriteModule(b.cfg.ContentDir, content.Glossary, terms); err != nil {
		log.Printf("bot: failed to write glossary module: %v", err)
		b.sendText(message.Chat.ID, "❌ Не удалось сохранить глоссарий.")
		return
	}
	b.registry.Invalidate(content.Glossary)

	report := fmt.Sprintf("✅ Импорт завершён\n\nОбработано строк: %d\nИмпортировано терминов: %d",
		result.TotalProcessed, result.Imported)
	if len(result.Errors) > 0 {
		report += fmt.Sprintf("\nОшибок: %d", len(result.Errors))
		for i, e := range result.Errors {
			if i == 5 {
				report += "\n…"
				break
			}
			report += "\n• " + e
		}
	}
	b.sendText(message.Chat.ID, report)
}

func (b *Bot) downloadDocument(ctx context.Context, doc *tgbotapi.Document) (string, error) {
	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "import-*"+filepath.Ext(doc.FileName))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
