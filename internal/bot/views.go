package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/example/recoverybot/internal/achievements"
	"github.com/example/recoverybot/internal/content"
	"github.com/example/recoverybot/internal/navigation"
	"github.com/example/recoverybot/internal/quiz"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// contentItem is the shape shared by the informational modules (FAQ,
// documents, announcements and the rest). Unknown fields are ignored.
type contentItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

var tabTitles = map[navigation.Tab]string{
	navigation.TabHome:     "🏠 Главная",
	navigation.TabLearn:    "📖 Обучение",
	navigation.TabData:     "📊 Данные",
	navigation.TabProgress: "🏆 Прогресс",
	navigation.TabMore:     "⋯ Ещё",
}

// renderers builds the complete route table for one user's session. Every
// route in navigation.Routes must appear here.
func (b *Bot) renderers(userID int64, s *userSession) map[navigation.Route]navigation.RenderFunc {
	return map[navigation.Route]navigation.RenderFunc{
		navigation.RouteHome:     func(ctx context.Context, _ navigation.Params) { b.renderHome(ctx, userID, s) },
		navigation.RouteLearn:    func(ctx context.Context, _ navigation.Params) { b.renderLearn(ctx, s) },
		navigation.RouteData:     func(ctx context.Context, _ navigation.Params) { b.renderData(ctx, s) },
		navigation.RouteProgress: func(ctx context.Context, _ navigation.Params) { b.renderProgress(ctx, userID, s) },
		navigation.RouteMore:     func(ctx context.Context, _ navigation.Params) { b.renderMore(ctx, s) },

		navigation.RouteQuizzes: func(ctx context.Context, _ navigation.Params) { b.renderQuizzes(ctx, userID, s) },
		navigation.RouteQuiz: func(ctx context.Context, params navigation.Params) {
			b.renderQuizIntro(ctx, userID, s, params["id"])
		},
		navigation.RouteQuizQuestion: func(ctx context.Context, _ navigation.Params) { b.renderQuizQuestion(ctx, s) },
		navigation.RouteQuizResult:   func(ctx context.Context, _ navigation.Params) { b.renderQuizResult(ctx, s) },
		navigation.RouteGlossary:     func(ctx context.Context, _ navigation.Params) { b.renderGlossary(ctx, userID, s) },
		navigation.RouteEdu: func(ctx context.Context, _ navigation.Params) {
			b.renderItemList(ctx, s, content.Edu, "Инфографика и видео", navigation.RouteEdu)
		},
		navigation.RouteAchievements: func(ctx context.Context, _ navigation.Params) { b.renderAchievements(ctx, userID, s) },
		navigation.RouteDocuments: func(ctx context.Context, _ navigation.Params) {
			b.renderItemList(ctx, s, content.Documents, "Документы фонда", navigation.RouteDocuments)
		},
		navigation.RouteLiterature: func(ctx context.Context, _ navigation.Params) {
			b.renderItemList(ctx, s, content.Literature, "Литература", navigation.RouteLiterature)
		},
		navigation.RouteDashboard: func(ctx context.Context, _ navigation.Params) { b.renderDashboard(ctx, s) },
		navigation.RouteFAQ: func(ctx context.Context, _ navigation.Params) {
			b.renderItemList(ctx, s, content.FAQ, "Частые вопросы", navigation.RouteFAQ)
		},
		navigation.RouteSupport: func(ctx context.Context, _ navigation.Params) {
			b.renderItemList(ctx, s, content.Support, "Помощь и безопасность", navigation.RouteSupport)
		},
		navigation.RouteInstructions: func(ctx context.Context, _ navigation.Params) {
			b.renderItemList(ctx, s, content.Instructions, "Инструкции", navigation.RouteInstructions)
		},
		navigation.RouteAnnouncements: func(ctx context.Context, _ navigation.Params) {
			b.renderItemList(ctx, s, content.Announcements, "Объявления", navigation.RouteAnnouncements)
		},
		navigation.RouteBroadcasts: func(ctx context.Context, _ navigation.Params) {
			b.renderItemList(ctx, s, content.Broadcasts, "Эфиры", navigation.RouteBroadcasts)
		},
		navigation.RouteProfile: func(ctx context.Context, _ navigation.Params) { b.renderProfileView(ctx, userID, s) },
	}
}

// tabBar is the persistent bottom row: one button per tab, the active one
// marked.
func tabBar(active navigation.Tab) []MenuButton {
	var row []MenuButton
	for _, tab := range navigation.Tabs {
		label := tabTitles[tab]
		if tab == active {
			label = "•" + strings.TrimLeft(label, " ")
		}
		row = append(row, MenuButton{Text: label, CallbackData: "tab:" + string(tab)})
	}
	return row
}

func backRow() []MenuButton {
	return []MenuButton{{Text: "« Назад", CallbackData: "back"}}
}

func (b *Bot) sendView(s *userSession, text string, rows [][]MenuButton) {
	rows = append(rows, tabBar(s.nav.ActiveTab()))
	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = createKeyboard(rows)
	b.send(msg)
}

func (b *Bot) renderHome(ctx context.Context, userID int64, s *userSession) {
	p := b.store.Load(ctx, userID)

	var text strings.Builder
	text.WriteString("*MC Recovery Fund*\nОбразовательная платформа\n\n")
	if p.Streak > 0 {
		text.WriteString(fmt.Sprintf("🔥 Серия: *%d %s*\nПродолжайте в том же духе!\n\n", p.Streak, dayWord(p.Streak)))
	}
	text.WriteString(fmt.Sprintf("Квизов пройдено: %d\nБейджей: %d из %d",
		p.QuizzesCompleted(), len(p.UnlockedBadgeIDs), len(achievements.Catalog())))

	rows := [][]MenuButton{
		{{Text: "🎯 Квизы", CallbackData: "nav:quizzes"}, {Text: "📚 Глоссарий", CallbackData: "nav:glossary"}},
		{{Text: "📊 Панель фонда", CallbackData: "nav:dashboard"}, {Text: "🏆 Достижения", CallbackData: "nav:achievements"}},
	}
	b.sendView(s, text.String(), rows)
}

func (b *Bot) renderLearn(_ context.Context, s *userSession) {
	rows := [][]MenuButton{
		{{Text: "🎯 Квизы", CallbackData: "nav:quizzes"}},
		{{Text: "📚 Глоссарий", CallbackData: "nav:glossary"}},
		{{Text: "🎬 Инфографика и видео", CallbackData: "nav:edu"}},
	}
	b.sendView(s, "*Обучение*\n\nВыберите раздел:", rows)
}

func (b *Bot) renderData(_ context.Context, s *userSession) {
	rows := [][]MenuButton{
		{{Text: "📊 Панель фонда", CallbackData: "nav:dashboard"}},
		{{Text: "📄 Документы", CallbackData: "nav:documents"}},
		{{Text: "📖 Литература", CallbackData: "nav:literature"}},
	}
	b.sendView(s, "*Данные*\n\nВыберите раздел:", rows)
}

func (b *Bot) renderProgress(ctx context.Context, userID int64, s *userSession) {
	p := b.store.Load(ctx, userID)

	text := fmt.Sprintf("*Ваш прогресс*\n\n"+
		"🔥 Серия: %d %s\n"+
		"🎯 Квизов пройдено: %d\n"+
		"💎 Идеальных квизов: %d\n"+
		"📚 Терминов изучено: %d\n"+
		"🏆 Бейджей: %d из %d",
		p.Streak, dayWord(p.Streak), p.QuizzesCompleted(), p.PerfectQuizCount,
		len(p.ViewedTermIDs), len(p.UnlockedBadgeIDs), len(achievements.Catalog()))

	rows := [][]MenuButton{
		{{Text: "🏆 Смотреть достижения", CallbackData: "nav:achievements"}},
	}
	b.sendView(s, text, rows)
}

func (b *Bot) renderMore(_ context.Context, s *userSession) {
	rows := [][]MenuButton{
		{{Text: "❓ Частые вопросы", CallbackData: "nav:faq"}, {Text: "🛟 Поддержка", CallbackData: "nav:support"}},
		{{Text: "📋 Инструкции", CallbackData: "nav:instructions"}, {Text: "📢 Объявления", CallbackData: "nav:announcements"}},
		{{Text: "🎙 Эфиры", CallbackData: "nav:broadcasts"}, {Text: "👤 Профиль", CallbackData: "nav:profile"}},
	}
	b.sendView(s, "*Ещё*\n\nВыберите раздел:", rows)
}

// renderLoadError shows the scoped failure state for one module with a
// manual retry that re-enters the same route.
func (b *Bot) renderLoadError(s *userSession, title string, route navigation.Route) {
	rows := [][]MenuButton{
		{{Text: "🔄 Повторить", CallbackData: "nav:" + string(route)}},
		backRow(),
	}
	b.sendView(s, fmt.Sprintf("*%s*\n\nНе удалось загрузить раздел. Проверьте соединение и попробуйте ещё раз.", title), rows)
}

func (b *Bot) renderQuizzes(ctx context.Context, userID int64, s *userSession) {
	quizzes, err := b.registry.QuizList(ctx)
	if err != nil {
		log.Printf("bot: failed to load quizzes: %v", err)
		b.renderLoadError(s, "Квизы", navigation.RouteQuizzes)
		return
	}

	p := b.store.Load(ctx, userID)
	var rows [][]MenuButton
	for _, q := range quizzes {
		label := q.Title
		if p.HasCompletedQuiz(q.ID) {
			label = "✅ " + label
		}
		rows = append(rows, []MenuButton{{Text: label, CallbackData: "quiz:" + q.ID}})
	}
	rows = append(rows, backRow())
	b.sendView(s, "*Квизы*\n\nПроверьте свои знания:", rows)
}

func (b *Bot) renderQuizIntro(ctx context.Context, userID int64, s *userSession, quizID string) {
	if quizID == "" {
		quizID = s.quizID
	}
	q, err := b.registry.QuizByID(ctx, quizID)
	if err != nil {
		log.Printf("bot: failed to load quiz %q: %v", quizID, err)
		b.renderLoadError(s, "Квиз", navigation.RouteQuizzes)
		return
	}
	if q == nil {
		// Unknown quiz id: back to the list, nothing to start.
		s.nav.NavigateTo(ctx, navigation.RouteQuizzes, nil)
		return
	}
	s.quizID = q.ID

	var text strings.Builder
	fmt.Fprintf(&text, "*%s*\n\n%s\n\n", q.Title, q.Description)
	fmt.Fprintf(&text, "Вопросов: %d\n", len(q.Questions))
	if q.Difficulty != "" {
		fmt.Fprintf(&text, "Сложность: %s\n", q.Difficulty)
	}
	if q.Duration > 0 {
		fmt.Fprintf(&text, "Время: ~%d мин\n", q.Duration)
	}
	if b.store.Load(ctx, userID).HasCompletedQuiz(q.ID) {
		text.WriteString("\n✓ Вы уже прошли этот квиз")
	}

	rows := [][]MenuButton{
		{{Text: "▶️ Начать", CallbackData: "quizstart:" + q.ID}},
		backRow(),
	}
	b.sendView(s, text.String(), rows)
}

func (b *Bot) renderQuizQuestion(ctx context.Context, s *userSession) {
	if s.quizSession == nil || s.quizSession.State() != quiz.InProgress {
		s.nav.NavigateTo(ctx, navigation.RouteQuizzes, nil)
		return
	}

	p, err := s.quizSession.PresentQuestion()
	if err != nil {
		log.Printf("bot: failed to present question: %v", err)
		s.nav.NavigateTo(ctx, navigation.RouteQuizzes, nil)
		return
	}

	text := fmt.Sprintf("*Вопрос %d из %d*\n\n%s", p.Index+1, p.Total, p.Text)

	var rows [][]MenuButton
	for i, option := range p.Options {
		rows = append(rows, []MenuButton{{
			Text:         fmt.Sprintf("%s %s", optionLetter(i), option),
			CallbackData: fmt.Sprintf("answer:%d", i),
		}})
	}
	var actions []MenuButton
	if p.Hint != "" {
		actions = append(actions, MenuButton{Text: "💡 Подсказка", CallbackData: "hint"})
	}
	actions = append(actions, MenuButton{Text: "⏭ Пропустить", CallbackData: "skip"})
	rows = append(rows, actions, backRow())

	b.sendView(s, text, rows)
}

func optionLetter(i int) string {
	letters := []string{"🅐", "🅑", "🅒", "🅓", "🅔", "🅕"}
	if i < len(letters) {
		return letters[i]
	}
	return fmt.Sprintf("%d.", i+1)
}

func (b *Bot) renderQuizResult(_ context.Context, s *userSession) {
	sess := s.quizSession
	if sess == nil {
		return
	}
	percentage := sess.Percentage()
	tier := quiz.ResultTier(percentage)

	var text strings.Builder
	fmt.Fprintf(&text, "*Результат квиза*\n\n")
	fmt.Fprintf(&text, "%s *%d%%*\n", tierIcon(tier), percentage)
	fmt.Fprintf(&text, "Правильных ответов: %d из %d\n\n", sess.CorrectCount(), len(sess.Quiz().Questions))
	text.WriteString(tierMessage(tier))
	if tier == quiz.TierBronze {
		text.WriteString("\n\n*Рекомендации:*\n" +
			"• Изучите раздел \"Инфографика и видео\"\n" +
			"• Просмотрите глоссарий ключевых терминов\n" +
			"• Попробуйте пройти квиз ещё раз")
	}

	rows := [][]MenuButton{
		{{Text: "🔁 Пройти ещё раз", CallbackData: "quizstart:" + s.quizID}},
		{{Text: "📤 Поделиться", URL: shareResultURL(sess.Quiz().Title, percentage)}},
		{{Text: "К списку квизов", CallbackData: "nav:quizzes"}},
	}
	b.sendView(s, text.String(), rows)
}

// shareResultURL builds a t.me share link with a prefilled result message.
func shareResultURL(quizTitle string, percentage int) string {
	text := fmt.Sprintf("Я прошёл квиз «%s» на %d%% в MC Recovery Fund! 🎯", quizTitle, percentage)
	return "https://t.me/share/url?text=" + url.QueryEscape(text)
}

func tierIcon(t quiz.Tier) string {
	switch t {
	case quiz.TierGold:
		return "🥇"
	case quiz.TierSilver:
		return "🥈"
	}
	return "🥉"
}

func tierMessage(t quiz.Tier) string {
	switch t {
	case quiz.TierGold:
		return "Отличный результат! Вы прекрасно разбираетесь в теме."
	case quiz.TierSilver:
		return "Хороший результат! Ещё немного, и будет идеально."
	}
	return "Есть над чем поработать. Материалы ниже помогут разобраться."
}

func (b *Bot) renderGlossary(ctx context.Context, userID int64, s *userSession) {
	terms, err := b.registry.GlossaryTerms(ctx)
	if err != nil {
		log.Printf("bot: failed to load glossary: %v", err)
		b.renderLoadError(s, "Глоссарий", navigation.RouteGlossary)
		return
	}

	p := b.store.Load(ctx, userID)
	var rows [][]MenuButton
	for _, term := range terms {
		label := term.Term
		if p.HasViewedTerm(term.ID) {
			label = "✓ " + label
		}
		rows = append(rows, []MenuButton{{Text: label, CallbackData: "term:" + term.ID}})
	}
	rows = append(rows, backRow())
	b.sendView(s, fmt.Sprintf("*Глоссарий*\n\nИзучено: %d из %d", len(p.ViewedTermIDs), len(terms)), rows)
}

func (b *Bot) renderAchievements(ctx context.Context, userID int64, s *userSession) {
	p := b.store.Load(ctx, userID)

	var text strings.Builder
	text.WriteString("*Достижения*\n\n")
	for _, badge := range achievements.Catalog() {
		if p.HasBadge(badge.ID) {
			fmt.Fprintf(&text, "%s *%s* — %s\n", badge.Icon, badge.Name, badge.Description)
		} else {
			fmt.Fprintf(&text, "🔒 %s — %s\n", badge.Name, badge.Condition)
		}
	}
	fmt.Fprintf(&text, "\nРазблокировано: %d из %d", len(p.UnlockedBadgeIDs), len(achievements.Catalog()))

	b.sendView(s, text.String(), [][]MenuButton{backRow()})
}

// renderItemList shows one informational module as a list of cards.
func (b *Bot) renderItemList(ctx context.Context, s *userSession, module, title string, route navigation.Route) {
	items, err := b.moduleItems(ctx, module)
	if err != nil {
		log.Printf("bot: failed to load module %s: %v", module, err)
		b.renderLoadError(s, title, route)
		return
	}

	var text strings.Builder
	fmt.Fprintf(&text, "*%s*\n\n", title)
	if len(items) == 0 {
		text.WriteString("Пока ничего нет. Загляните позже.")
	}
	var rows [][]MenuButton
	for i, item := range items {
		if item.Title != "" {
			fmt.Fprintf(&text, "*%s*\n", item.Title)
		}
		if body := firstNonEmpty(item.Text, item.Description); body != "" {
			text.WriteString(body + "\n")
		}
		if item.URL != "" {
			rows = append(rows, []MenuButton{{
				Text:         "🔗 " + firstNonEmpty(item.Title, fmt.Sprintf("Ссылка %d", i+1)),
				CallbackData: "open:" + module + ":" + item.ID,
			}})
		}
		text.WriteString("\n")
	}
	rows = append(rows, backRow())
	b.sendView(s, text.String(), rows)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (b *Bot) moduleItems(ctx context.Context, name string) ([]contentItem, error) {
	if err := b.registry.EnsureLoaded(ctx, name); err != nil {
		return nil, err
	}
	payload, _ := b.registry.Payload(name)
	var items []contentItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("module %s: %w", name, err)
	}
	return items, nil
}

func (b *Bot) renderDashboard(ctx context.Context, s *userSession) {
	if b.vault == nil {
		b.sendView(s, "*Панель фонда*\n\nИсточник данных не настроен.", [][]MenuButton{backRow()})
		return
	}

	summary, err := b.vault.FetchSummary(ctx)
	if err != nil {
		log.Printf("bot: vault fetch failed: %v", err)
		rows := [][]MenuButton{
			{{Text: "🔄 Повторить", CallbackData: "nav:dashboard"}},
			backRow(),
		}
		b.sendView(s, "*Панель фонда*\n\nНе удалось получить данные. Попробуйте ещё раз.", rows)
		return
	}

	var text strings.Builder
	text.WriteString("*Панель фонда*\n\n")
	fmt.Fprintf(&text, "💰 Стоимость счёта: $%.2f\n", summary.AccountValue)
	fmt.Fprintf(&text, "📊 Используемая маржа: $%.2f\n", summary.MarginUsed)
	fmt.Fprintf(&text, "📈 APR: %.2f%%\n", summary.APR*100)
	fmt.Fprintf(&text, "💵 PnL за всё время: $%.2f\n", summary.AllTimePnL)
	if len(summary.Positions) > 0 {
		text.WriteString("\n*Открытые позиции:*\n")
		for _, pos := range summary.Positions {
			fmt.Fprintf(&text, "• %s: вход $%.2f, объём %.4f, плечо %.0fx, PnL $%.2f\n",
				pos.Coin, pos.EntryPrice, pos.Size, pos.Leverage, pos.UnrealizedPnL)
		}
	}

	b.sendView(s, text.String(), [][]MenuButton{backRow()})
}

func (b *Bot) renderProfileView(ctx context.Context, userID int64, s *userSession) {
	p := b.store.Load(ctx, userID)

	text := fmt.Sprintf("*Профиль*\n\n"+
		"🔥 Серия: %d %s\n"+
		"🎯 Квизов пройдено: %d\n"+
		"🏆 Бейджей: %d\n\n"+
		"Тема: %s\nЯзык: %s",
		p.Streak, dayWord(p.Streak), p.QuizzesCompleted(), len(p.UnlockedBadgeIDs),
		themeTitle(p.Settings.Theme), p.Settings.Language)

	rows := [][]MenuButton{
		{{Text: "🎨 Тема", CallbackData: "settings:theme"}},
		{{Text: "🗑 Сбросить прогресс", CallbackData: "reset"}},
		backRow(),
	}
	b.sendView(s, text, rows)
}

func themeTitle(theme string) string {
	switch theme {
	case "light":
		return "светлая"
	case "dark":
		return "тёмная"
	}
	return "как в системе"
}
