package bot

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HapticKind names the feedback pulses the UI asks for.
type HapticKind string

const (
	HapticSelect  HapticKind = "select"
	HapticSuccess HapticKind = "success"
	HapticError   HapticKind = "error"
)

// HostBridge is the host-container capability surface. The Telegram
// implementation maps pulses to callback answers and external links to URL
// buttons; the no-op implementation is used in tests and keeps every caller
// free of existence checks.
type HostBridge interface {
	// Haptic acknowledges the callback that triggered the current action.
	// Error pulses carry a short alert so the rejection is visible.
	Haptic(callbackID string, kind HapticKind, note string)
	// OpenLink offers an external URL to the user.
	OpenLink(chatID int64, title, url string)
	// ColorScheme returns the host theme hint, or "auto" without one.
	ColorScheme() string
}

// TelegramBridge implements HostBridge over the bot API.
type TelegramBridge struct {
	api *tgbotapi.BotAPI
}

func NewTelegramBridge(api *tgbotapi.BotAPI) *TelegramBridge {
	return &TelegramBridge{api: api}
}

func (t *TelegramBridge) Haptic(callbackID string, kind HapticKind, note string) {
	if callbackID == "" {
		return
	}
	cb := tgbotapi.NewCallback(callbackID, "")
	if kind == HapticError {
		cb = tgbotapi.NewCallbackWithAlert(callbackID, note)
	}
	if _, err := t.api.Request(cb); err != nil {
		log.Printf("bridge: failed to answer callback: %v", err)
	}
}

func (t *TelegramBridge) OpenLink(chatID int64, title, url string) {
	msg := tgbotapi.NewMessage(chatID, title)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Открыть ссылку", url),
		),
	)
	if _, err := t.api.Send(msg); err != nil {
		log.Printf("bridge: failed to send link: %v", err)
	}
}

func (t *TelegramBridge) ColorScheme() string {
	// The bot API offers no theme hint; users pick one in settings.
	return "auto"
}

// NopBridge degrades every capability to a no-op.
type NopBridge struct{}

func (NopBridge) Haptic(string, HapticKind, string) {}
func (NopBridge) OpenLink(int64, string, string)    {}
func (NopBridge) ColorScheme() string               { return "auto" }
