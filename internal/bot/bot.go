package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ozwatch/ozwatch/internal/track"
)

// Menu button labels. These double as commands: the reply keyboard sends the
// label text back as a plain message.
const (
	buttonAdd    = "➕ Добавить трек"
	buttonList   = "📦 Отслеживаемые"
	buttonRemove = "➖ Удалить трек"
	buttonHelp   = "ℹ️ Помощь"
)

const helpText = `Я слежу за статусами посылок Ozon Global.

Команды:
/start — показать меню
/debug <трек> — разовая проверка без добавления

Кнопки:
` + buttonAdd + ` — добавить трек-номер
` + buttonList + ` — список отслеживаемых
` + buttonRemove + ` — удалить трек-номер

Можно просто прислать трек-номер или ссылку с ?track=... — я добавлю его сам.`

// pendingMode is the per-chat conversational state between a menu button
// press and the follow-up message carrying the tracking number.
type pendingMode int

const (
	pendingNone pendingMode = iota
	pendingAdd
	pendingRemove
)

// API is the slice of tgbotapi.BotAPI the bot uses; it exists so tests can
// substitute a recorder.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram command layer.
type Bot struct {
	api     API
	service *Service
	allowed map[int64]bool
	pending map[int64]pendingMode
	logger  *zap.Logger
}

// New builds a Bot. allowedChats is a list of chat ids; an empty list allows
// every chat.
func New(api API, service *Service, allowedChats []string, logger *zap.Logger) (*Bot, error) {
	allowed := make(map[int64]bool, len(allowedChats))
	for _, raw := range allowedChats {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse allowed chat id %q: %w", raw, err)
		}
		allowed[id] = true
	}
	return &Bot{
		api:     api,
		service: service,
		allowed: allowed,
		pending: make(map[int64]pendingMode),
		logger:  logger,
	}, nil
}

// Run consumes updates until the context is canceled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	b.logger.Info("bot update loop started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	chatID := update.Message.Chat.ID
	if len(b.allowed) > 0 && !b.allowed[chatID] {
		// Unknown chats are ignored silently.
		b.logger.Debug("ignoring message from unlisted chat", zap.Int64("chat_id", chatID))
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	switch {
	case update.Message.IsCommand():
		b.pending[chatID] = pendingNone
		b.handleCommand(ctx, chatID, update.Message)
	case text == buttonAdd:
		b.pending[chatID] = pendingAdd
		b.reply(chatID, "Пришли трек-номер (например 94044975-0220-1).")
	case text == buttonRemove:
		b.pending[chatID] = pendingRemove
		b.reply(chatID, "Пришли трек-номер, который убрать из отслеживания.")
	case text == buttonList:
		b.pending[chatID] = pendingNone
		b.handleList(ctx, chatID)
	case text == buttonHelp:
		b.pending[chatID] = pendingNone
		b.reply(chatID, helpText)
	default:
		b.handleText(ctx, chatID, text)
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.sendMenu(chatID, "Привет! Я слежу за посылками Ozon Global. Выбирай действие:")
	case "help":
		b.reply(chatID, helpText)
	case "debug":
		number, ok := track.ParseNumber(msg.CommandArguments())
		if !ok {
			b.reply(chatID, "Укажи трек-номер: /debug 94044975-0220-1")
			return
		}
		res := b.service.Check(ctx, number)
		b.reply(chatID, fmt.Sprintf("🔍 %s: %s (%s)", number, res.Status, res.Reason))
	default:
		b.reply(chatID, "Не знаю такой команды. /help")
	}
}

// handleText resolves a free-form message against the chat's pending mode. A
// message that parses as a tracking number with no mode pending is treated as
// an add, matching the habit of just pasting a track into the chat.
func (b *Bot) handleText(ctx context.Context, chatID int64, text string) {
	mode := b.pending[chatID]
	b.pending[chatID] = pendingNone

	number, ok := track.ParseNumber(text)
	if !ok {
		if mode != pendingNone {
			b.reply(chatID, "Это не похоже на трек-номер. Попробуй ещё раз через меню.")
		}
		return
	}

	switch mode {
	case pendingRemove:
		b.handleRemove(ctx, chatID, number)
	default:
		b.handleAdd(ctx, chatID, number)
	}
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, number string) {
	owner := strconv.FormatInt(chatID, 10)
	res, err := b.service.Add(ctx, owner, number)
	if err != nil {
		b.logger.Error("add failed", zap.String("number", number), zap.Error(err))
		b.reply(chatID, "Не получилось сохранить трек, попробуй позже.")
		return
	}

	var sb strings.Builder
	if res.AlreadyTracked {
		fmt.Fprintf(&sb, "🔄 %s уже отслеживается.\n", number)
	} else {
		fmt.Fprintf(&sb, "✅ %s добавлен.\n", number)
	}
	switch {
	case res.Record.Status.IsLifecycle():
		fmt.Fprintf(&sb, "Текущий статус: %s", res.Record.Status)
	case res.Record.Status == track.StatusBlocked:
		sb.WriteString("⚠️ Сайт отслеживания сейчас блокирует проверку, статус подтяну позже.")
	default:
		sb.WriteString("Статус пока не определился, проверю в следующем цикле.")
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) handleRemove(ctx context.Context, chatID int64, number string) {
	owner := strconv.FormatInt(chatID, 10)
	removed, err := b.service.Remove(ctx, owner, number)
	if err != nil {
		b.logger.Error("remove failed", zap.String("number", number), zap.Error(err))
		b.reply(chatID, "Не получилось удалить трек, попробуй позже.")
		return
	}
	if !removed {
		b.reply(chatID, fmt.Sprintf("🤷 %s и так не отслеживается.", number))
		return
	}
	b.reply(chatID, fmt.Sprintf("🗑 %s больше не отслеживается.", number))
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	owner := strconv.FormatInt(chatID, 10)
	entries, err := b.service.List(ctx, owner)
	if err != nil {
		b.logger.Error("list failed", zap.Error(err))
		b.reply(chatID, "Не получилось прочитать список, попробуй позже.")
		return
	}
	if len(entries) == 0 {
		b.reply(chatID, "Пока ничего не отслеживается. Жми «"+buttonAdd+"».")
		return
	}

	var sb strings.Builder
	sb.WriteString("📦 Отслеживаемые посылки:\n")
	for _, e := range entries {
		status := string(e.Record.Status)
		if status == "" {
			status = "ещё не проверялся"
		}
		fmt.Fprintf(&sb, "• %s — %s\n", e.Number, status)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) sendMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonAdd),
			tgbotapi.NewKeyboardButton(buttonList),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonRemove),
			tgbotapi.NewKeyboardButton(buttonHelp),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send menu failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn("send reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
