package router

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
	"github.com/skulebot/core/internal/services"
)

// Dispatcher routes incoming updates to handlers. Every update runs inside
// its own database transaction with roles derived fresh, so a revoked
// permission takes effect on the very next button press.
type Dispatcher struct {
	db        *gorm.DB
	bot       Transport
	sched     Scheduler
	log       *zap.Logger
	rootIDs   []int64
	errorChat int64

	commands       map[string]Route
	callbacks      Routes
	conversations  []*Conversation
	defaultMessage HandlerFunc
}

// NewDispatcher builds an empty dispatcher; register handlers before Run.
func NewDispatcher(db *gorm.DB, bot Transport, sched Scheduler, log *zap.Logger, rootIDs []int64, errorChat int64) *Dispatcher {
	return &Dispatcher{
		db:        db,
		bot:       bot,
		sched:     sched,
		log:       log,
		rootIDs:   rootIDs,
		errorChat: errorChat,
		commands:  map[string]Route{},
	}
}

// Command registers a handler for a slash command, e.g. "start".
func (d *Dispatcher) Command(name string, handler HandlerFunc, roles ...models.Role) {
	d.commands[name] = Route{handler: handler, roles: roles}
}

// Callback appends routes to the top-level callback table.
func (d *Dispatcher) Callback(routes ...Route) {
	d.callbacks = append(d.callbacks, routes...)
}

// Conversation registers a multi-step flow.
func (d *Dispatcher) Conversation(conv *Conversation) {
	d.conversations = append(d.conversations, conv)
}

// DefaultMessage sets the handler for messages no conversation claims.
func (d *Dispatcher) DefaultMessage(handler HandlerFunc) {
	d.defaultMessage = handler
}

// Run consumes updates until the channel closes.
func (d *Dispatcher) Run(updates <-chan tgbotapi.Update) {
	for update := range updates {
		d.HandleUpdate(update)
	}
}

// HandleUpdate processes a single update end to end.
func (d *Dispatcher) HandleUpdate(update tgbotapi.Update) {
	from := update.SentFrom()
	chat := update.FromChat()
	if from == nil || from.IsBot || chat == nil {
		return
	}

	log := d.log.With(
		zap.String("interaction_id", uuid.NewString()),
		zap.Int64("telegram_id", from.ID),
	)

	var ctx *Context
	err := d.db.Transaction(func(tx *gorm.DB) error {
		store := repository.NewStore(tx)
		user, err := d.ensureUser(store, from, chat.ID)
		if err != nil {
			return err
		}
		roles, err := services.DeriveRoles(store, user, d.rootIDs)
		if err != nil {
			return err
		}
		ctx = &Context{
			Update: update,
			Bot:    d.bot,
			Store:  store,
			Sched:  d.sched,
			Log:    log,
			User:   user,
			Roles:  roles,
		}
		return d.route(ctx)
	})
	if err != nil {
		d.recover(ctx, update, log, err)
	}
}

func (d *Dispatcher) route(c *Context) error {
	switch {
	case c.Update.CallbackQuery != nil:
		return d.routeCallback(c)
	case c.Update.Message != nil && c.Update.Message.IsCommand():
		return d.routeCommand(c)
	case c.Update.Message != nil:
		return d.routeMessage(c)
	}
	return nil
}

func (d *Dispatcher) routeCallback(c *Context) error {
	data := c.Data()

	// An active conversation claims the press first.
	for _, conv := range d.conversations {
		state, err := c.State(conv.Name)
		if err != nil {
			return err
		}
		if state == "" {
			continue
		}
		st, ok := conv.States[state]
		if !ok {
			continue
		}
		if route, ok := st.Callbacks.match(data); ok {
			return d.run(c, route, data)
		}
	}

	if route, ok := d.callbacks.match(data); ok {
		return d.run(c, route, data)
	}

	// Unroutable data means the keyboard predates the current tables.
	c.Log.Debug("unroutable callback", zap.String("data", data))
	return c.Answer("")
}

func (d *Dispatcher) routeCommand(c *Context) error {
	route, ok := d.commands[c.Update.Message.Command()]
	if !ok {
		return nil
	}
	// A command abandons whatever flow was in progress.
	for _, conv := range d.conversations {
		if err := c.EndConversation(conv.Name); err != nil {
			return err
		}
	}
	return d.run(c, route, "")
}

func (d *Dispatcher) routeMessage(c *Context) error {
	for _, conv := range d.conversations {
		state, err := c.State(conv.Name)
		if err != nil {
			return err
		}
		if state == "" {
			continue
		}
		if st, ok := conv.States[state]; ok && st.OnMessage != nil {
			return st.OnMessage(c)
		}
	}
	if d.defaultMessage != nil {
		return d.defaultMessage(c)
	}
	return nil
}

func (d *Dispatcher) run(c *Context, route Route, data string) error {
	if len(route.roles) > 0 {
		allowed := false
		for _, r := range route.roles {
			if c.HasRole(r) {
				allowed = true
				break
			}
		}
		if !allowed {
			return c.Answer("")
		}
	}
	if route.re != nil {
		c.Params = newParams(route.re, data)
	}
	return route.handler(c)
}

// ensureUser loads or registers the interacting account and keeps its chat
// id current.
func (d *Dispatcher) ensureUser(store *repository.Store, from *tgbotapi.User, chatID int64) (*models.User, error) {
	user, err := store.Users.GetByTelegramID(from.ID)
	if errors.Is(err, repository.ErrNotFound) {
		lang := models.LangEN
		if from.LanguageCode == models.LangAR {
			lang = models.LangAR
		}
		user = &models.User{TelegramID: from.ID, ChatID: chatID, LanguageCode: lang}
		if err := store.Users.Create(user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}
	if user.ChatID != chatID {
		user.ChatID = chatID
		if err := store.Users.Update(user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// recover handles a failed interaction after its transaction rolled back:
// stale screens are torn down, everything else is reported.
func (d *Dispatcher) recover(c *Context, update tgbotapi.Update, log *zap.Logger, err error) {
	if errors.Is(err, ErrStale) && update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		msg := update.CallbackQuery.Message
		_ = d.bot.AnswerCallback(update.CallbackQuery.ID, "")
		_ = d.bot.DeleteMessage(msg.Chat.ID, msg.MessageID)
		return
	}

	log.Error("interaction failed", zap.Error(err))
	if update.CallbackQuery != nil {
		_ = d.bot.AnswerCallback(update.CallbackQuery.ID, "Something went wrong.")
	} else if c != nil {
		_, _ = d.bot.SendMessage(c.ChatID(), "Something went wrong.", nil)
	}
	if d.errorChat != 0 {
		report := fmt.Sprintf("⚠️ interaction failed\nuser: %d\nerror: %v", update.SentFrom().ID, err)
		if _, sendErr := d.bot.SendMessage(d.errorChat, report, nil); sendErr != nil {
			log.Warn("failed to report error", zap.Error(sendErr))
		}
	}
}
