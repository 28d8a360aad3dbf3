package notify

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/factbot/internal/scheduler"
	"github.com/go-co-op/gocron"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// TelegramNotifier delivers scheduled facts as Telegram messages. It
// implements scheduler.Notifier: registrations are held in a pending set
// keyed by opaque ids and flushed by a minutely job once their slot time
// arrives.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	cron   *gocron.Scheduler

	mu      sync.Mutex
	pending map[string]delivery
}

type delivery struct {
	payload scheduler.Payload
	at      time.Time
}

// New creates a notifier posting to the given chat
func New(token string, chatID int64) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %v", err)
	}

	return &TelegramNotifier{
		api:     api,
		chatID:  chatID,
		cron:    gocron.NewScheduler(time.Local),
		pending: make(map[string]delivery),
	}, nil
}

// Start begins the delivery loop
func (n *TelegramNotifier) Start() error {
	if _, err := n.cron.Every(1).Minute().Do(n.deliverDue); err != nil {
		return fmt.Errorf("failed to start delivery job: %v", err)
	}
	n.cron.StartAsync()
	return nil
}

// Stop terminates the delivery loop; pending registrations are kept.
func (n *TelegramNotifier) Stop() {
	n.cron.Stop()
}

// Schedule registers a delivery at the given local time and returns its
// opaque identifier.
func (n *TelegramNotifier) Schedule(payload scheduler.Payload, at time.Time) (string, error) {
	ref := uuid.New().String()

	n.mu.Lock()
	n.pending[ref] = delivery{payload: payload, at: at}
	n.mu.Unlock()

	return ref, nil
}

// Cancel drops one pending registration. Unknown refs are a no-op: the OS
// side of a reconciliation may already have dropped them.
func (n *TelegramNotifier) Cancel(ref string) error {
	n.mu.Lock()
	delete(n.pending, ref)
	n.mu.Unlock()
	return nil
}

// CancelAll drops every pending registration
func (n *TelegramNotifier) CancelAll() error {
	n.mu.Lock()
	n.pending = make(map[string]delivery)
	n.mu.Unlock()
	return nil
}

// ListPending returns the identifiers of registrations not yet delivered
func (n *TelegramNotifier) ListPending() ([]string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	refs := make([]string, 0, len(n.pending))
	for ref := range n.pending {
		refs = append(refs, ref)
	}
	return refs, nil
}

// deliverDue sends every registration whose slot time has arrived.
func (n *TelegramNotifier) deliverDue() {
	now := time.Now()

	n.mu.Lock()
	due := make(map[string]delivery)
	for ref, d := range n.pending {
		if !d.at.After(now) {
			due[ref] = d
			delete(n.pending, ref)
		}
	}
	n.mu.Unlock()

	for ref, d := range due {
		text := fmt.Sprintf("*%s*\n\n%s", d.payload.Title, d.payload.Summary)
		msg := tgbotapi.NewMessage(n.chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown

		if _, err := n.api.Send(msg); err != nil {
			log.Printf("failed to deliver notification %s: %v", ref, err)
			// Put it back so the next tick retries.
			n.mu.Lock()
			n.pending[ref] = d
			n.mu.Unlock()
		}
	}
}
