package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/studymate/backend/internal/models"
	"github.com/studymate/backend/internal/store"
)

// Notifier delivers a due-reminder notification to a user.
type Notifier interface {
	Notify(identityID string, reminder models.Reminder)
}

// LogNotifier writes notifications to the server log. Push delivery channels
// plug in behind the same interface.
type LogNotifier struct {
	Log *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) Notify(identityID string, reminder models.Reminder) {
	n.Log.Info("reminder due",
		"identity", identityID, "reminder", reminder.ID, "task", reminder.Task, "priority", reminder.Priority)
}

// Poller is a level-crossing detector over reminder due times: each tick it
// fires a notification for every reminder whose dueTime moved from the
// future into the past since the previous tick. It is not a scheduler -
// there is no queue and no retry; a missed tick window simply skips those
// reminders.
type Poller struct {
	store     *store.Store
	notifier  Notifier
	interval  time.Duration
	log       *slog.Logger
	now       func() time.Time
	lastCheck time.Time
}

func NewPoller(st *store.Store, notifier Notifier, interval time.Duration, log *slog.Logger) *Poller {
	p := &Poller{
		store:    st,
		notifier: notifier,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
	p.lastCheck = p.now()
	return p
}

// Run ticks until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick()
		}
	}
}

// tick fires every reminder with lastCheck < dueTime <= now that is not
// completed, then advances lastCheck monotonically.
func (p *Poller) tick() {
	now := p.now()
	identities, err := p.store.Identities(store.CollectionReminders)
	if err != nil {
		p.log.Error("list reminder identities", "err", err)
		p.lastCheck = now
		return
	}

	for _, identity := range identities {
		var reminders []models.Reminder
		if err := p.store.Load(store.CollectionReminders, identity, &reminders); err != nil {
			p.log.Error("load reminders", "identity", identity, "err", err)
			continue
		}
		for _, r := range reminders {
			if r.Completed {
				continue
			}
			if r.DueTime.After(p.lastCheck) && !r.DueTime.After(now) {
				p.notifier.Notify(identity, r)
			}
		}
	}

	p.lastCheck = now
}
