package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"appliance-warranty-backend/internal/model"
	"appliance-warranty-backend/internal/warranty"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Store is the persistence the workers and the sweeper need.
type Store interface {
	ReminderWithAppliance(ctx context.Context, id uuid.UUID) (*model.Reminder, *model.Appliance, error)
	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error)
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
	MarkReminderNotified(ctx context.Context, id uuid.UUID, due time.Time) error
	ListDueReminders(ctx context.Context, horizon time.Time) ([]model.Reminder, error)
}

// Payload is the JSON body delivered to the service worker.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Tag   string `json:"tag"`
}

// WorkerPool sends reminder notifications on a fixed number of goroutines.
type WorkerPool struct {
	size    int
	jobs    chan uuid.UUID
	quit    chan struct{}
	wg      sync.WaitGroup
	store   Store
	webpush *webpush.Options
	sender  NotificationSender
	loc     *time.Location
	now     func() time.Time
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool. Dates in messages are computed
// in loc.
func NewWorkerPool(size int, st Store, webpushOptions *webpush.Options, loc *time.Location, log *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan uuid.UUID, size*4),
		quit:    make(chan struct{}),
		store:   st,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		loc:     loc,
		now:     time.Now,
		log:     log,
	}
}

// Start launches the worker goroutines. They exit when ctx is cancelled or
// Stop is called.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop signals the workers and waits for them to return. Queued jobs are dropped.
func (wp *WorkerPool) Stop() {
	select {
	case <-wp.quit:
	default:
		close(wp.quit)
	}
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.log.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case reminderID := <-wp.jobs:
			wp.notifyReminder(ctx, reminderID)
		case <-ctx.Done():
			return
		case <-wp.quit:
			return
		}
	}
}

// Dispatch queues a reminder. It blocks while the queue is full and gives
// up, returning false, once ctx is done or the pool stops.
func (wp *WorkerPool) Dispatch(ctx context.Context, reminderID uuid.UUID) bool {
	select {
	case <-wp.quit:
		return false
	default:
	}
	select {
	case wp.jobs <- reminderID:
		return true
	case <-ctx.Done():
		return false
	case <-wp.quit:
		return false
	}
}

// notifyReminder pushes one reminder to all of its owner's browsers and,
// once at least one accepted it, records the due date it was sent for.
func (wp *WorkerPool) notifyReminder(ctx context.Context, reminderID uuid.UUID) {
	r, a, err := wp.store.ReminderWithAppliance(ctx, reminderID)
	if err != nil {
		wp.log.Warn("failed to load reminder", zap.String("reminder_id", reminderID.String()), zap.Error(err))
		return
	}
	if !r.Enabled || r.NextDueDate == nil {
		return
	}

	subs, err := wp.store.ListSubscriptions(ctx, a.UserID)
	if err != nil {
		wp.log.Warn("failed to list subscriptions", zap.String("user_id", a.UserID.String()), zap.Error(err))
		return
	}

	if len(subs) == 0 {
		return
	}
	payload, err := json.Marshal(wp.buildPayload(r, a))
	if err != nil {
		wp.log.Error("failed to encode push payload", zap.Error(err))
		return
	}
	wp.log.Info("sending reminder notifications",
		zap.String("reminder_id", r.ID.String()), zap.Int("subscriptions", len(subs)))
	delivered := 0
	for _, sub := range subs {
		if wp.sendNotification(ctx, sub, payload) {
			delivered++
		}
	}

	// Undelivered reminders stay eligible for the next sweep.
	if delivered == 0 {
		return
	}
	if err := wp.store.MarkReminderNotified(ctx, r.ID, *r.NextDueDate); err != nil {
		wp.log.Warn("failed to mark reminder notified", zap.String("reminder_id", r.ID.String()), zap.Error(err))
	}
}

func (wp *WorkerPool) buildPayload(r *model.Reminder, a *model.Appliance) Payload {
	today := warranty.DateOf(wp.now().In(wp.loc))
	days := warranty.DaysBetween(today, *r.NextDueDate)

	var when string
	switch {
	case days < 0:
		when = fmt.Sprintf("%d日超過", -days)
	case days == 0:
		when = "今日が期限"
	default:
		when = fmt.Sprintf("あと%d日", days)
	}

	return Payload{
		Title: "メンテナンスのお知らせ",
		Body:  fmt.Sprintf("%s: %s（%s）", applianceLabel(a), r.Title, when),
		URL:   "/product/user/" + a.ID.String(),
		Tag:   "reminder-" + r.ID.String(),
	}
}

func applianceLabel(a *model.Appliance) string {
	label := strings.TrimSpace(a.Brand + " " + a.Model)
	if label == "" {
		return a.ApplianceType
	}
	return label
}

// sendNotification sends a single web push notification and drops
// subscriptions the push service reports as gone. It reports whether the
// push service accepted the message.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) bool {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("push send failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscriptionByEndpoint(ctx, sub.Endpoint); err != nil {
			wp.log.Warn("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
		return false
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		wp.log.Warn("push service rejected notification", zap.String("endpoint", sub.Endpoint), zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}
