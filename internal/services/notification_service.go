package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/pkg/relay"
)

// MessageSender delivers a rendered message (implemented by relay.Client)
type MessageSender interface {
	Send(ctx context.Context, msg relay.Message) error
	Name() string
}

// Outcome reports what happened to a notification. It is never an error:
// a notification problem must not fail the status change it reports on.
type Outcome struct {
	Sent   bool   `json:"sent"`
	Queued bool   `json:"queued"`
	Reason string `json:"reason,omitempty"`
}

// Outcome reasons
const (
	ReasonQueueFull = "queue full"
	ReasonStopped   = "dispatcher stopped"
)

// NotificationDispatcher sends best-effort booking notifications. Publish
// hands events to background workers; Notify sends inline.
type NotificationDispatcher struct {
	sender      MessageSender
	logger      *logrus.Logger
	sendTimeout time.Duration

	queue   chan models.BookingEvent
	workers int
	wg      sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool
}

// DispatcherConfig sizes the dispatcher
type DispatcherConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// NewNotificationDispatcher creates a new NotificationDispatcher
func NewNotificationDispatcher(sender MessageSender, config DispatcherConfig, logger *logrus.Logger) *NotificationDispatcher {
	if config.QueueSize < 1 {
		config.QueueSize = 1
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 10 * time.Second
	}
	return &NotificationDispatcher{
		sender:      sender,
		logger:      logger,
		sendTimeout: config.SendTimeout,
		queue:       make(chan models.BookingEvent, config.QueueSize),
		workers:     config.Workers,
	}
}

// Start launches the workers. They run until Stop is called or ctx ends.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.logger.WithFields(logrus.Fields{
		"workers": d.workers,
		"relay":   d.sender.Name(),
	}).Info("Notification dispatcher started")
}

// Stop refuses new events and waits for queued ones to be delivered
func (d *NotificationDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("Notification dispatcher stopped")
}

// Publish enqueues an event without blocking
func (d *NotificationDispatcher) Publish(event models.BookingEvent) Outcome {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return Outcome{Reason: ReasonStopped}
	}

	select {
	case d.queue <- event:
		return Outcome{Queued: true}
	default:
		d.logger.WithFields(logrus.Fields{
			"booking_id": event.Booking.ID,
			"event":      event.Type,
		}).Warn("Notification queue full, dropping event")
		return Outcome{Reason: ReasonQueueFull}
	}
}

// Notify sends one notification synchronously. Failures are logged and
// reported in the outcome.
func (d *NotificationDispatcher) Notify(ctx context.Context, booking models.Booking, event models.BookingEventType) Outcome {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	msg := RenderMessage(booking, event)
	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"event":      event,
			"relay":      d.sender.Name(),
			"error":      err.Error(),
		}).Warn("Booking notification not sent")
		return Outcome{Reason: err.Error()}
	}

	d.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"event":      event,
	}).Info("Booking notification sent")
	return Outcome{Sent: true}
}

func (d *NotificationDispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case event, ok := <-d.queue:
			if !ok {
				return
			}
			d.Notify(ctx, event.Booking, event.Type)
		case <-ctx.Done():
			d.logger.WithField("worker", id).Debug("Notification worker exiting")
			return
		}
	}
}

// RenderMessage builds the text summary sent to the customer
func RenderMessage(b models.Booking, event models.BookingEventType) relay.Message {
	var subject, headline string
	switch event {
	case models.BookingEventConfirmed:
		subject = "Your booking is confirmed"
		headline = "Good news! Your booking has been confirmed."
	case models.BookingEventCancelled:
		subject = "Your booking has been cancelled"
		headline = "Your booking has been cancelled. Contact us if this is unexpected."
	default:
		subject = "Booking update"
		headline = fmt.Sprintf("Your booking status is now %s.", b.Status)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n%s\n\n", b.Name, headline)
	fmt.Fprintf(&body, "Booking: %s\n", b.ID)
	fmt.Fprintf(&body, "Tour: %s\n", b.TourID)
	fmt.Fprintf(&body, "Date: %s\n", b.TourDate)
	fmt.Fprintf(&body, "Guests: %d\n", b.Guests)
	if b.Customizations.RoomType != "" {
		fmt.Fprintf(&body, "Room: %s\n", b.Customizations.RoomType)
	}
	if b.Customizations.MealPlan != "" {
		fmt.Fprintf(&body, "Meals: %s\n", b.Customizations.MealPlan)
	}
	if b.Customizations.Transport != "" {
		fmt.Fprintf(&body, "Transport: %s\n", b.Customizations.Transport)
	}
	if extras := b.Customizations.SelectedExtras(); len(extras) > 0 {
		fmt.Fprintf(&body, "Extras: %s\n", strings.Join(extras, ", "))
	}
	if len(b.Customizations.Activities) > 0 {
		fmt.Fprintf(&body, "Activities: %s\n", strings.Join(b.Customizations.Activities, ", "))
	}
	fmt.Fprintf(&body, "Total: %.2f\n", b.TotalPrice)
	fmt.Fprintf(&body, "Status: %s\n", b.Status)

	return relay.Message{
		To:      b.Email,
		Phone:   b.Phone,
		Subject: subject,
		Body:    body.String(),
	}
}
