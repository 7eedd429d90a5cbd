package notify

import (
	"fmt"
	"time"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"

	"stockwatch/internal/model"
)

const (
	TopicAlertTriggered = "alert.triggered"
	TopicToast          = "toast"
)

// TriggeredEvent is published when an alert fires.
type TriggeredEvent struct {
	Alert model.Alert
	Price float64
	At    time.Time
}

// Toast is a transient in-app message.
type Toast struct {
	Level   string // "info", "warning", "error"
	Message string
	At      time.Time
}

// Hub fans events out to whoever subscribed. Subscriptions are synchronous;
// handlers must be fast and never block.
type Hub struct {
	bus EventBus.Bus
}

func NewHub() *Hub {
	return &Hub{bus: EventBus.New()}
}

// PublishTriggered announces a fired alert. Every triggered alert also
// produces a toast, unconditionally; desktop delivery is up to the
// subscribed notifier and its permission state.
func (h *Hub) PublishTriggered(evt TriggeredEvent) {
	h.PublishToast("info", FormatTriggered(evt))
	h.bus.Publish(TopicAlertTriggered, evt)
}

// PublishToast emits an in-app toast.
func (h *Hub) PublishToast(level, message string) {
	h.bus.Publish(TopicToast, Toast{Level: level, Message: message, At: time.Now()})
}

// Toastf emits a formatted toast.
func (h *Hub) Toastf(level, format string, args ...interface{}) {
	h.PublishToast(level, fmt.Sprintf(format, args...))
}

// SubscribeTriggered registers a handler for fired alerts.
func (h *Hub) SubscribeTriggered(fn func(TriggeredEvent)) error {
	if err := h.bus.Subscribe(TopicAlertTriggered, fn); err != nil {
		return err
	}
	log.Infof("subscribed to topic %s", TopicAlertTriggered)
	return nil
}

// SubscribeToast registers a handler for toasts.
func (h *Hub) SubscribeToast(fn func(Toast)) error {
	if err := h.bus.Subscribe(TopicToast, fn); err != nil {
		return err
	}
	log.Infof("subscribed to topic %s", TopicToast)
	return nil
}
