package notify

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// ToastNotifier keeps a ring of the most recent toasts for the in-app
// channel. It fires for every toast unconditionally.
type ToastNotifier struct {
	mu     sync.Mutex
	recent []Toast
	limit  int
}

// NewToastNotifier subscribes a toast ring of the given capacity to the hub.
func NewToastNotifier(hub *Hub, limit int) (*ToastNotifier, error) {
	if limit <= 0 {
		limit = 50
	}
	t := &ToastNotifier{limit: limit}
	if err := hub.SubscribeToast(t.handle); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *ToastNotifier) handle(toast Toast) {
	t.mu.Lock()
	t.recent = append(t.recent, toast)
	if len(t.recent) > t.limit {
		t.recent = t.recent[len(t.recent)-t.limit:]
	}
	t.mu.Unlock()

	log.Infof("toast [%s] %s", toast.Level, toast.Message)
}

// Recent returns the retained toasts, newest last.
func (t *ToastNotifier) Recent() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Toast, len(t.recent))
	copy(out, t.recent)
	return out
}
