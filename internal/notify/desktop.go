package notify

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Permission is the OS-level notification permission state.
type Permission int

const (
	PermissionDefault Permission = iota
	PermissionGranted
	PermissionDenied
)

// ParsePermission maps the config strings to a Permission.
func ParsePermission(s string) Permission {
	switch s {
	case "granted":
		return PermissionGranted
	case "denied":
		return PermissionDenied
	default:
		return PermissionDefault
	}
}

// Sender delivers one platform notification.
type Sender func(title, body string) error

// DesktopNotifier sends platform notifications for fired alerts, but only
// when permission is granted. An undecided permission may be resolved once
// via the request hook; denied falls back silently since the toast channel
// already fired.
type DesktopNotifier struct {
	mu      sync.Mutex
	perm    Permission
	request func() Permission
	send    Sender
	asked   bool
}

// NewDesktopNotifier subscribes a desktop notifier to the hub. request may
// be nil when the permission state is already decided.
func NewDesktopNotifier(hub *Hub, perm Permission, request func() Permission, send Sender) (*DesktopNotifier, error) {
	if send == nil {
		send = logSender
	}
	d := &DesktopNotifier{perm: perm, request: request, send: send}
	if err := hub.SubscribeTriggered(d.handle); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DesktopNotifier) handle(evt TriggeredEvent) {
	if !d.permitted() {
		return
	}
	title := "Price alert: " + evt.Alert.Symbol
	if err := d.send(title, FormatTriggeredBody(evt)); err != nil {
		log.Warnf("desktop notification failed: %v", err)
	}
}

func (d *DesktopNotifier) permitted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.perm == PermissionDefault && !d.asked && d.request != nil {
		d.asked = true
		d.perm = d.request()
	}
	return d.perm == PermissionGranted
}

// Permission returns the current permission state.
func (d *DesktopNotifier) Permission() Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.perm
}

func logSender(title, body string) error {
	log.Infof("desktop notification: %s: %s", title, body)
	return nil
}
