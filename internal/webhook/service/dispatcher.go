package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	webhookdomain "github.com/smallbiznis/talentgate/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DispatcherParams struct {
	fx.In

	Log    *zap.Logger
	Routes []webhookdomain.Route `group:"webhook_routes"`
}

// Dispatcher routes events by type. Unknown types are not errors.
type Dispatcher struct {
	log      *zap.Logger
	mu       sync.RWMutex
	handlers map[string]webhookdomain.Handler
}

func NewDispatcher(p DispatcherParams) (*Dispatcher, error) {
	d := &Dispatcher{
		log:      p.Log.Named("webhook.dispatcher"),
		handlers: map[string]webhookdomain.Handler{},
	}
	for _, route := range p.Routes {
		for _, eventType := range route.EventTypes {
			if err := d.Register(eventType, route.Handler); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

func (d *Dispatcher) Register(eventType string, handler webhookdomain.Handler) error {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" || handler == nil {
		return fmt.Errorf("webhook route requires event type and handler")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[eventType]; exists {
		return fmt.Errorf("webhook handler already registered for %s", eventType)
	}
	d.handlers[eventType] = handler
	return nil
}

// Dispatch reports handled=false for event types without a handler.
func (d *Dispatcher) Dispatch(ctx context.Context, tx *gorm.DB, event *paymentdomain.Event) (bool, error) {
	d.mu.RLock()
	handler, ok := d.handlers[event.Type]
	d.mu.RUnlock()
	if !ok {
		d.log.Debug("ignoring unrouted event", zap.String("event_id", event.ID), zap.String("event_type", event.Type))
		return false, nil
	}
	if err := handler.Handle(ctx, tx, event); err != nil {
		return true, err
	}
	return true, nil
}
