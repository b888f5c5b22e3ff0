package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"openpay/internal/domain/payroll"
	"openpay/internal/platform/eventbus"
	"openpay/internal/requestctx"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorUser  string
}

type StoreAPI interface {
	Insert(ctx context.Context, evt Event) error
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error)
}

type Service struct {
	Store StoreAPI
	Log   *logrus.Logger
}

func New(store StoreAPI, log *logrus.Logger) *Service {
	return &Service{Store: store, Log: log}
}

// Attach subscribes the service to entity changes published on bus.
func (s *Service) Attach(bus eventbus.EventBus) {
	bus.Subscribe(s.HandleEntityChanged)
}

// HandleEntityChanged records one audit event for a payroll write, attributed
// to the actor, request and client address carried by ctx.
func (s *Service) HandleEntityChanged(ctx context.Context, change *payroll.EntityChanged) error {
	evt := Event{
		Action:     string(change.Action),
		EntityType: string(change.Entity),
		EntityID:   change.ID,
		RequestID:  requestctx.GetRequestID(ctx),
		IP:         requestctx.GetClientIP(ctx),
		CreatedAt:  change.At,
	}
	if actor, ok := requestctx.GetActor(ctx); ok {
		evt.ActorID = actor.UserID
	}
	var err error
	if evt.Before, err = marshalState(change.Before); err != nil {
		return err
	}
	if evt.After, err = marshalState(change.After); err != nil {
		return err
	}
	if err := s.Store.Insert(ctx, evt); err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, int, error) {
	total, err := s.Store.Count(ctx, filter)
	if err != nil {
		s.Log.WithError(err).Warn("audit count failed")
	}
	events, err := s.Store.List(ctx, filter, includeDetails, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func marshalState(state any) (json.RawMessage, error) {
	if state == nil {
		return nil, nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return payload, nil
}
