package deliver

import (
	"fmt"

	"go.uber.org/zap"

	"minim/metrics"
	"minim/models"
	"minim/presence"
)

// History is the slice of the message store the router needs.
type History interface {
	AppendMessage(sender, receiver, text string) (models.Message, error)
}

// Presence is the slice of the registry the router needs.
type Presence interface {
	SessionsFor(username string) []presence.Session
}

// Router is the single authoritative send path: persist first, then fan out
// to the live sessions of both parties. A message is never delivered without
// a durable record; live delivery itself is best-effort.
type Router struct {
	history   History
	presence  Presence
	log       *zap.Logger
	collector *metrics.Collector
}

func NewRouter(history History, registry Presence, log *zap.Logger, collector *metrics.Collector) *Router {
	return &Router{
		history:   history,
		presence:  registry,
		log:       log,
		collector: collector,
	}
}

// Route persists the message and pushes it to every live session of the
// receiver and of the sender (self-echo, so all of the sender's open tabs
// see the outgoing message). If persistence fails nothing is delivered and
// the error is returned; per-session push failures are dropped silently.
func (r *Router) Route(sender, receiver, text string) error {
	msg, err := r.history.AppendMessage(sender, receiver, text)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	r.collector.MessagesRouted.Inc()

	targets := r.presence.SessionsFor(receiver)
	if sender != receiver {
		targets = append(targets, r.presence.SessionsFor(sender)...)
	}

	for _, s := range targets {
		if err := s.Push(msg); err != nil {
			r.collector.DeliveryDrops.Inc()
			r.log.Debug("dropping unreachable session",
				zap.String("session", s.ID()),
				zap.Error(err))
			continue
		}
		r.collector.Deliveries.Inc()
	}

	return nil
}
