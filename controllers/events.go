package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/meinhoongagan/tutor-sessions/middleware"
	"github.com/meinhoongagan/tutor-sessions/services/billing"
	"github.com/meinhoongagan/tutor-sessions/services/negotiation"
	"github.com/meinhoongagan/tutor-sessions/store"
)

const (
	eventBuffer    = 64
	heartbeatEvery = 15 * time.Second
)

// EventsController streams record changes to both parties as server-sent
// events so each client re-renders from the canonical record.
type EventsController struct {
	feed        store.Subscriber
	negotiation *negotiation.Service
	billing     *billing.Service
}

func NewEventsController(feed store.Subscriber, n *negotiation.Service, b *billing.Service) *EventsController {
	return &EventsController{feed: feed, negotiation: n, billing: b}
}

// AppointmentEvents godoc
// @Summary Stream changes of an appointment
// @Tags appointments
// @Produce text/event-stream
// @Param id path int true "Appointment ID"
// @Router /appointments/{id}/events [get]
func (h *EventsController) AppointmentEvents(c *fiber.Ctx) error {
	id, e := paramID(c)
	if e != nil {
		return badRequest(c, e)
	}
	actor := middleware.Actor(c)
	a, err := h.negotiation.Get(c.UserContext(), id, actor)
	if err != nil {
		return fail(c, "Appointment not found", err)
	}
	filter := store.Filter{Entity: store.EntityAppointment, ID: id}
	return h.stream(c, filter, a.Redacted(actor), func(ch store.Change) interface{} {
		return ch.Appointment.Redacted(actor)
	})
}

// ContractEvents godoc
// @Summary Stream changes of a contract
// @Tags contracts
// @Produce text/event-stream
// @Param id path int true "Contract ID"
// @Router /contracts/{id}/events [get]
func (h *EventsController) ContractEvents(c *fiber.Ctx) error {
	id, e := paramID(c)
	if e != nil {
		return badRequest(c, e)
	}
	ct, err := h.billing.Get(c.UserContext(), id, middleware.Actor(c))
	if err != nil {
		return fail(c, "Contract not found", err)
	}
	filter := store.Filter{Entity: store.EntityContract, ID: id}
	return h.stream(c, filter, ct, func(ch store.Change) interface{} {
		return ch.Contract
	})
}

func (h *EventsController) stream(c *fiber.Ctx, filter store.Filter, snapshot interface{}, project func(store.Change) interface{}) error {
	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan store.Change, eventBuffer)
	unsubscribe, err := h.feed.Subscribe(ctx, filter, func(ch store.Change) {
		select {
		case changes <- ch:
		default:
			// a client this far behind reconnects and starts from a snapshot
			log.Warnf("event stream for %s %d is lagging, closing", filter.Entity, filter.ID)
			cancel()
		}
	})
	if err != nil {
		cancel()
		return fail(c, "Failed to subscribe", err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	clientID := uuid.NewString()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer unsubscribe()
		log.Debugf("event stream %s opened for %s %d", clientID, filter.Entity, filter.ID)

		if err := writeEvent(w, "snapshot", snapshot); err != nil {
			return
		}
		heartbeat := time.NewTicker(heartbeatEvery)
		defer heartbeat.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ch := <-changes:
				if err := writeEvent(w, "change", project(ch)); err != nil {
					log.Debugf("event stream %s closed: %v", clientID, err)
					return
				}
			case <-heartbeat.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeEvent(w *bufio.Writer, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
