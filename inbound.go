package mcphost

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PendingSamplingRequest is a server-initiated sampling request parked in the
// queue until a person (or a policy acting for one) approves or rejects it.
type PendingSamplingRequest struct {
	// ID correlates the resolution with the server's request.
	ID string
	// ConnectionID names the connection the request arrived on.
	ConnectionID string
	Params       SamplingParams
	CreatedAt    time.Time
}

// PendingElicitation is a server-initiated elicitation request parked in the
// queue until a person supplies a verdict and, on accept, the requested
// content.
type PendingElicitation struct {
	ID           string
	ConnectionID string
	Params       ElicitParams
	CreatedAt    time.Time
}

type inboundKind int

const (
	kindSampling inboundKind = iota
	kindElicitation
)

type inboundItem struct {
	kind      inboundKind
	id        string
	conn      *Conn
	createdAt time.Time
	sampling  SamplingParams
	elicit    ElicitParams
	timer     *time.Timer
}

// inboundRouter queues server-initiated sampling and elicitation requests
// until they are resolved. Each queue is FIFO in arrival order; when the
// router is shared across a host's connections, arrival order interleaves the
// servers. Every item is resolved exactly once: by an explicit Respond call,
// by a disconnect of its connection, by the server withdrawing the request, or
// by the optional TTL expiring. A second resolution attempt for the same id
// fails with ErrAlreadyResolved and sends nothing.
type inboundRouter struct {
	logger *slog.Logger
	ttl    time.Duration

	mu           sync.Mutex
	sampling     []*inboundItem
	elicitations []*inboundItem
}

func newInboundRouter(logger *slog.Logger) *inboundRouter {
	return &inboundRouter{logger: logger}
}

func (r *inboundRouter) enqueueSampling(c *Conn, id string, params SamplingParams) {
	item := &inboundItem{
		kind:      kindSampling,
		id:        id,
		conn:      c,
		createdAt: time.Now(),
		sampling:  params,
	}
	r.mu.Lock()
	r.sampling = append(r.sampling, item)
	r.armTTL(item)
	r.mu.Unlock()
}

func (r *inboundRouter) enqueueElicitation(c *Conn, id string, params ElicitParams) {
	item := &inboundItem{
		kind:      kindElicitation,
		id:        id,
		conn:      c,
		createdAt: time.Now(),
		elicit:    params,
	}
	r.mu.Lock()
	r.elicitations = append(r.elicitations, item)
	r.armTTL(item)
	r.mu.Unlock()
}

// armTTL must be called with r.mu held.
func (r *inboundRouter) armTTL(item *inboundItem) {
	if r.ttl <= 0 {
		return
	}
	item.timer = time.AfterFunc(r.ttl, func() {
		r.expire(item)
	})
}

// take removes and returns the queued item with the given id, searching both
// queues. Removal is the single point past which an item counts as resolved.
func (r *inboundRouter) take(kind inboundKind, id string) (*inboundItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue := &r.sampling
	if kind == kindElicitation {
		queue = &r.elicitations
	}
	for i, item := range *queue {
		if item.id == id {
			*queue = append((*queue)[:i], (*queue)[i+1:]...)
			if item.timer != nil {
				item.timer.Stop()
			}
			return item, true
		}
	}
	return nil, false
}

// respondToSampling resolves the queued sampling request with the given id.
// Approval forwards the supplied completion to the server; rejection answers
// with the sampling-rejected error. Either way the item leaves the queue
// first, so a racing second resolution observes ErrAlreadyResolved rather
// than sending a duplicate response.
func (r *inboundRouter) respondToSampling(ctx context.Context, id string, approved bool, result *SamplingResult) error {
	item, ok := r.take(kindSampling, id)
	if !ok {
		return fmt.Errorf("sampling request %s: %w", id, ErrAlreadyResolved)
	}

	if !approved || result == nil {
		return item.conn.sendError(ctx, MustString(item.id), JSONRPCError{
			Code:    jsonRPCSamplingRejectedCode,
			Message: errMsgSamplingRejected,
		})
	}
	return item.conn.sendResult(ctx, MustString(item.id), result)
}

// respondToElicitation resolves the queued elicitation request with the given
// id. The action must be one of the three protocol verdicts; content travels
// to the server only on accept.
func (r *inboundRouter) respondToElicitation(ctx context.Context, id string, action ElicitAction, content map[string]any) error {
	switch action {
	case ElicitActionAccept, ElicitActionDecline, ElicitActionCancel:
	default:
		return fmt.Errorf("invalid elicitation action %q", action)
	}

	item, ok := r.take(kindElicitation, id)
	if !ok {
		return fmt.Errorf("elicitation request %s: %w", id, ErrAlreadyResolved)
	}

	result := ElicitResult{Action: action}
	if action == ElicitActionAccept {
		result.Content = content
	}
	return item.conn.sendResult(ctx, MustString(item.id), result)
}

// expire resolves a TTL-elapsed item with the cancellation verdict on its
// still-live connection. An item already resolved by then is left alone.
func (r *inboundRouter) expire(item *inboundItem) {
	taken, ok := r.take(item.kind, item.id)
	if !ok || taken != item {
		return
	}

	r.logger.Info("auto-cancelling expired inbound request",
		"server", item.conn.id, "id", item.id)

	ctx, cancel := context.WithTimeout(context.Background(), item.conn.writeTimeout)
	defer cancel()

	var err error
	switch item.kind {
	case kindSampling:
		err = item.conn.sendError(ctx, MustString(item.id), JSONRPCError{
			Code:    jsonRPCSamplingRejectedCode,
			Message: errMsgSamplingRejected,
		})
	case kindElicitation:
		err = item.conn.sendResult(ctx, MustString(item.id), ElicitResult{Action: ElicitActionCancel})
	}
	if err != nil {
		r.logger.Error("failed to resolve expired inbound request",
			"server", item.conn.id, "id", item.id, "err", err)
	}
}

// withdraw drops the queued item the server cancelled itself. The server has
// already moved on, so no response is sent.
func (r *inboundRouter) withdraw(connID, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, queue := range []*[]*inboundItem{&r.sampling, &r.elicitations} {
		for i, item := range *queue {
			if item.conn.id == connID && item.id == id {
				if item.timer != nil {
					item.timer.Stop()
				}
				*queue = append((*queue)[:i], (*queue)[i+1:]...)
				return
			}
		}
	}
}

// cancelConn resolves every queued item owned by the given connection locally,
// without sending anything: the transport behind them is gone.
func (r *inboundRouter) cancelConn(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for _, queue := range []*[]*inboundItem{&r.sampling, &r.elicitations} {
		kept := (*queue)[:0]
		for _, item := range *queue {
			if item.conn.id == connID {
				if item.timer != nil {
					item.timer.Stop()
				}
				dropped++
				continue
			}
			kept = append(kept, item)
		}
		*queue = kept
	}
	if dropped > 0 {
		r.logger.Info("cancelled queued inbound requests on disconnect",
			"server", connID, "count", dropped)
	}
}

// pendingSampling snapshots the sampling queue in arrival order. An empty
// connID matches every connection.
func (r *inboundRouter) pendingSampling(connID string) []PendingSamplingRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	reqs := make([]PendingSamplingRequest, 0, len(r.sampling))
	for _, item := range r.sampling {
		if connID != "" && item.conn.id != connID {
			continue
		}
		reqs = append(reqs, PendingSamplingRequest{
			ID:           item.id,
			ConnectionID: item.conn.id,
			Params:       item.sampling,
			CreatedAt:    item.createdAt,
		})
	}
	return reqs
}

// pendingElicitations snapshots the elicitation queue in arrival order. An
// empty connID matches every connection.
func (r *inboundRouter) pendingElicitations(connID string) []PendingElicitation {
	r.mu.Lock()
	defer r.mu.Unlock()

	reqs := make([]PendingElicitation, 0, len(r.elicitations))
	for _, item := range r.elicitations {
		if connID != "" && item.conn.id != connID {
			continue
		}
		reqs = append(reqs, PendingElicitation{
			ID:           item.id,
			ConnectionID: item.conn.id,
			Params:       item.elicit,
			CreatedAt:    item.createdAt,
		})
	}
	return reqs
}
