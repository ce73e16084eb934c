package relay

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultBroadcastConcurrency = 4

// ReplyAction is an inline button attached to an outgoing message.
type ReplyAction struct {
	Text    string
	Payload string
}

// Sender delivers a text message to a chat and returns the id of the sent message.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, action *ReplyAction) (int64, error)
}

// EnvelopeRecorder remembers which admin message carries which user's complaint.
type EnvelopeRecorder interface {
	EnvelopeAdd(adminID, messageID, userID int64) error
}

type Outcome int

const (
	OutcomeComplaint Outcome = iota
	OutcomeReplied
	OutcomeReplyFailed
	OutcomeNothingPending
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplaint:
		return "complaint"
	case OutcomeReplied:
		return "replied"
	case OutcomeReplyFailed:
		return "reply_failed"
	case OutcomeNothingPending:
		return "nothing_pending"
	}
	return "unknown"
}

// RouteResult describes what HandleText did with a message.
type RouteResult struct {
	Outcome Outcome
	// Target is the user an admin reply was addressed to.
	Target int64
	// Report is set for OutcomeComplaint.
	Report *BroadcastReport
	// Err is the delivery failure for OutcomeReplyFailed, or
	// ErrNoPendingReply for OutcomeNothingPending.
	Err error
}

type RouterOpts struct {
	Registry  *Registry
	Pending   *PendingTable
	Sender    Sender
	Envelopes EnvelopeRecorder
	Logger    *zap.Logger
	// BroadcastConcurrency bounds parallel envelope sends. Zero means DefaultBroadcastConcurrency.
	BroadcastConcurrency int
	// Status, when set, is appended to the admin /start notice.
	Status func() string
}

// Router dispatches inbound events between users and admins. It owns the
// admin registry and the pending-reply table; every handler goes through it.
type Router struct {
	registry    *Registry
	pending     *PendingTable
	sender      Sender
	envelopes   EnvelopeRecorder
	logger      *zap.Logger
	concurrency int
	status      func() string
}

func NewRouter(opts RouterOpts) *Router {
	r := &Router{
		registry:    opts.Registry,
		pending:     opts.Pending,
		sender:      opts.Sender,
		envelopes:   opts.Envelopes,
		logger:      opts.Logger,
		concurrency: opts.BroadcastConcurrency,
		status:      opts.Status,
	}
	if r.registry == nil {
		r.registry = NewRegistry()
	}
	if r.pending == nil {
		r.pending = NewPendingTable()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.concurrency <= 0 {
		r.concurrency = DefaultBroadcastConcurrency
	}
	return r
}

func (r *Router) IsAdmin(id int64) bool {
	return r.registry.IsAdmin(id)
}

func (r *Router) Admins() []int64 {
	return r.registry.List()
}

// IsReported reports whether err is a user-facing condition that a handler
// has already answered with a text message.
func IsReported(err error) bool {
	if errors.Is(err, ErrDeliveryFailure) {
		return false
	}
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrNoPendingReply)
}

func (r *Router) HandleStart(ctx context.Context, sender int64) error {
	if !r.registry.IsAdmin(sender) {
		return r.notify(ctx, sender, MsgStartUser)
	}
	text := MsgStartAdmin
	if r.status != nil {
		if s := r.status(); s != "" {
			text += "\n\n" + s
		}
	}
	return r.notify(ctx, sender, text)
}

// HandleAddAdmin runs /add_admin for requester. The returned error is either
// a reported condition (see IsReported) or a failure to answer the requester.
func (r *Router) HandleAddAdmin(ctx context.Context, requester int64, args []string) error {
	if !r.registry.IsAdmin(requester) {
		return r.reported(ctx, requester, MsgUnauthorized, ErrUnauthorized)
	}

	newID, err := ParseAdminID(args)
	if err != nil {
		return r.reported(ctx, requester, MsgAddAdminUsage, err)
	}

	switch err := r.registry.Add(requester, newID); {
	case errors.Is(err, ErrUnauthorized):
		return r.reported(ctx, requester, MsgUnauthorized, err)
	case errors.Is(err, ErrAlreadyExists):
		return r.reported(ctx, requester, MsgAlreadyAdmin, err)
	}

	r.logger.Info("admin added",
		zap.Int64("requester_id", requester),
		zap.Int64("admin_id", newID),
	)
	return r.notify(ctx, requester, MsgAdminAdded)
}

// HandleText routes a plain text message from sender.
func (r *Router) HandleText(ctx context.Context, sender int64, text string) (RouteResult, error) {
	if !r.registry.IsAdmin(sender) {
		return r.relayComplaint(ctx, sender, text)
	}

	target, ok := r.pending.Consume(sender)
	if !ok {
		res := RouteResult{Outcome: OutcomeNothingPending, Err: ErrNoPendingReply}
		return res, r.notify(ctx, sender, MsgNothingPending)
	}
	return r.ReplyTo(ctx, sender, target, text)
}

// HandleReplyAction records that invoker wants to answer the user encoded in payload.
func (r *Router) HandleReplyAction(ctx context.Context, invoker int64, payload string) error {
	if !r.registry.IsAdmin(invoker) {
		return r.reported(ctx, invoker, MsgUnauthorized, ErrUnauthorized)
	}

	target, err := ParseReplyPayload(payload)
	if err != nil {
		r.logger.Warn("rejected reply action",
			zap.Int64("admin_id", invoker),
			zap.String("payload", payload),
		)
		return r.reported(ctx, invoker, MsgInvalidReplyAction, err)
	}

	r.pending.Set(invoker, target)
	return r.notify(ctx, invoker, FormatReplyPrompt(target))
}

// ReplyTo forwards text from admin to target and tells the admin how it went.
// A failed delivery to target is reported inline and in RouteResult.Err; the
// returned error only covers failing to reach the admin.
func (r *Router) ReplyTo(ctx context.Context, admin, target int64, text string) (RouteResult, error) {
	if _, err := r.sender.SendText(ctx, target, FormatAdminReply(text), nil); err != nil {
		derr := &DeliveryError{Recipient: target, Err: err}
		r.logger.Warn("failed to deliver admin reply",
			zap.Int64("admin_id", admin),
			zap.Int64("user_id", target),
			zap.Error(err),
		)
		res := RouteResult{Outcome: OutcomeReplyFailed, Target: target, Err: derr}
		return res, r.notify(ctx, admin, FormatReplyFailed(target, err))
	}

	r.logger.Debug("admin reply delivered",
		zap.Int64("admin_id", admin),
		zap.Int64("user_id", target),
	)
	return RouteResult{Outcome: OutcomeReplied, Target: target}, r.notify(ctx, admin, FormatReplySent(target))
}

func (r *Router) relayComplaint(ctx context.Context, user int64, text string) (RouteResult, error) {
	ackErr := r.notify(ctx, user, MsgUserAck)
	if ackErr != nil {
		r.logger.Warn("failed to acknowledge user message",
			zap.Int64("user_id", user),
			zap.Error(ackErr),
		)
	}

	report := r.broadcast(ctx, user, text)
	if failed := report.Failed(); failed > 0 {
		r.logger.Warn("complaint partially delivered",
			zap.Int64("user_id", user),
			zap.Int("sent", report.Sent()),
			zap.Int("failed", failed),
		)
	}
	return RouteResult{Outcome: OutcomeComplaint, Report: report}, ackErr
}

func (r *Router) broadcast(ctx context.Context, user int64, text string) *BroadcastReport {
	var (
		admins   = r.registry.List()
		envelope = FormatEnvelope(user, text)
		action   = &ReplyAction{Text: ReplyButtonText, Payload: ReplyPayload(user)}
		report   = &BroadcastReport{Deliveries: make([]Delivery, len(admins))}
	)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, admin := range admins {
		g.Go(func() error {
			d := Delivery{Recipient: admin}
			msgID, err := r.sender.SendText(ctx, admin, envelope, action)
			if err != nil {
				d.Err = &DeliveryError{Recipient: admin, Err: err}
				r.logger.Error("failed to send message to admin",
					zap.Int64("admin_id", admin),
					zap.Int64("user_id", user),
					zap.Error(err),
				)
			} else {
				d.MessageID = msgID
				r.recordEnvelope(admin, msgID, user)
			}
			report.Deliveries[i] = d
			return nil
		})
	}
	_ = g.Wait()
	return report
}

func (r *Router) recordEnvelope(admin, msgID, user int64) {
	if r.envelopes == nil {
		return
	}
	if err := r.envelopes.EnvelopeAdd(admin, msgID, user); err != nil {
		r.logger.Error("failed to record envelope",
			zap.Int64("admin_id", admin),
			zap.Int64("message_id", msgID),
			zap.Error(err),
		)
	}
}

func (r *Router) notify(ctx context.Context, chatID int64, text string) error {
	if _, err := r.sender.SendText(ctx, chatID, text, nil); err != nil {
		return &DeliveryError{Recipient: chatID, Err: err}
	}
	return nil
}

// reported answers chatID with text and returns cause, unless the answer
// itself could not be delivered.
func (r *Router) reported(ctx context.Context, chatID int64, text string, cause error) error {
	if err := r.notify(ctx, chatID, text); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
