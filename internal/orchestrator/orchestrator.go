// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator runs a single send: it appends the user message and
// an assistant placeholder, streams the reply into the placeholder, and names
// the conversation after its first exchange.
//
// A send is bound to the conversation that was active when it started. If
// that conversation is deleted mid-stream, the remaining updates and the
// rename become no-ops in the store and the send still completes normally.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/lumen/internal/decoder"
	"github.com/jeranaias/lumen/internal/locale"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/store"
	"github.com/jeranaias/lumen/internal/transport"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoActiveConversation is returned when there is nothing to send into.
	ErrNoActiveConversation = errors.New("no active conversation")

	// ErrSendInFlight is returned when another send is still streaming.
	ErrSendInFlight = errors.New("a send is already in flight")

	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// DefaultTitleTimeout bounds a background title request.
const DefaultTitleTimeout = 30 * time.Second

// DefaultCloseGrace is how long Close lets pending title requests finish
// before cancelling them.
const DefaultCloseGrace = 5 * time.Second

// =============================================================================
// RESULT
// =============================================================================

// Result describes a finished send.
type Result struct {
	ConversationID string
	UserMessageID  string
	ReplyID        string

	// Reply is the accumulated reply text, or the canonical error text when
	// the send failed.
	Reply string

	// Err is the transport or stream failure, nil on success.
	Err error

	// TitleRequested is true when a background title request was started.
	TitleRequested bool
}

// Failed reports whether the reply was replaced with the error text.
func (r Result) Failed() bool {
	return r.Err != nil
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator coordinates sends against one store and one transport.
//
// The Orchestrator is safe for concurrent use. Concurrent sends are rejected
// by the store's single-flight flag, not queued.
type Orchestrator struct {
	store     *store.Store
	transport transport.Transport

	cancelOnDelete bool
	titleTimeout   time.Duration
	closeGrace     time.Duration

	ctx    context.Context
	stop   context.CancelFunc
	titles sync.WaitGroup

	mu          sync.Mutex
	cancels     map[string]context.CancelFunc
	unsubscribe func()
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCancelOnDelete cancels a send's stream when its conversation is deleted.
func WithCancelOnDelete(enabled bool) Option {
	return func(o *Orchestrator) {
		o.cancelOnDelete = enabled
	}
}

// WithTitleTimeout overrides DefaultTitleTimeout.
func WithTitleTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.titleTimeout = d
	}
}

// WithCloseGrace overrides DefaultCloseGrace. Zero cancels pending title
// requests immediately on Close.
func WithCloseGrace(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.closeGrace = d
	}
}

// New creates an Orchestrator. Call Close to wait for background title
// requests and release the store listener.
func New(st *store.Store, tr transport.Transport, opts ...Option) *Orchestrator {
	ctx, stop := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:        st,
		transport:    tr,
		titleTimeout: DefaultTitleTimeout,
		closeGrace:   DefaultCloseGrace,
		ctx:          ctx,
		stop:         stop,
		cancels:      make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cancelOnDelete {
		o.unsubscribe = st.OnChange(o.handleChange)
	}
	return o
}

// Send sends text into the active conversation and blocks until the reply
// has finished streaming. The returned error covers preconditions only; a
// failed reply is reported in Result.Err and shown in the conversation as
// the canonical error text.
func (o *Orchestrator) Send(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyMessage
	}

	if !o.store.BeginSend() {
		return Result{}, ErrSendInFlight
	}
	// Read the conversation only once the slot is ours, so a send that just
	// finished is fully reflected in the history.
	conv, ok := o.store.Snapshot().Active()
	if !ok {
		o.store.EndSend()
		return Result{}, ErrNoActiveConversation
	}

	lang := o.store.Language()
	shouldName := !conv.HasUserMessage()

	user := model.NewUserMessage(text, lang)
	o.store.AppendMessage(conv.ID, user)
	placeholder := model.NewPlaceholder(lang)
	o.store.AppendMessage(conv.ID, placeholder)

	history := make([]model.Message, 0, len(conv.Messages)+1)
	history = append(history, conv.Messages...)
	history = append(history, user)

	res := Result{
		ConversationID: conv.ID,
		UserMessageID:  user.ID,
		ReplyID:        placeholder.ID,
	}

	logger := log.With().
		Str("conversation_id", conv.ID).
		Str("message_id", placeholder.ID).
		Logger()

	func() {
		defer o.store.EndSend()

		sendCtx, cancel := o.bind(ctx, conv.ID)
		defer o.unbind(conv.ID, cancel)

		start := time.Now()
		reply, fragments, err := o.stream(sendCtx, conv.ID, placeholder.ID, history, lang)
		if err != nil {
			res.Err = err
			res.Reply = locale.ErrorMessage(lang)
			o.store.UpdateMessageText(conv.ID, placeholder.ID, res.Reply)
			logger.Warn().Err(err).Int("fragments", fragments).Msg("send failed")
			return
		}
		res.Reply = reply
		logger.Debug().
			Int("fragments", fragments).
			Int("bytes", len(reply)).
			Dur("elapsed", time.Since(start)).
			Msg("send completed")
	}()

	if shouldName && res.Err == nil && res.Reply != "" {
		if _, exists := o.store.Conversation(conv.ID); exists {
			res.TitleRequested = true
			o.nameConversation(conv.ID, text, res.Reply, lang)
		}
	}
	return res, nil
}

// stream feeds decoded fragments into the placeholder. Each store update is
// applied before the next read is issued.
func (o *Orchestrator) stream(ctx context.Context, convID, msgID string, history []model.Message, lang model.Language) (string, int, error) {
	body, err := o.transport.SendTurn(ctx, history, lang)
	if err != nil {
		return "", 0, err
	}
	defer body.Close()

	var (
		acc       strings.Builder
		fragments int
	)
	for frag, err := range decoder.Fragments(ctx, body) {
		if err != nil {
			return acc.String(), fragments, err
		}
		fragments++
		acc.WriteString(frag)
		o.store.UpdateMessageText(convID, msgID, acc.String())
	}
	return acc.String(), fragments, nil
}

// nameConversation requests a title in the background. Failures are logged
// and otherwise ignored.
func (o *Orchestrator) nameConversation(convID, firstUser, firstReply string, lang model.Language) {
	o.titles.Add(1)
	go func() {
		defer o.titles.Done()

		ctx := o.ctx
		if o.titleTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.titleTimeout)
			defer cancel()
		}

		title, err := o.transport.GenerateTitle(ctx, firstUser, firstReply, lang)
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", convID).Msg("title generation failed")
			return
		}
		if title == "" {
			return
		}
		if o.store.RenameConversation(convID, title) {
			log.Debug().Str("conversation_id", convID).Str("title", title).Msg("conversation named")
		}
	}()
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Wait blocks until all background title requests have finished.
func (o *Orchestrator) Wait() {
	o.titles.Wait()
}

// Close gives outstanding title requests up to the close grace to finish,
// cancels the rest, waits for them and detaches from the store.
func (o *Orchestrator) Close() {
	done := make(chan struct{})
	go func() {
		o.titles.Wait()
		close(done)
	}()
	if o.closeGrace > 0 {
		timer := time.NewTimer(o.closeGrace)
		select {
		case <-done:
		case <-timer.C:
		}
		timer.Stop()
	}
	o.stop()
	<-done

	o.mu.Lock()
	unsubscribe := o.unsubscribe
	o.unsubscribe = nil
	o.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// =============================================================================
// CANCEL ON DELETE
// =============================================================================

func (o *Orchestrator) bind(ctx context.Context, convID string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	if o.cancelOnDelete {
		o.mu.Lock()
		o.cancels[convID] = cancel
		o.mu.Unlock()
	}
	return ctx, cancel
}

func (o *Orchestrator) unbind(convID string, cancel context.CancelFunc) {
	if o.cancelOnDelete {
		o.mu.Lock()
		delete(o.cancels, convID)
		o.mu.Unlock()
	}
	cancel()
}

func (o *Orchestrator) handleChange(c store.Change) {
	if c.Kind != store.ChangeDeleted {
		return
	}
	o.mu.Lock()
	cancel, ok := o.cancels[c.ConversationID]
	o.mu.Unlock()
	if ok {
		log.Debug().Str("conversation_id", c.ConversationID).Msg("cancelling send for deleted conversation")
		cancel()
	}
}
