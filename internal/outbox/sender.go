package outbox

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kingchat/kingchat/internal/bus"
	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/logging"
	"github.com/kingchat/kingchat/internal/metrics"
)

// Event kinds published when a mutation settles.
const (
	KindSendAck    = "message.send_ack"
	KindSendFailed = "message.send_failed"
	KindEdited     = "message.edited"
	KindDeleted    = "message.deleted"
	KindForwarded  = "message.forwarded"
)

// SendAck is the payload of KindSendAck.
type SendAck struct {
	ConversationID string
	TempID         string
	ServerMsgID    string
}

// SendFailure is the payload of KindSendFailed.
type SendFailure struct {
	ConversationID string
	TempID         string
	Err            error
}

// Forwarded is the payload of KindForwarded.
type Forwarded struct {
	MessageID string
	Result    chat.ForwardResult
}

// Sender applies message mutations to the Store optimistically, issues them
// to the backend on a goroutine and settles or rolls back on the response.
type Sender struct {
	store   *chat.Store
	backend chat.Backend
	bus     *bus.Bus
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	base    context.Context
	cancel  context.CancelFunc
	settled map[string]struct{}
	wg      sync.WaitGroup
}

// NewSender creates a reconciler. timeout bounds every backend call; zero
// means no bound.
func NewSender(store *chat.Store, backend chat.Backend, b *bus.Bus, logger *zap.Logger, timeout time.Duration) *Sender {
	return &Sender{
		store:   store,
		backend: backend,
		bus:     b,
		logger:  logging.OrNop(logger),
		timeout: timeout,
		base:    context.Background(),
		settled: make(map[string]struct{}),
	}
}

// Start sets the context in-flight requests derive from.
func (s *Sender) Start(ctx context.Context) {
	s.mu.Lock()
	s.base, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
}

// Stop cancels in-flight requests and waits for them to settle.
func (s *Sender) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Wait blocks until every issued request has settled.
func (s *Sender) Wait() {
	s.wg.Wait()
}

// SetBackend swaps the facade used for new requests, e.g. after login.
func (s *Sender) SetBackend(backend chat.Backend) {
	s.mu.Lock()
	s.backend = backend
	s.mu.Unlock()
}

// spawn runs fn on a goroutine with a request context.
func (s *Sender) spawn(fn func(ctx context.Context, backend chat.Backend)) {
	s.mu.Lock()
	base, backend := s.base, s.backend
	s.mu.Unlock()

	s.wg.Add(1)
	metrics.InFlight.Inc()
	go func() {
		defer s.wg.Done()
		defer metrics.InFlight.Dec()
		ctx := base
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(base, s.timeout)
			defer cancel()
		}
		fn(ctx, backend)
	}()
}

// settle returns true the first time it is called for id.
func (s *Sender) settle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.settled[id]; done {
		return false
	}
	s.settled[id] = struct{}{}
	return true
}

// prune forgets settled ids the Store no longer holds: confirmed sends carry
// their server id and discarded ones are gone.
func (s *Sender) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.settled {
		if _, ok := s.store.Message(id); !ok {
			delete(s.settled, id)
		}
	}
}

// Reset forgets every settled id. Used on logout together with Store.Reset.
func (s *Sender) Reset() {
	s.mu.Lock()
	clear(s.settled)
	s.mu.Unlock()
}

func (s *Sender) notifyError(action string, err error) {
	s.bus.Emit(bus.KindNotifyError, bus.Notice{Level: "error", Message: chat.Describe(action, err)})
}

func (s *Sender) notifyInfo(msg string) {
	s.bus.Emit(bus.KindNotifyInfo, bus.Notice{Level: "info", Message: msg})
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(chat.Classify(err))
}

// Send appends draft to convID as a pending message and returns it without
// waiting for the network. The message is later confirmed or marked failed.
func (s *Sender) Send(ctx context.Context, convID string, draft chat.Draft) (chat.Message, error) {
	m, err := s.store.AppendLocalMessage(convID, draft)
	if err != nil {
		metrics.RecordReconcile("send", metrics.OutcomeRejected)
		return chat.Message{}, err
	}
	s.logger.Debug("message queued", zap.String("temp_id", m.ID),
		zap.String("client_msg_id", m.ClientMsgID), zap.String("conversation", convID))

	draft.ClientMsgID = m.ClientMsgID
	s.spawn(func(ctx context.Context, backend chat.Backend) {
		start := time.Now()
		confirmed, err := backend.SendMessage(ctx, convID, draft)
		metrics.RecordRemote("send", outcome(err), time.Since(start).Seconds())
		if !s.settle(m.ID) {
			s.logger.Warn("duplicate send response dropped", zap.String("temp_id", m.ID))
			return
		}
		if err != nil {
			s.failSend(convID, m.ID, err)
			return
		}
		s.confirmSend(convID, m.ID, confirmed)
	})
	return m, nil
}

func (s *Sender) confirmSend(convID, tempID string, confirmed chat.Message) {
	s.store.ConfirmMessage(tempID, confirmed)
	s.prune()
	s.store.MarkConversationMoved(convID)
	metrics.RecordReconcile("send", metrics.OutcomeConfirmed)
	s.logger.Info("message sent", zap.String("temp_id", tempID), zap.String("server_msg_id", confirmed.ID))
	s.bus.Emit(KindSendAck, SendAck{ConversationID: convID, TempID: tempID, ServerMsgID: confirmed.ID})
}

func (s *Sender) failSend(convID, tempID string, err error) {
	s.store.FailMessage(tempID)
	metrics.RecordReconcile("send", metrics.OutcomeFailed)
	s.logger.Error("failed to send message", zap.Error(err), zap.String("temp_id", tempID))
	s.bus.Emit(KindSendFailed, SendFailure{ConversationID: convID, TempID: tempID, Err: err})
	s.notifyError("send", err)
}

// Retry re-submits a failed message as a new message. The failed one stays.
func (s *Sender) Retry(ctx context.Context, failedID string) (chat.Message, error) {
	m, ok := s.store.Message(failedID)
	if !ok {
		return chat.Message{}, fmt.Errorf("message %s: %w", failedID, chat.ErrNotFound)
	}
	if m.Status != chat.Failed {
		return chat.Message{}, fmt.Errorf("message %s is %s: %w", failedID, m.Status, chat.ErrValidation)
	}
	return s.Send(ctx, m.ConversationID, chat.Draft{Text: m.Text, Type: m.Type, ReplyTo: m.ReplyTo})
}

// Edit applies an edit optimistically. Only the sender may edit; such errors
// are returned before any network call. A server failure falls back to the
// newest edit still in flight or the last confirmed text.
func (s *Sender) Edit(ctx context.Context, id, text string) error {
	ticket, err := s.store.BeginEdit(id, text)
	if err != nil {
		metrics.RecordReconcile("edit", metrics.OutcomeRejected)
		return err
	}
	s.spawn(func(ctx context.Context, backend chat.Backend) {
		start := time.Now()
		confirmed, err := backend.EditMessage(ctx, id, text)
		metrics.RecordRemote("edit", outcome(err), time.Since(start).Seconds())
		if err != nil {
			s.store.RevertEdit(ticket)
			metrics.RecordReconcile("edit", metrics.OutcomeRolledBack)
			s.logger.Error("failed to edit message", zap.Error(err), zap.String("msg_id", id))
			s.notifyError("edit", err)
			return
		}
		s.store.CommitEdit(ticket, confirmed)
		metrics.RecordReconcile("edit", metrics.OutcomeConfirmed)
		s.bus.Emit(KindEdited, id)
	})
	return nil
}

// Delete hides a message optimistically. A server failure restores it at
// its original position.
func (s *Sender) Delete(ctx context.Context, id string) error {
	if _, err := s.store.BeginDelete(id); err != nil {
		metrics.RecordReconcile("delete", metrics.OutcomeRejected)
		return err
	}
	s.spawn(func(ctx context.Context, backend chat.Backend) {
		start := time.Now()
		err := backend.DeleteMessage(ctx, id)
		metrics.RecordRemote("delete", outcome(err), time.Since(start).Seconds())
		if err != nil {
			s.store.RevertDelete(id)
			metrics.RecordReconcile("delete", metrics.OutcomeRolledBack)
			s.logger.Error("failed to delete message", zap.Error(err), zap.String("msg_id", id))
			s.notifyError("delete", err)
			return
		}
		s.store.CommitDelete(id)
		metrics.RecordReconcile("delete", metrics.OutcomeConfirmed)
		s.bus.Emit(KindDeleted, id)
	})
	return nil
}

// Discard drops a failed message that never reached the server.
func (s *Sender) Discard(id string) error {
	if !s.store.DiscardFailed(id) {
		return fmt.Errorf("message %s is not a failed message: %w", id, chat.ErrValidation)
	}
	s.prune()
	return nil
}

// Forward fans a message out to targets. Conversations that received it move
// to the front with the first target on top; a partial failure produces one
// notification with the counts.
func (s *Sender) Forward(ctx context.Context, id string, targets []string, caption string) error {
	targets = dedupe(targets)
	if len(targets) == 0 {
		return fmt.Errorf("%w: select at least one conversation", chat.ErrValidation)
	}
	m, ok := s.store.Message(id)
	if !ok || m.Temporary() || m.Status == chat.Deleted {
		return fmt.Errorf("message %s: %w", id, chat.ErrNotFound)
	}
	s.spawn(func(ctx context.Context, backend chat.Backend) {
		start := time.Now()
		res, err := backend.ForwardMessage(ctx, id, targets, caption)
		metrics.RecordRemote("forward", outcome(err), time.Since(start).Seconds())
		if err != nil {
			metrics.RecordReconcile("forward", metrics.OutcomeFailed)
			s.logger.Error("failed to forward message", zap.Error(err), zap.String("msg_id", id))
			s.notifyError("forward", err)
			return
		}
		for i := len(targets) - 1; i >= 0; i-- {
			if slices.Contains(res.Sent, targets[i]) {
				s.store.MarkConversationMoved(targets[i])
			}
		}
		s.bus.Emit(KindForwarded, Forwarded{MessageID: id, Result: res})
		if res.FailedCount() > 0 {
			metrics.RecordReconcile("forward", metrics.OutcomePartial)
			s.bus.Emit(bus.KindNotifyError, bus.Notice{
				Level:   "warn",
				Message: fmt.Sprintf("forwarded to %d of %d conversations (%d failed)", res.SentCount(), len(targets), res.FailedCount()),
			})
			return
		}
		metrics.RecordReconcile("forward", metrics.OutcomeConfirmed)
		s.notifyInfo(fmt.Sprintf("forwarded to %d conversations", res.SentCount()))
	})
	return nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
