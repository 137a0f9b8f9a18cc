package bot

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kingchat/kingchat/internal/bus"
	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/logging"
	"github.com/kingchat/kingchat/internal/outbox"
)

// Source is the local data the responder reads and writes.
type Source interface {
	Conversation(ctx context.Context, id string) (chat.Conversation, error)
	Message(ctx context.Context, id string) (chat.Message, error)
	Counterparts(ctx context.Context, conversationID string) ([]chat.User, error)
	Deliver(ctx context.Context, conversationID string, from chat.User, text string) (chat.Message, error)
}

// Responder simulates the other side of offline conversations. After each
// confirmed send it waits for the reply delay, stores an answer from a
// counterpart and publishes it as a remote message.
type Responder struct {
	source Source
	bus    *bus.Bus
	logger *zap.Logger
	delay  time.Duration
	pick   func(n int) int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewResponder creates a responder replying after delay.
func NewResponder(source Source, b *bus.Bus, logger *zap.Logger, delay time.Duration) *Responder {
	return &Responder{
		source: source,
		bus:    b,
		logger: logging.OrNop(logger),
		delay:  delay,
		pick:   rand.Intn,
	}
}

// Start listens for send acknowledgements until ctx is done or Stop is called.
func (r *Responder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	acks, unsub := r.bus.Subscribe(outbox.KindSendAck, 64)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer unsub()
		for {
			select {
			case evt := <-acks:
				ack, ok := evt.Payload.(outbox.SendAck)
				if !ok {
					continue
				}
				r.wg.Add(1)
				go func() {
					defer r.wg.Done()
					r.respond(ctx, ack)
				}()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels pending replies and waits for the responder to exit.
func (r *Responder) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Responder) respond(ctx context.Context, ack outbox.SendAck) {
	conv, err := r.source.Conversation(ctx, ack.ConversationID)
	if err != nil {
		r.logger.Warn("bot: unknown conversation", zap.Error(err), zap.String("conversation", ack.ConversationID))
		return
	}
	sent, err := r.source.Message(ctx, ack.ServerMsgID)
	if err != nil {
		r.logger.Warn("bot: sent message not found", zap.Error(err), zap.String("msg_id", ack.ServerMsgID))
		return
	}
	text, ok := Reply(conv.Type, sent.Text, r.pick)
	if !ok {
		return
	}
	peers, err := r.source.Counterparts(ctx, ack.ConversationID)
	if err != nil || len(peers) == 0 {
		return
	}
	from := peers[r.pick(len(peers))]

	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return
	}

	m, err := r.source.Deliver(ctx, ack.ConversationID, from, text)
	if err != nil {
		r.logger.Error("bot: failed to deliver reply", zap.Error(err), zap.String("conversation", ack.ConversationID))
		return
	}
	r.logger.Debug("bot replied", zap.String("conversation", ack.ConversationID), zap.String("from", from.ID))
	r.bus.Emit(chat.EventRemoteMessage, m)
}
