package notification

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/facewatch/internal/logger"
)

const (
	// DefaultToastDuration is how long a toast stays active when it sets no duration.
	DefaultToastDuration = 5 * time.Second

	// DefaultChannelBufferSize is the per-subscriber queue length.
	DefaultChannelBufferSize = 16
)

type subscriber struct {
	ch     chan *Toast
	ctx    context.Context
	cancel context.CancelFunc
}

// Center keeps active toasts until they expire and fans them out to subscribers.
type Center struct {
	active *cache.Cache
	log    logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	subscribers []*subscriber
}

// NewCenter creates an empty notification center.
func NewCenter() *Center {
	ctx, cancel := context.WithCancel(context.Background())
	return &Center{
		// no janitor goroutine, expired entries are purged on Push
		active: cache.New(DefaultToastDuration, 0),
		log:    GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Push stores the toast and delivers it to every subscriber.
// A subscriber whose queue is full misses the toast.
func (c *Center) Push(t *Toast) *Toast {
	c.active.DeleteExpired()

	ttl := DefaultToastDuration
	if t.Duration > 0 {
		ttl = time.Duration(t.Duration) * time.Millisecond
	}
	c.active.Set(t.ID, t, ttl)

	c.log.Debug("toast",
		logger.String("type", string(t.Type)),
		logger.String("message", t.Message),
		logger.String("component", t.Component))

	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.subscribers[:0]
	for _, sub := range c.subscribers {
		if sub.ctx.Err() != nil {
			continue
		}
		live = append(live, sub)
		clone := *t
		select {
		case sub.ch <- &clone:
		default:
			c.log.Debug("toast channel full, skipping subscriber")
		}
	}
	c.subscribers = live
	return t
}

// Success pushes a success toast.
func (c *Center) Success(message, component string) *Toast {
	return c.Push(NewToast(message, ToastTypeSuccess).WithComponent(component))
}

// Error pushes an error toast.
func (c *Center) Error(message, component string) *Toast {
	return c.Push(NewToast(message, ToastTypeError).WithComponent(component))
}

// Active returns the unexpired toasts, oldest first.
func (c *Center) Active() []*Toast {
	items := c.active.Items()
	toasts := make([]*Toast, 0, len(items))
	for _, item := range items {
		if t, ok := item.Object.(*Toast); ok {
			toasts = append(toasts, t)
		}
	}
	slices.SortFunc(toasts, func(a, b *Toast) int { return a.Timestamp.Compare(b.Timestamp) })
	return toasts
}

// Subscribe returns a channel receiving every subsequent toast and a context
// that is cancelled when the subscription ends. The channel is never closed.
func (c *Center) Subscribe() (<-chan *Toast, context.Context) {
	ctx, cancel := context.WithCancel(c.ctx)
	sub := &subscriber{
		ch:     make(chan *Toast, DefaultChannelBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	c.mu.Lock()
	c.subscribers = append(c.subscribers, sub)
	c.mu.Unlock()
	return sub.ch, ctx
}

// Unsubscribe ends the subscription for ch.
func (c *Center) Unsubscribe(ch <-chan *Toast) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, sub := range c.subscribers {
		if sub.ch == ch {
			sub.cancel()
			c.subscribers = slices.Delete(c.subscribers, i, i+1)
			return
		}
	}
}

// Forward writes every toast to w until ctx is done or the center is closed.
func (c *Center) Forward(ctx context.Context, w io.Writer) error {
	ch, subCtx := c.Subscribe()
	defer c.Unsubscribe(ch)

	for {
		select {
		case t := <-ch:
			if _, err := fmt.Fprintln(w, t.String()); err != nil {
				return err
			}
		case <-subCtx.Done():
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// Close cancels all subscriptions.
func (c *Center) Close() {
	c.cancel()
	c.mu.Lock()
	c.subscribers = nil
	c.mu.Unlock()
}
