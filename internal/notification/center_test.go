package notification

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToast(t *testing.T) {
	t.Parallel()

	toast := NewToast(MsgModelLoaded, ToastTypeSuccess).WithComponent("detector").WithDuration(3000)
	assert.NotEmpty(t, toast.ID)
	assert.Equal(t, "Face detection model loaded successfully!", toast.Message)
	assert.Equal(t, "detector", toast.Component)
	assert.Equal(t, 3000, toast.Duration)
	assert.Equal(t, "[success] Face detection model loaded successfully!", toast.String())

	other := NewToast(MsgModelLoaded, ToastTypeSuccess)
	assert.NotEqual(t, toast.ID, other.ID)
}

func TestMsgFaceSaved(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Face saved for Alice", MsgFaceSaved("Alice"))
}

func TestCenter_PushAndActive(t *testing.T) {
	t.Parallel()

	c := NewCenter()
	defer c.Close()

	first := c.Success(MsgCameraAdded, "cameras")
	second := c.Error(MsgInvalidSave, "gallery")
	second.Timestamp = first.Timestamp.Add(time.Millisecond)

	active := c.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, second.ID, active[1].ID)
}

func TestCenter_ToastExpires(t *testing.T) {
	t.Parallel()

	c := NewCenter()
	defer c.Close()

	c.Push(NewToast("short", ToastTypeInfo).WithDuration(20))
	require.Len(t, c.Active(), 1)

	assert.Eventually(t, func() bool { return len(c.Active()) == 0 },
		time.Second, 10*time.Millisecond)
}

func TestCenter_SubscribeReceivesCopies(t *testing.T) {
	t.Parallel()

	c := NewCenter()
	defer c.Close()

	ch, _ := c.Subscribe()
	pushed := c.Success("hello", "test")

	select {
	case got := <-ch:
		assert.Equal(t, pushed.ID, got.ID)
		got.Message = "changed"
		assert.Equal(t, "hello", pushed.Message)
	case <-time.After(time.Second):
		t.Fatal("toast not delivered")
	}
}

func TestCenter_FullSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	c := NewCenter()
	defer c.Close()

	ch, _ := c.Subscribe()
	for i := 0; i < DefaultChannelBufferSize+5; i++ {
		c.Push(NewToast("burst", ToastTypeInfo))
	}
	assert.Len(t, ch, DefaultChannelBufferSize)
}

func TestCenter_Unsubscribe(t *testing.T) {
	t.Parallel()

	c := NewCenter()
	defer c.Close()

	ch, ctx := c.Subscribe()
	c.Unsubscribe(ch)
	require.Error(t, ctx.Err())

	c.Push(NewToast("after", ToastTypeInfo))
	assert.Empty(t, ch)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCenter_Forward(t *testing.T) {
	t.Parallel()

	c := NewCenter()
	var out syncBuffer

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Forward(ctx, &out) }()

	// wait until the forwarder has subscribed
	require.Eventually(t, func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return len(c.subscribers) == 1
	}, time.Second, 5*time.Millisecond)

	c.Success(MsgFaceSaved("Bob"), "gallery")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "[success] Face saved for Bob")
	}, time.Second, 5*time.Millisecond)

	c.Close()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Forward did not return after Close")
	}
}
