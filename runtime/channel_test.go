package runtime

import (
	"chat-broadcast/domain"
	"chat-broadcast/mocks"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestChannel(bufferSize int) *ChatChannel {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewChatChannel(log, domain.SystemClock{}, bufferSize)
}

// receive reads n messages or fails after a second.
func receive(t *testing.T, sub *Subscription, n int) []domain.ChatMessage {
	t.Helper()
	var res []domain.ChatMessage
	for len(res) < n {
		select {
		case msg, ok := <-sub.Messages():
			require.True(t, ok, "stream closed after %d messages", len(res))
			res = append(res, msg)
		case <-time.After(time.Second):
			require.Failf(t, "timeout", "received %d of %d messages", len(res), n)
		}
	}
	return res
}

func requireNothingPending(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case msg := <-sub.Messages():
		require.Failf(t, "unexpected message", "%+v", msg)
	default:
	}
}

func texts(messages []domain.ChatMessage) []string {
	return lo.Map(messages, func(item domain.ChatMessage, _ int) string { return item.Text })
}

func TestChatChannel_Subscriber_Receives_In_Submission_Order(t *testing.T) {
	req := require.New(t)
	channel := newTestChannel(64)

	// Given a subscriber joined before the first submission
	sub := channel.Subscribe()
	defer sub.Close()

	// When distinct messages are submitted
	expected := []string{"one", "two", "three", "four", "five"}
	for _, text := range expected {
		channel.Submit(text, nil)
	}

	// Then every message is received in the exact submission order
	req.Equal(expected, texts(receive(t, sub, len(expected))))
	requireNothingPending(t, sub)
}

func TestChatChannel_Late_Subscriber_Gets_No_Backlog(t *testing.T) {
	req := require.New(t)
	channel := newTestChannel(64)
	early := channel.Subscribe()
	defer early.Close()

	// Given N messages were submitted
	channel.Submit("before-1", nil)
	channel.Submit("before-2", nil)

	// When a subscriber joins afterwards
	late := channel.Subscribe()
	defer late.Close()
	requireNothingPending(t, late)

	channel.Submit("after-1", nil)
	channel.Submit("after-2", nil)

	// Then it only sees what came after it joined
	req.Equal([]string{"after-1", "after-2"}, texts(receive(t, late, 2)))
	requireNothingPending(t, late)

	// And the early subscriber saw everything
	req.Equal([]string{"before-1", "before-2", "after-1", "after-2"}, texts(receive(t, early, 4)))
}

func TestChatChannel_Submit_Without_Identity_Is_Anonymous(t *testing.T) {
	req := require.New(t)
	channel := newTestChannel(8)
	sub := channel.Subscribe()
	defer sub.Close()

	before := time.Now().UTC()
	channel.Submit("hello", nil)
	after := time.Now().UTC()

	msg := receive(t, sub, 1)[0]
	req.Equal(domain.Anonymous, msg.UserName)
	req.Equal("hello", msg.Text)
	req.False(msg.Time.Before(before))
	req.False(msg.Time.After(after))
	req.NotEqual(uuid.Nil, msg.ID)
}

func TestChatChannel_Submit_With_Identity(t *testing.T) {
	req := require.New(t)
	channel := newTestChannel(8)
	sub := channel.Subscribe()
	defer sub.Close()

	accepted := channel.Submit("hi", lo.ToPtr("Dulan"))

	msg := receive(t, sub, 1)[0]
	req.Equal("Dulan", msg.UserName)
	req.Equal("hi", msg.Text)
	req.Equal(accepted, msg)
}

func TestChatChannel_Text_Is_Kept_Verbatim(t *testing.T) {
	req := require.New(t)
	channel := newTestChannel(8)
	sub := channel.Subscribe()
	defer sub.Close()

	// Given empty and unusual texts, nothing is validated nor rewritten
	inputs := []string{"", "   ", "<script>alert(1)</script>", string(make([]byte, 1<<16))}
	for _, text := range inputs {
		channel.Submit(text, nil)
	}
	req.Equal(inputs, texts(receive(t, sub, len(inputs))))
}

func TestChatChannel_Fanout_To_Concurrent_Subscribers(t *testing.T) {
	req := require.New(t)
	channel := newTestChannel(1024)
	sub1 := channel.Subscribe()
	defer sub1.Close()
	sub2 := channel.Subscribe()
	defer sub2.Close()

	// When several goroutines submit at the same time
	const producers, perProducer = 8, 50
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				channel.Submit(fmt.Sprintf("p%d-m%d", p, i), lo.ToPtr(fmt.Sprintf("user-%d", p)))
			}
		}(p)
	}
	wg.Wait()

	// Then both subscribers observe the same messages in the same order
	total := producers * perProducer
	got1 := receive(t, sub1, total)
	got2 := receive(t, sub2, total)
	req.Equal(got1, got2)

	// And acceptance time never goes backwards
	for i := 1; i < len(got1); i++ {
		req.False(got1[i].Time.Before(got1[i-1].Time))
	}
}

func TestChatChannel_Unsubscribe_During_Submit(t *testing.T) {
	req := require.New(t)
	channel := newTestChannel(4096)
	leaving := channel.Subscribe()
	staying := channel.Subscribe()
	defer staying.Close()

	// Given a producer is submitting continuously
	const total = 2000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			channel.Submit(fmt.Sprintf("m%d", i), lo.ToPtr("Waruni"))
		}
	}()

	// When a subscriber leaves in the middle of it, several times
	time.Sleep(time.Millisecond)
	leaving.Close()
	leaving.Close()
	<-done

	// Then its stream ends and every message it got is complete
	for msg := range leaving.Messages() {
		req.Equal("Waruni", msg.UserName)
		req.NotEmpty(msg.Text)
		req.False(msg.Time.IsZero())
	}

	// And the other subscriber got everything
	req.Len(receive(t, staying, total), total)
	req.Equal(1, channel.SubscriberCount())
}

func TestChatChannel_Submit_Without_Subscribers_Is_Not_Retained(t *testing.T) {
	req := require.New(t)
	channel := newTestChannel(8)

	// Given nobody listens
	req.NotPanics(func() { channel.Submit("into the void", nil) })

	// When somebody joins afterwards
	sub := channel.Subscribe()
	defer sub.Close()
	channel.Submit("welcome", nil)

	// Then the earlier message is never delivered
	req.Equal([]string{"welcome"}, texts(receive(t, sub, 1)))
	requireNothingPending(t, sub)
	req.Equal(uint64(2), channel.Stats().Published)
}

func TestChatChannel_Full_Buffer_Drops_Without_Blocking(t *testing.T) {
	req := require.New(t)
	channel := newTestChannel(2)
	slow := channel.Subscribe()
	defer slow.Close()
	fast := channel.Subscribe()
	defer fast.Close()

	// When more messages than the buffer holds are submitted without reading
	for i := 0; i < 5; i++ {
		channel.Submit(fmt.Sprintf("m%d", i), nil)
		if i < 2 {
			// fast drains as it goes for the first two
			receive(t, fast, 1)
		}
	}

	// Then the slow subscriber keeps the oldest messages and loses the rest
	req.Equal([]string{"m0", "m1"}, texts(receive(t, slow, 2)))
	req.Equal(uint64(3), slow.Dropped())
	requireNothingPending(t, slow)

	// And the fast subscriber only lost what exceeded its own buffer
	req.Equal([]string{"m2", "m3"}, texts(receive(t, fast, 2)))
	req.Equal(uint64(1), fast.Dropped())

	stats := channel.Stats()
	req.Equal(2, stats.Subscribers)
	req.Equal(uint64(5), stats.Published)
	req.Equal(uint64(4), stats.Dropped)
}

func TestChatChannel_Time_Is_Monotonic_When_Clock_Goes_Backwards(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	clock := mocks.NewMockClock(ctrl)

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	gomock.InOrder(
		clock.EXPECT().Now().Return(start),
		clock.EXPECT().Now().Return(start.Add(-time.Minute)),
		clock.EXPECT().Now().Return(start.Add(time.Second)),
	)

	channel := NewChatChannel(logs.GetLoggerFromLevel(slog.LevelDebug), clock, 8)
	sub := channel.Subscribe()
	defer sub.Close()

	channel.Submit("a", nil)
	channel.Submit("b", nil)
	channel.Submit("c", nil)

	got := receive(t, sub, 3)
	req.Equal(start, got[0].Time)
	req.Equal(start, got[1].Time)
	req.Equal(start.Add(time.Second), got[2].Time)
}

func TestChatChannel_Close_Ends_Stream(t *testing.T) {
	req := require.New(t)
	channel := newTestChannel(8)
	sub := channel.Subscribe()
	req.Equal(1, channel.SubscriberCount())

	sub.Close()

	_, ok := <-sub.Messages()
	req.False(ok)
	req.Equal(0, channel.SubscriberCount())

	// Submitting after the only subscriber left is harmless
	req.NotPanics(func() { channel.Submit("bye", nil) })
}
