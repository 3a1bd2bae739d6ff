package runtime_test

import (
	"chat-broadcast/runtime"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestChatChannel_LoadTest floods one channel from many producers while one
// subscriber drains and another never reads. Publishers must never block and
// every message is either delivered or counted as dropped.
func TestChatChannel_LoadTest(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)
	channel := runtime.NewChatChannel(log, nil, 64)

	reader := channel.Subscribe()
	stuck := channel.Subscribe()
	defer stuck.Close()

	numClients := 100
	messagesPerClient := 200
	total := numClients * messagesPerClient

	received := 0
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for range reader.Messages() {
			received++
		}
	}()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			identity := fmt.Sprintf("user-%d", clientID)
			for j := 0; j < messagesPerClient; j++ {
				channel.Submit("This is a load test message", &identity)
			}
		}(i)
	}
	wg.Wait()
	duration := time.Since(start)

	reader.Close()
	<-readerDone

	stats := channel.Stats()
	req.Equal(uint64(total), stats.Published)
	req.Equal(uint64(total), uint64(received)+reader.Dropped())
	// The idle subscriber kept exactly its buffer
	req.Equal(uint64(total-64), stuck.Dropped())
	req.Equal(stats.Dropped, reader.Dropped()+stuck.Dropped())

	t.Logf("%d messages in %v (%.0f msg/sec), reader dropped %d",
		total, duration, float64(total)/duration.Seconds(), reader.Dropped())
}

func BenchmarkChatChannel_Submit(b *testing.B) {
	for _, subscribers := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("subscribers=%d", subscribers), func(b *testing.B) {
			channel := runtime.NewChatChannel(slog.New(slog.DiscardHandler), nil, 256)
			var wg sync.WaitGroup
			for i := 0; i < subscribers; i++ {
				sub := channel.Subscribe()
				defer sub.Close()
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range sub.Messages() {
					}
				}()
			}
			identity := "bench"
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				channel.Submit("hello", &identity)
			}
			b.StopTimer()
		})
	}
}
