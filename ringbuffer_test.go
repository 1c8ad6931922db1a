// ringbuffer_test.go: Live-inspection buffer tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferedMessage(t *testing.T, text string) Message {
	t.Helper()
	msg, err := NewMessage(LevelInfo, "App", text)
	require.NoError(t, err)
	return msg
}

func snapshotTexts(buf *MessageBuffer) []string {
	snap := buf.Snapshot()
	texts := make([]string, len(snap))
	for i, msg := range snap {
		texts[i] = msg.Text
	}
	return texts
}

func TestMessageBuffer_PartialFill(t *testing.T) {
	buf := NewMessageBuffer(4)
	assert.Equal(t, 4, buf.Cap())
	assert.Equal(t, 0, buf.Len())
	assert.Empty(t, buf.Snapshot())

	buf.Add(bufferedMessage(t, "one"))
	buf.Add(bufferedMessage(t, "two"))

	assert.Equal(t, 2, buf.Len())
	assert.Equal(t, []string{"one", "two"}, snapshotTexts(buf))
}

func TestMessageBuffer_OverwritesOldest(t *testing.T) {
	buf := NewMessageBuffer(3)
	for i := 1; i <= 5; i++ {
		buf.Add(bufferedMessage(t, fmt.Sprintf("msg-%d", i)))
	}

	assert.Equal(t, 3, buf.Len())
	assert.Equal(t, []string{"msg-3", "msg-4", "msg-5"}, snapshotTexts(buf))
}

func TestMessageBuffer_ExactCapacity(t *testing.T) {
	buf := NewMessageBuffer(3)
	for i := 1; i <= 3; i++ {
		buf.Add(bufferedMessage(t, fmt.Sprintf("msg-%d", i)))
	}

	assert.Equal(t, 3, buf.Len())
	assert.Equal(t, []string{"msg-1", "msg-2", "msg-3"}, snapshotTexts(buf))
}

func TestMessageBuffer_SnapshotIsACopy(t *testing.T) {
	buf := NewMessageBuffer(4)
	buf.Add(bufferedMessage(t, "original"))

	snap := buf.Snapshot()
	snap[0].Text = "mutated"

	assert.Equal(t, []string{"original"}, snapshotTexts(buf))
}

func TestMessageBuffer_Clear(t *testing.T) {
	buf := NewMessageBuffer(3)
	for i := 0; i < 5; i++ {
		buf.Add(bufferedMessage(t, "filler"))
	}

	buf.Clear()
	assert.Equal(t, 0, buf.Len())
	assert.Empty(t, buf.Snapshot())

	// Still usable after clearing.
	buf.Add(bufferedMessage(t, "fresh"))
	assert.Equal(t, []string{"fresh"}, snapshotTexts(buf))
}

func TestMessageBuffer_DefaultCapacity(t *testing.T) {
	assert.Equal(t, defaultRingCapacity, NewMessageBuffer(0).Cap())
	assert.Equal(t, defaultRingCapacity, NewMessageBuffer(-5).Cap())
}

func TestMessageBuffer_AsRouterSubscriber(t *testing.T) {
	buf := NewMessageBuffer(8)
	router := NewRouter(nil, nil)
	sub := router.Subscribe(buf.Subscriber())
	defer sub.Release()

	router.Route(bufferedMessage(t, "through the router"))

	require.Equal(t, 1, buf.Len())
	assert.Equal(t, "through the router", buf.Snapshot()[0].Text)
}

func TestMessageBuffer_ConcurrentAdds(t *testing.T) {
	buf := NewMessageBuffer(64)
	msg := bufferedMessage(t, "concurrent")

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				buf.Add(msg)
				buf.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 64, buf.Len())
}
