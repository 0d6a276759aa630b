package websocket

import (
	"fmt"
	"io"
	"sync"
	"testing"

	"ride-backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

func (f *fakeConn) Send(message []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func testHub() *Hub {
	return NewHub(logger.NewLoggerWithOutput("test", io.Discard))
}

func TestHub_AddReplacesExistingConnection(t *testing.T) {
	hub := testHub()
	first := &fakeConn{}
	second := &fakeConn{}

	hub.AddConnection("user-1", first)
	hub.AddConnection("user-1", second)

	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())
	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestHub_SendToUser(t *testing.T) {
	hub := testHub()
	conn := &fakeConn{}
	hub.AddConnection("user-1", conn)

	require.NoError(t, hub.SendToUser("user-1", map[string]string{"type": "ping"}))
	assert.Equal(t, 1, conn.received())

	// Sending to an unknown user is not an error.
	require.NoError(t, hub.SendToUser("ghost", map[string]string{"type": "ping"}))
}

func TestHub_RideRooms(t *testing.T) {
	hub := testHub()
	client := &fakeConn{}
	driver := &fakeConn{}
	bystander := &fakeConn{}
	hub.AddConnection("client-1", client)
	hub.AddConnection("driver-1", driver)
	hub.AddConnection("bystander", bystander)

	hub.JoinRide("ride-1", "client-1")
	hub.JoinRide("ride-1", "driver-1")

	require.NoError(t, hub.SendToRide("ride-1", map[string]string{"status": "started"}))
	assert.Equal(t, 1, client.received())
	assert.Equal(t, 1, driver.received())
	assert.Equal(t, 0, bystander.received())

	hub.LeaveRide("ride-1", "driver-1")
	require.NoError(t, hub.SendToRide("ride-1", map[string]string{"status": "completed"}))
	assert.Equal(t, 2, client.received())
	assert.Equal(t, 1, driver.received())
}

func TestHub_RemoveConnectionLeavesRooms(t *testing.T) {
	hub := testHub()
	conn := &fakeConn{}
	hub.AddConnection("user-1", conn)
	hub.JoinRide("ride-1", "user-1")

	hub.RemoveConnection("user-1", conn)

	assert.True(t, conn.isClosed())
	assert.False(t, hub.IsUserConnected("user-1"))
	require.NoError(t, hub.SendToRide("ride-1", map[string]string{"status": "started"}))
	assert.Equal(t, 0, conn.received())
}

// A reconnect replaces the registered connection; the old connection's
// late-running teardown must not deregister the replacement.
func TestHub_StaleRemoveKeepsReplacement(t *testing.T) {
	hub := testHub()
	first := &fakeConn{}
	second := &fakeConn{}
	hub.AddConnection("user-1", first)
	hub.AddConnection("user-1", second)
	hub.JoinRide("ride-1", "user-1")

	// The replaced connection's reader exits and reports its own close.
	hub.RemoveConnection("user-1", first)

	assert.True(t, hub.IsUserConnected("user-1"))
	require.NoError(t, hub.SendToRide("ride-1", map[string]string{"status": "started"}))
	assert.Equal(t, 1, second.received())
	assert.False(t, second.isClosed())

	hub.RemoveConnection("user-1", second)
	assert.False(t, hub.IsUserConnected("user-1"))
	assert.True(t, second.isClosed())
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := testHub()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i)
			hub.AddConnection(userID, &fakeConn{})
			hub.JoinRide("ride-shared", userID)
			hub.SendToRide("ride-shared", map[string]string{"type": "ping"})
			hub.Broadcast(map[string]string{"type": "pong"})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, hub.ConnectionCount())
}
