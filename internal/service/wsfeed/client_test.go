package wsfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedServer(t *testing.T, subs chan<- string) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for i := 0; i < 2; i++ {
			var m map[string]string
			if err := conn.ReadJSON(&m); err != nil {
				return
			}
			subs <- m["symbol"]
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"tick","data":[{"instrument":"VXX","ts":"2022-03-18T21:00:00Z","price":21.5,"signals":{"COR1M":12.5,"COR3M":20}}]}`))
	}))
}

func TestClientSubscribesAndStreamsTicks(t *testing.T) {
	subs := make(chan string, 4)
	srv := feedServer(t, subs)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New("secret", url, []string{"VXX", "COR1M"}, time.Minute, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())
	assert.Equal(t, "VXX", <-subs)
	assert.Equal(t, "COR1M", <-subs)

	ticks, errs := c.Read(ctx)
	select {
	case tk := <-ticks:
		require.NotNil(t, tk)
		assert.Equal(t, "VXX", tk.Instrument)
		assert.Equal(t, 21.5, tk.Price)
		assert.Equal(t, 12.5, tk.Signals["COR1M"])
		assert.Equal(t, time.Date(2022, 3, 18, 21, 0, 0, 0, time.UTC), tk.Time.UTC())
	case <-ctx.Done():
		t.Fatal("no tick received")
	}

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-ctx.Done():
		t.Fatal("expected read error after server closed")
	}

	require.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
}
