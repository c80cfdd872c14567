package benchclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/iammadab/chessbench/pkg/benchdto"
)

// FrameHandler receives feed frames in order. Returning an error stops the watch.
type FrameHandler func(frame benchdto.Frame) error

// Watch follows a match feed over the websocket until the server closes it
// normally after the result frame, ctx is done, or fn fails.
func (c *Client) Watch(ctx context.Context, matchID string, fn FrameHandler) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, c.wsURL(matchID), &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.CloseNow()

	for {
		var frame benchdto.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}
		if err := fn(frame); err != nil {
			conn.Close(websocket.StatusNormalClosure, "watcher done")
			return err
		}
	}
}

func (c *Client) wsURL(matchID string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/match/" + url.PathEscape(matchID) + "/ws"
}
