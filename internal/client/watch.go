package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"taskflow/internal/model"

	"github.com/gorilla/websocket"
)

// WatchNotifications streams the signed-in user's new notifications to fn until ctx ends or the
// server closes the feed.
func (s *Session) WatchNotifications(ctx context.Context, fn func(model.Notification)) error {
	u, err := url.Parse(s.baseURL + "/api/notifications/ws")
	if err != nil {
		return err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", s.Token())
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial notifications: %w", &APIError{Status: resp.StatusCode, Message: resp.Status, err: ErrUnauthorized})
		}
		return fmt.Errorf("dial notifications: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	defer stop()

	for {
		var n model.Notification
		if err := conn.ReadJSON(&n); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("notifications closed: %w", err)
			}
			return fmt.Errorf("read notification: %w", err)
		}
		fn(n)
	}
}
