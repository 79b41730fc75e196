package client

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wivrn/wivrn-host/pkg/events"
)

// SubscribeEvents streams the runtime daemon's relay events until ctx is
// done or the daemon closes the stream. The returned channel is closed
// when the stream ends. Up to replay recent events are delivered first.
func (c *Client) SubscribeEvents(ctx context.Context, replay int) (<-chan events.Event, error) {
	url := "http://unix/events"
	if replay > 0 {
		url += "?replay=" + strconv.Itoa(replay)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create request")
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to subscribe to events")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("got %d subscribing to events", resp.StatusCode)
	}

	out := make(chan events.Event, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		sc := bufio.NewScanner(resp.Body)
		var ev events.Event
		var data []string
		for sc.Scan() {
			line := sc.Text()
			switch {
			case line == "":
				if ev.Name == "" && len(data) == 0 {
					continue
				}
				ev.Data = []byte(strings.Join(data, "\n"))
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				ev, data = events.Event{}, nil
			case strings.HasPrefix(line, "event:"):
				ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
		if err := sc.Err(); err != nil && ctx.Err() == nil {
			logrus.Warnf("event stream ended: %v", err)
		}
	}()
	return out, nil
}
