package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tbraaten/notefeed/internal/feed"
	"github.com/tbraaten/notefeed/internal/logging"
)

type wsConn = *websocket.Conn

// channelSub is one live channel subscription multiplexed on the stream.
type channelSub struct {
	id         string
	channel    string
	onNote     func(*feed.Note)
	onMutation func(feed.MutationEvent)
}

// streamMsg is the envelope for every stream frame, both directions.
type streamMsg struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body,omitempty"`
}

type channelFrame struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

type noteUpdatedFrame struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Body struct {
		Reaction string `json:"reaction,omitempty"`
		UserID   string `json:"userId,omitempty"`
		Emoji    *struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"emoji,omitempty"`
		Choice int `json:"choice,omitempty"`
	} `json:"body"`
}

// Subscribe opens a channel subscription on the shared stream, dialing it
// first if needed.
func (c *Client) Subscribe(v feed.Variant, onNote func(*feed.Note), onMutation func(feed.MutationEvent)) (feed.Subscription, error) {
	channel, ok := channelNames[v]
	if !ok {
		return nil, &feed.TransportError{Class: feed.ClassNotFound, Op: "subscribe", Err: fmt.Errorf("unknown variant %q", v)}
	}

	c.mu.Lock()
	if err := c.ensureStreamLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	sub := &channelSub{
		id:         uuid.New().String(),
		channel:    channel,
		onNote:     onNote,
		onMutation: onMutation,
	}
	c.channels[sub.id] = sub
	c.mu.Unlock()

	if err := c.send("connect", map[string]any{"channel": channel, "id": sub.id}); err != nil {
		c.mu.Lock()
		delete(c.channels, sub.id)
		c.mu.Unlock()
		return nil, err
	}
	return &subscription{c: c, id: sub.id}, nil
}

type subscription struct {
	c  *Client
	id string
}

func (s *subscription) Dispose() {
	s.c.mu.Lock()
	_, ok := s.c.channels[s.id]
	delete(s.c.channels, s.id)
	s.c.mu.Unlock()
	if ok {
		_ = s.c.send("disconnect", map[string]any{"id": s.id})
	}
}

// SubNote requests targeted mutation events for one note.
func (c *Client) SubNote(id string, onMutation func(feed.MutationEvent)) error {
	c.mu.Lock()
	if err := c.ensureStreamLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.noteSubs[id] = onMutation
	c.mu.Unlock()

	if err := c.send("subNote", map[string]any{"id": id}); err != nil {
		c.mu.Lock()
		delete(c.noteSubs, id)
		c.mu.Unlock()
		return err
	}
	return nil
}

// UnsubNote releases a targeted capture.
func (c *Client) UnsubNote(id string) error {
	c.mu.Lock()
	_, ok := c.noteSubs[id]
	delete(c.noteSubs, id)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.send("unsubNote", map[string]any{"id": id})
}

// Close shuts the stream down and drops all subscriptions.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.channels = make(map[string]*channelSub)
	c.noteSubs = make(map[string]func(feed.MutationEvent))
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// ensureStreamLocked dials the stream socket if it is not up. Caller holds mu.
func (c *Client) ensureStreamLocked() error {
	if c.closed {
		return &feed.TransportError{Class: feed.ClassGeneric, Op: "stream", Err: fmt.Errorf("client closed")}
	}
	if c.conn != nil {
		return nil
	}

	streamURL := *c.base
	switch streamURL.Scheme {
	case "https":
		streamURL.Scheme = "wss"
	case "http":
		streamURL.Scheme = "ws"
	}
	streamURL.Path = "/streaming"
	q := streamURL.Query()
	if c.cfg.Token != "" {
		q.Set("i", c.cfg.Token)
	}
	streamURL.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	conn, _, err := dialer.Dial(streamURL.String(), http.Header{})
	if err != nil {
		return &feed.TransportError{Class: feed.ClassNetwork, Op: "stream", Err: err}
	}
	c.conn = conn
	go c.readLoop(conn)
	c.log.Debug().Str("url", logging.Redact(streamURL.String())).Msg("stream connected")
	return nil
}

// send writes one frame to the stream. Writes are serialized; gorilla allows
// only one concurrent writer.
func (c *Client) send(msgType string, body map[string]any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return &feed.TransportError{Class: feed.ClassNetwork, Op: msgType, Err: fmt.Errorf("stream not connected")}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return &feed.TransportError{Class: feed.ClassGeneric, Op: msgType, Err: err}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	if err := conn.WriteJSON(streamMsg{Type: msgType, Body: payload}); err != nil {
		return &feed.TransportError{Class: feed.ClassNetwork, Op: msgType, Err: err}
	}
	return nil
}

// readLoop dispatches inbound frames until the socket dies, then redials and
// replays the active subscriptions so columns keep receiving without their
// own reconnect logic.
func (c *Client) readLoop(conn wsConn) {
	for {
		var msg streamMsg
		if err := conn.ReadJSON(&msg); err != nil {
			c.handleDisconnect(conn, err)
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg streamMsg) {
	switch msg.Type {
	case "channel":
		var frame channelFrame
		if err := json.Unmarshal(msg.Body, &frame); err != nil {
			c.log.Debug().Err(err).Msg("malformed channel frame")
			return
		}
		c.mu.Lock()
		sub := c.channels[frame.ID]
		c.mu.Unlock()
		if sub == nil || frame.Type != "note" {
			return
		}
		var n feed.Note
		if err := json.Unmarshal(frame.Body, &n); err != nil {
			c.log.Debug().Err(err).Msg("malformed note frame")
			return
		}
		sub.onNote(&n)

	case "noteUpdated":
		var frame noteUpdatedFrame
		if err := json.Unmarshal(msg.Body, &frame); err != nil {
			c.log.Debug().Err(err).Msg("malformed noteUpdated frame")
			return
		}
		ev, ok := mutationFromFrame(frame)
		if !ok {
			return
		}
		c.mu.Lock()
		handler := c.noteSubs[frame.ID]
		var broadcast []func(feed.MutationEvent)
		if handler == nil {
			for _, sub := range c.channels {
				if sub.onMutation != nil {
					broadcast = append(broadcast, sub.onMutation)
				}
			}
		}
		c.mu.Unlock()

		if handler != nil {
			handler(ev)
			return
		}
		for _, fn := range broadcast {
			fn(ev)
		}
	}
}

func mutationFromFrame(frame noteUpdatedFrame) (feed.MutationEvent, bool) {
	ev := feed.MutationEvent{TargetID: frame.ID}
	switch frame.Type {
	case "reacted":
		ev.Kind = feed.MutationReacted
	case "unreacted":
		ev.Kind = feed.MutationUnreacted
	case "deleted":
		ev.Kind = feed.MutationDeleted
	case "pollVoted":
		ev.Kind = feed.MutationPollVoted
	default:
		return ev, false
	}
	ev.Reaction = frame.Body.Reaction
	ev.ActingUserID = frame.Body.UserID
	ev.Choice = frame.Body.Choice
	if frame.Body.Emoji != nil {
		ev.Emoji = &feed.EmojiRef{Name: frame.Body.Emoji.Name, URL: frame.Body.Emoji.URL}
	}
	return ev, true
}

// handleDisconnect redials after a dropped socket and replays subscriptions.
func (c *Client) handleDisconnect(conn wsConn, err error) {
	c.mu.Lock()
	if c.conn != conn || c.closed {
		// A newer socket took over, or the client is shutting down.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()
	conn.Close()
	c.log.Warn().Err(err).Msg("stream dropped, redialing")

	for {
		time.Sleep(c.cfg.ReconnectInterval)
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		dialErr := c.ensureStreamLocked()
		channels := make([]*channelSub, 0, len(c.channels))
		for _, sub := range c.channels {
			channels = append(channels, sub)
		}
		noteIDs := make([]string, 0, len(c.noteSubs))
		for id := range c.noteSubs {
			noteIDs = append(noteIDs, id)
		}
		c.mu.Unlock()

		if dialErr != nil {
			continue
		}
		for _, sub := range channels {
			_ = c.send("connect", map[string]any{"channel": sub.channel, "id": sub.id})
		}
		for _, id := range noteIDs {
			_ = c.send("subNote", map[string]any{"id": id})
		}
		return
	}
}
