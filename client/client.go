// Package client is a Go client for the pairchat server: REST calls
// for auth and history, a websocket for the live event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pairchat/domain"
	"pairchat/gateway"
	"pairchat/services"
)

type Client struct {
	baseURL string
	http    *http.Client

	token  string
	userID string

	socket *websocket.Conn
	events chan gateway.Envelope
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		events:  make(chan gateway.Envelope, 64),
	}
}

type session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Register creates an account and stores the session token.
func (c *Client) Register(username, email, password string) (domain.User, error) {
	var out session
	err := c.post("/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return domain.User{}, err
	}
	c.token = out.Token
	c.userID = out.User.ID
	return out.User, nil
}

// Login authenticates and stores the session token.
func (c *Client) Login(email, password string) (domain.User, error) {
	var out session
	err := c.post("/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return domain.User{}, err
	}
	c.token = out.Token
	c.userID = out.User.ID
	return out.User, nil
}

func (c *Client) UserID() string { return c.userID }

// Connect opens the websocket, joins the user's room, and starts
// pumping server events into Events(). The connection lives until the
// context is canceled or the server closes it.
func (c *Client) Connect(ctx context.Context) error {
	if c.token == "" {
		return fmt.Errorf("login first")
	}

	wsURL := "ws" + c.baseURL[len("http"):] + "/ws?token=" + c.token
	socket, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	c.socket = socket

	if err := c.emit(gateway.IntentJoin, map[string]string{"userId": c.userID}); err != nil {
		_ = socket.Close()
		return err
	}

	go func() {
		defer close(c.events)
		for {
			_, raw, err := socket.ReadMessage()
			if err != nil {
				return
			}
			var envelope gateway.Envelope
			if err := json.Unmarshal(raw, &envelope); err != nil {
				continue
			}
			select {
			case c.events <- envelope:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = socket.Close()
	}()

	return nil
}

// Events is the stream of server envelopes. Closed on disconnect.
func (c *Client) Events() <-chan gateway.Envelope {
	return c.events
}

// Users lists every registered user with their live presence.
func (c *Client) Users() ([]services.UserWithPresence, error) {
	var out []services.UserWithPresence
	return out, c.get("/api/users", &out)
}

// History fetches the conversation with another user, oldest first.
func (c *Client) History(otherID string) ([]domain.Message, error) {
	var out []domain.Message
	return out, c.get("/api/messages/"+otherID, &out)
}

// Send posts a message over the websocket. Delivery comes back through
// the event stream like for any other participant.
func (c *Client) Send(recipientID, content string) error {
	return c.emit(gateway.IntentCreateMessage, map[string]string{
		"recipientId": recipientID,
		"content":     content,
	})
}

func (c *Client) Typing(to string) error {
	return c.emit(gateway.IntentTyping, map[string]string{"to": to})
}

func (c *Client) StopTyping(to string) error {
	return c.emit(gateway.IntentStopTyping, map[string]string{"to": to})
}

func (c *Client) MarkRead(otherID string) error {
	return c.emit(gateway.IntentMarkRead, map[string]string{"otherUserId": otherID})
}

func (c *Client) ToggleReaction(messageID uuid.UUID, emoji string) error {
	return c.emit(gateway.IntentToggleReaction, map[string]any{
		"messageId": messageID,
		"emoji":     emoji,
	})
}

func (c *Client) emit(event string, data any) error {
	if c.socket == nil {
		return fmt.Errorf("not connected")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(gateway.Envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}
	return c.socket.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) post(path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, payload.Error)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
