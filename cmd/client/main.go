package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"

	"pairchat/client"
	"pairchat/gateway"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"PAIRCHAT_SERVER_URL,default=http://localhost:8080"`
	Email     string `env:"PAIRCHAT_EMAIL,required=true"`
	Password  string `env:"PAIRCHAT_PASSWORD,required=true"`
	PeerID    string `env:"PAIRCHAT_PEER_ID"`
	LogLevel  string `env:"LOG_LEVEL,required=true"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v", err)
	}
	os.Exit(code)
}

// run handles the client lifecycle, configuration loading, and event streaming.
// This pattern ensures clean resource management and error propagation.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Authenticate against the REST API.
	chat := client.New(config.ServerURL)
	user, err := chat.Login(config.Email, config.Password)
	if err != nil {
		return exitRuntime, fmt.Errorf("login failed: %w", err)
	}
	log.Info("Logged in", "user", user.Username, "id", user.ID)

	// 4. Open the websocket and join our room.
	if err := chat.Connect(ctx); err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerURL, err)
	}

	color.Green.Printf(">>> Connected to %s as %s! (Ctrl+C to quit)\n",
		config.ServerURL, user.Username)

	// 5. Show who else is around before the stream starts.
	users, err := chat.Users()
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to list users: %w", err)
	}
	for _, u := range users {
		if u.ID == user.ID {
			continue
		}
		if u.Online {
			color.Cyan.Printf("  %s (%s) is online\n", u.Username, u.ID)
		} else {
			color.Gray.Printf("  %s (%s) is offline\n", u.Username, u.ID)
		}
	}

	// 6. Event reception loop.
	// This loop runs until the context is canceled or the server closes the connection.
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping client...")
			return exitOK, nil
		case envelope, ok := <-chat.Events():
			if !ok {
				// Normal exit if the user triggered a shutdown.
				if ctx.Err() != nil {
					return exitOK, nil
				}
				return exitRuntime, fmt.Errorf("connection closed by server")
			}
			render(envelope)
		}
	}
}

// render prints a server event in a human readable form.
func render(envelope gateway.Envelope) {
	switch envelope.Event {
	case gateway.EventMessageNew:
		var msg struct {
			SenderID  string    `json:"senderId"`
			Content   string    `json:"content"`
			CreatedAt time.Time `json:"createdAt"`
		}
		if err := json.Unmarshal(envelope.Data, &msg); err != nil {
			return
		}
		color.White.Printf("[%s] %s: %s\n",
			msg.CreatedAt.Format(time.TimeOnly),
			msg.SenderID,
			msg.Content)
	case gateway.EventPresenceOnline:
		var payload struct {
			UserID string `json:"userId"`
		}
		_ = json.Unmarshal(envelope.Data, &payload)
		color.Green.Printf("* %s is online\n", payload.UserID)
	case gateway.EventPresenceOffline:
		var payload struct {
			UserID   string `json:"userId"`
			LastSeen string `json:"lastSeen"`
		}
		_ = json.Unmarshal(envelope.Data, &payload)
		color.Gray.Printf("* %s went offline (last seen %s)\n", payload.UserID, payload.LastSeen)
	case gateway.EventUserTyping:
		var payload struct {
			From string `json:"from"`
		}
		_ = json.Unmarshal(envelope.Data, &payload)
		color.Yellow.Printf("... %s is typing\n", payload.From)
	case gateway.EventUserStopTyping:
		// Silent: the next message or the typing timeout speaks for itself.
	case gateway.EventMessageRead:
		var payload struct {
			ReaderID   string            `json:"readerId"`
			MessageIDs []json.RawMessage `json:"messageIds"`
		}
		_ = json.Unmarshal(envelope.Data, &payload)
		color.Cyan.Printf("* %s read %d message(s)\n", payload.ReaderID, len(payload.MessageIDs))
	case gateway.EventMessageReaction:
		var payload struct {
			ActorID string `json:"actorId"`
		}
		_ = json.Unmarshal(envelope.Data, &payload)
		color.Magenta.Printf("* %s updated a reaction\n", payload.ActorID)
	case gateway.EventError:
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(envelope.Data, &payload)
		color.Red.Printf("! server error: %s\n", payload.Message)
	}
}
