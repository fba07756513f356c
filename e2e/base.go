package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"

	"pairchat/client"
	"pairchat/gateway"
)

type BaseSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerURL == "" {
		s.T().Skip("PAIRCHAT_SERVER_URL not set, skipping end-to-end suite")
	}
}

// Step prints a colorized header so scenario phases stand out in logs
func (s *BaseSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Actor registers a throwaway account and opens its websocket.
// The returned cancel closes the connection.
func (s *BaseSuite) Actor(ctx context.Context, name string) (*client.Client, context.CancelFunc) {
	c := client.New(s.Config.ServerURL)

	suffix := uuid.New().String()[:8]
	_, err := c.Register(name+suffix, fmt.Sprintf("%s-%s@e2e.local", name, suffix), "Sup3r$ecret-password!")
	s.Require().NoError(err, "Failed to register actor "+name)

	connCtx, cancel := context.WithCancel(ctx)
	err = c.Connect(connCtx)
	s.Require().NoError(err, "Failed to connect actor "+name)

	return c, cancel
}

// WaitForEvent drains the actor's stream until the named event shows up.
// Unrelated traffic (presence churn from other actors, typing...) is
// logged and skipped.
func (s *BaseSuite) WaitForEvent(c *client.Client, event string) gateway.Envelope {
	deadline := time.After(10 * time.Second)
	for {
		select {
		case envelope, ok := <-c.Events():
			s.Require().True(ok, "Connection closed while waiting for "+event)
			if s.Config.DebugJSON {
				raw, _ := json.Marshal(envelope)
				s.T().Logf("EVENT %s", raw)
			}
			if envelope.Event == event {
				return envelope
			}
			s.T().Logf("Skipping unrelated event %q while waiting for %q", envelope.Event, event)
		case <-deadline:
			s.FailNowf("Timed out", "No %q event within 10s", event)
			return gateway.Envelope{}
		}
	}
}
