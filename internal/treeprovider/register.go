package treeprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pkt.systems/tabcounter/schema"
)

// BadgeStyle is injected into the tree sidebar on registration.
// %EXTRA_CONTENTS_PART% is expanded by the tree extension.
const BadgeStyle = `
  ::part(%EXTRA_CONTENTS_PART% tab-counter) {
    background: purple;
    color: white;
    font-size: x-small;
    font-family: monospace;
    position: absolute;
    bottom: .1em;
    right: .1em;
    padding: .1em;
    pointer-events: none;
    z-index: 100;
  }
`

// Registration describes how the labeler announces itself to the tree.
type Registration struct {
	Name  string
	Style string
	Icons map[string]string
}

type registerMessage struct {
	Type               string                    `json:"type"`
	Name               string                    `json:"name"`
	Icons              map[string]string         `json:"icons,omitempty"`
	ListeningTypes     []schema.NotificationType `json:"listeningTypes"`
	AllowBulkMessaging bool                      `json:"allowBulkMessaging"`
	LightTree          bool                      `json:"lightTree"`
	Style              string                    `json:"style,omitempty"`
}

// Register asks the tree extension to send the tree notifications to the
// relay and installs the badge style.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	if strings.TrimSpace(reg.Name) == "" {
		return fmt.Errorf("%w: registration name", schema.ErrInvalidRequest)
	}
	if reg.Style == "" {
		reg.Style = BadgeStyle
	}
	msg := registerMessage{
		Type:               "register-self",
		Name:               reg.Name,
		Icons:              reg.Icons,
		ListeningTypes:     schema.TreeNotificationTypes,
		AllowBulkMessaging: true,
		LightTree:          true,
		Style:              reg.Style,
	}
	var ack json.RawMessage
	if err := c.send(ctx, msg, &ack); err != nil {
		return fmt.Errorf("register-self: %w", err)
	}
	return nil
}
