// Package treeprovider talks to Tree Style Tab through the relay extension
// on the other end of a native-messaging JSON-RPC connection.
package treeprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strconv"

	"go.lsp.dev/jsonrpc2"

	"pkt.systems/tabcounter/internal/bridge"
	"pkt.systems/tabcounter/internal/logx"
	"pkt.systems/tabcounter/schema"
)

// DefaultExtensionID is the Tree Style Tab add-on id.
const DefaultExtensionID = "treestyletab@piro.sakura.ne.jp"

// ProviderName labels log lines and notifications from this provider.
const ProviderName = "tst"

// JSON-RPC methods spoken with the relay extension.
const (
	// MethodSend relays a message to the tree extension and returns its reply.
	MethodSend = "tst.send"
	// MethodTabsQuery runs browser.tabs.query in the relay.
	MethodTabsQuery = "tabs.query"
	// MethodNotify carries a tree notification ({"type": ...}) from the relay.
	MethodNotify = "tst.notify"
	// MethodActivated carries the browser's tabs.onActivated notification.
	MethodActivated = "tabs.activated"
)

// Config configures a Client.
type Config struct {
	ExtensionID string
}

// Client implements core.TreeProvider on top of a JSON-RPC connection.
type Client struct {
	conn        jsonrpc2.Conn
	extensionID string
}

// New constructs a Client over conn.
func New(conn jsonrpc2.Conn, cfg Config) *Client {
	if cfg.ExtensionID == "" {
		cfg.ExtensionID = DefaultExtensionID
	}
	return &Client{conn: conn, extensionID: cfg.ExtensionID}
}

type sendParams struct {
	Extension string `json:"extension"`
	Message   any    `json:"message"`
}

type lightTreeMessage struct {
	Type   string `json:"type"`
	Tabs   string `json:"tabs"`
	Window int64  `json:"window,omitempty"`
}

type extraContentsMessage struct {
	Type     string `json:"type"`
	Place    string `json:"place"`
	Part     string `json:"part"`
	Tab      int64  `json:"tab"`
	Contents string `json:"contents"`
}

type queryParams struct {
	Active        bool `json:"active"`
	CurrentWindow bool `json:"currentWindow"`
}

type lightTab struct {
	ID       int64      `json:"id"`
	Children []lightTab `json:"children,omitempty"`
}

type hostTab struct {
	ID       int64 `json:"id"`
	WindowID int64 `json:"windowId"`
}

func (c *Client) send(ctx context.Context, message any, result any) error {
	_, err := c.conn.Call(ctx, MethodSend, sendParams{Extension: c.extensionID, Message: message}, result)
	return err
}

// FetchOrderedTabs returns the light tree flattened depth-first.
func (c *Client) FetchOrderedTabs(ctx context.Context, scope schema.Scope) ([]schema.TabID, error) {
	msg := lightTreeMessage{Type: "get-light-tree", Tabs: string(schema.ScopeAll)}
	if scope != "" && scope != schema.ScopeAll {
		window, err := strconv.ParseInt(string(scope), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", schema.ErrInvalidScope, scope)
		}
		msg.Window = window
	}
	var tree []lightTab
	if err := c.send(ctx, msg, &tree); err != nil {
		return nil, fmt.Errorf("get-light-tree: %w", err)
	}
	return flatten(tree), nil
}

// flatten walks the tree depth-first. A flat listing (every tab at the top
// level, each also carrying its children) visits each id once.
func flatten(tree []lightTab) []schema.TabID {
	out := make([]schema.TabID, 0, len(tree))
	seen := make(map[int64]struct{}, len(tree))
	var walk func(nodes []lightTab)
	walk = func(nodes []lightTab) {
		for _, node := range nodes {
			if _, ok := seen[node.ID]; ok {
				continue
			}
			seen[node.ID] = struct{}{}
			out = append(out, formatTabID(node.ID))
			walk(node.Children)
		}
	}
	walk(tree)
	return out
}

// QueryActiveTab asks the host for the active tab of the current window.
func (c *Client) QueryActiveTab(ctx context.Context) (schema.TabID, error) {
	var tabs []hostTab
	if _, err := c.conn.Call(ctx, MethodTabsQuery, queryParams{Active: true, CurrentWindow: true}, &tabs); err != nil {
		return "", fmt.Errorf("tabs.query: %w", err)
	}
	if len(tabs) == 0 {
		return "", schema.ErrNoActiveTab
	}
	return formatTabID(tabs[0].ID), nil
}

// Clear removes the badge from a tab.
func (c *Client) Clear(ctx context.Context, id schema.TabID) error {
	return c.setExtraContents(ctx, id, "")
}

// Apply renders text as the tab's badge.
func (c *Client) Apply(ctx context.Context, id schema.TabID, text string) error {
	return c.setExtraContents(ctx, id, BadgeMarkup(text))
}

func (c *Client) setExtraContents(ctx context.Context, id schema.TabID, contents string) error {
	tab, err := parseTabID(id)
	if err != nil {
		return err
	}
	msg := extraContentsMessage{
		Type:     "set-extra-contents",
		Place:    schema.BadgePlace,
		Part:     schema.BadgePart,
		Tab:      tab,
		Contents: contents,
	}
	var ack json.RawMessage
	if err := c.send(ctx, msg, &ack); err != nil {
		return fmt.Errorf("set-extra-contents: %w", err)
	}
	return nil
}

// BadgeMarkup wraps label text in the badge element styled by BadgeStyle.
func BadgeMarkup(text string) string {
	return fmt.Sprintf(`<small id="%[1]s" part="%[1]s">%[2]s</small>`, schema.BadgePart, html.EscapeString(text))
}

// Handler returns a jsonrpc2 handler that publishes relay notifications.
func (c *Client) Handler(ctx context.Context, publish func(schema.Notification)) jsonrpc2.Handler {
	log := logx.WithProvider(ctx, ProviderName)
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case MethodNotify:
			var params struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(req.Params(), &params); err != nil || params.Type == "" {
				log.Debug("tst notification malformed", "err", err)
				return reply(ctx, nil, fmt.Errorf("%w: notification type", schema.ErrInvalidRequest))
			}
			typ := schema.NotificationType(params.Type)
			if !bridge.Qualifies(typ) {
				log.Trace("tst notification ignored", "type", params.Type)
				return reply(ctx, nil, nil)
			}
			publish(schema.Notification{Source: ProviderName, Type: typ})
			return reply(ctx, nil, nil)
		case MethodActivated:
			publish(schema.Notification{Source: ProviderName, Type: schema.NotifyTabActivated})
			return reply(ctx, nil, nil)
		default:
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}
	}
}

func formatTabID(id int64) schema.TabID {
	return schema.TabID(strconv.FormatInt(id, 10))
}

func parseTabID(id schema.TabID) (int64, error) {
	value, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: tab id %q", schema.ErrInvalidRequest, id)
	}
	return value, nil
}
