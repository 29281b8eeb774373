package schema

// NotificationType names an inbound notification from the tree provider or host.
type NotificationType string

const (
	// NotifyReady is sent when the tree provider has started.
	NotifyReady NotificationType = "ready"
	// NotifySidebarShow is sent when the tree sidebar becomes visible.
	NotifySidebarShow NotificationType = "sidebar-show"
	// NotifyTabsRendered is sent after tabs were (re)rendered.
	NotifyTabsRendered NotificationType = "tabs-rendered"
	// NotifyTreeAttached is sent when a subtree is attached.
	NotifyTreeAttached NotificationType = "tree-attached"
	// NotifyTreeDetached is sent when a subtree is detached.
	NotifyTreeDetached NotificationType = "tree-detached"
	// NotifyTabAttached is sent when a tab is attached to a window.
	NotifyTabAttached NotificationType = "tab-attached"
	// NotifyTabDetached is sent when a tab is detached from a window.
	NotifyTabDetached NotificationType = "tab-detached"
	// NotifyTabMoved is sent when a tab changes position.
	NotifyTabMoved NotificationType = "tab-moved"
	// NotifyTabActivated is the host's native active-tab-changed notification.
	NotifyTabActivated NotificationType = "tabs-activated"
)

// TreeNotificationTypes lists the tree provider notifications worth listening to.
var TreeNotificationTypes = []NotificationType{
	NotifyReady,
	NotifySidebarShow,
	NotifyTabsRendered,
	NotifyTreeAttached,
	NotifyTreeDetached,
	NotifyTabAttached,
	NotifyTabDetached,
	NotifyTabMoved,
}

// Notification is an inbound event. Only the type is meaningful.
type Notification struct {
	Source string
	Type   NotificationType
}
