package schema

const (
	// BadgePlace is the fixed placement of the label inside a tab.
	BadgePlace = "tab-front"
	// BadgePart is the content-part identifier the label is keyed by.
	BadgePart = "tab-counter"
)
