package ui

// MenuHint describes a keyboard shortcut shown in the menu column.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // digit shortcuts render in their own color
}

// Component is implemented by every page pushed onto Pages.
type Component interface {
	Name() string
	Hints() []MenuHint
}
