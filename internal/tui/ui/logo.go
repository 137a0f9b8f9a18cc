package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo is the header banner.
type Logo struct {
	*tview.TextView
}

// NewLogo renders the banner with the theme colors.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	title, fg := Tag(theme.TitleColor), Tag(theme.FgColor)
	_, _ = fmt.Fprintf(tv,
		"[%s::b] _  _ _ _  _ ____[-:-:-]\n"+
			"[%s::b] |_/  | |\\ | | __[-:-:-]\n"+
			"[%s::b] | \\_ | | \\| |__] chat[-:-:-]\n"+
			"[%s]terminal client[-:-:-]",
		title, title, title, fg,
	)
	return &Logo{TextView: tv}
}
