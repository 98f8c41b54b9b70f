package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieGuide explains how to copy the Cookie header out of a signed-in browser
func ShowCookieGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"COPYING YOUR SESSION COOKIE",
		rule,
		"",
		"Albums are only visible to a signed-in session, so the crawler replays",
		"the cookie your browser already holds. It never asks for your password.",
		"",
		"1. Sign in at https://fanfou.com and open any album page.",
		"2. Open Developer Tools (F12, or Cmd+Option+I on a Mac).",
		"3. In the Network tab, reload and select the request for the album page.",
		"4. Under Request Headers, copy the whole value of the Cookie: line.",
		"",
		"Paste it when asked, or save it once with `fanfoudl auth save <name>`.",
		"Sessions expire; a 403 on a page usually means it is time to copy a fresh one.",
		"",
		"The cookie grants full access to your account. Do not share it.",
		rule,
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// ShowQuickGuide is the one-line version shown next to prompts
func ShowQuickGuide(w io.Writer) {
	fmt.Fprintln(w, "F12 -> Network -> reload -> album page request -> Request Headers -> Cookie (type 'help' for details)")
}
