package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide prints step-by-step instructions for copying the
// session cookies out of a browser
func ShowCookieExtractionGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "📚 INSTAGRAM COOKIE EXTRACTION GUIDE")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "igunfollow acts as your logged-in browser session, so it needs three cookies.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🌐 STEP 1: Open https://www.instagram.com and log in")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔧 STEP 2: Open Developer Tools")
	fmt.Fprintln(w, "   • Chrome/Edge/Brave/Firefox: F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Fprintln(w, "   • Safari: enable the Develop menu in Preferences, then Cmd+Option+I")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🍪 STEP 3: Application tab (Chrome) or Storage tab (Firefox) → Cookies → https://www.instagram.com")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔑 STEP 4: Copy these values:")
	fmt.Fprintln(w, "   ┌─────────────┬──────────────────────────────────────────────┐")
	fmt.Fprintln(w, "   │ Cookie Name │ What it looks like                           │")
	fmt.Fprintln(w, "   ├─────────────┼──────────────────────────────────────────────┤")
	fmt.Fprintln(w, "   │ sessionid   │ Long string with %3A, e.g. 12345678%3Aabc... │")
	fmt.Fprintln(w, "   │ csrftoken   │ 32-character string                          │")
	fmt.Fprintln(w, "   │ ds_user_id  │ Your numeric account id                      │")
	fmt.Fprintln(w, "   └─────────────┴──────────────────────────────────────────────┘")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "💡 Or skip the copying: igunfollow auth import <browser cookie database>")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "⚠️  SECURITY WARNING:")
	fmt.Fprintln(w, "   • These cookies give FULL access to your Instagram account")
	fmt.Fprintln(w, "   • NEVER share them with anyone")
	fmt.Fprintln(w, "   • Logging out of Instagram in the browser invalidates them")
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintln(w, "🍪 Quick Guide: F12 → Application → Cookies → https://www.instagram.com")
	fmt.Fprintln(w, "   Need: sessionid, csrftoken and ds_user_id")
}
