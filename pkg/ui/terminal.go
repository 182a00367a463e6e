package ui

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ASCII logo for the application
const ASCIILogo = `
  ╦╔═╗  ╦ ╦╔╗╔╔═╗╔═╗╦  ╦  ╔═╗╦ ╦
  ║║ ╦  ║ ║║║║╠╣ ║ ║║  ║  ║ ║║║║
  ╩╚═╝  ╚═╝╝╚╝╚  ╚═╝╩═╝╩═╝╚═╝╚╩╝
  bulk unfollow for your own account
`

// colorEnabled is decided once from stdout
var colorEnabled = term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
)

// SetColor turns ANSI colors on or off
func SetColor(enabled bool) {
	colorEnabled = enabled
}

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}
