// Package browsercookies reads the Instagram session cookies straight out of
// a browser profile. Firefox and Chrome SQLite stores and Netscape text
// exports are supported. Cookie values never reach logs or error messages.
package browsercookies

import "time"

// Format identifies the layout of a cookie store file
type Format int

const (
	FormatUnknown Format = iota
	FormatFirefox
	FormatChrome
	FormatNetscape
)

func (f Format) String() string {
	switch f {
	case FormatFirefox:
		return "Firefox"
	case FormatChrome:
		return "Chrome"
	case FormatNetscape:
		return "Netscape"
	default:
		return "unknown"
	}
}

// Cookie is a single cookie read from a store. Value is sensitive.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
	Expiry time.Time
}

// Source describes the store the cookies came from
type Source struct {
	Path   string
	Format Format
}
