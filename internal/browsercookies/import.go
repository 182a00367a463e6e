package browsercookies

import (
	"fmt"
	"strings"
	"time"

	"igunfollow/pkg/auth"
	"igunfollow/pkg/logger"
)

// InstagramDomain is the cookie domain the session lives under
const InstagramDomain = "instagram.com"

// Read detects the format of path and returns the unexpired cookies it holds
// for domain
func Read(path, domain string) ([]Cookie, *Source, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}
	source := &Source{Path: path, Format: format}
	now := time.Now()

	var cookies []Cookie
	switch format {
	case FormatFirefox, FormatChrome:
		copied, cleanup, err := copyDatabase(path)
		if err != nil {
			return nil, nil, err
		}
		defer cleanup()

		if format == FormatFirefox {
			cookies, err = ReadFirefox(copied, domain, now)
		} else {
			cookies, err = ReadChrome(copied, domain, now)
		}
		if err != nil {
			return nil, nil, err
		}
	case FormatNetscape:
		cookies, err = ReadNetscape(path, domain, now)
		if err != nil {
			return nil, nil, err
		}
	}

	names := make([]string, len(cookies))
	for i, c := range cookies {
		names[i] = c.Name
	}
	logger.GetLogger().DebugWithFields("Read browser cookies", map[string]interface{}{
		"browser": format.String(),
		"count":   len(cookies),
		"names":   names,
	})
	return cookies, source, nil
}

// ImportCookieSet builds an Instagram cookie set from a browser cookie store
func ImportCookieSet(path string) (*auth.CookieSet, *Source, error) {
	cookies, source, err := Read(path, InstagramDomain)
	if err != nil {
		return nil, nil, err
	}

	set := CookieSetFrom(cookies)
	if !set.Complete() {
		return nil, source, fmt.Errorf("%s store has no Instagram session, missing %s: %w",
			source.Format, strings.Join(missing(set), ", "), auth.ErrCredentialsNotFound)
	}
	return set, source, nil
}

// CookieSetFrom picks the session cookies out of cookies. When a name
// appears more than once the last value wins.
func CookieSetFrom(cookies []Cookie) *auth.CookieSet {
	set := &auth.CookieSet{}
	for _, c := range cookies {
		switch c.Name {
		case "sessionid":
			set.SessionID = c.Value
		case "csrftoken":
			set.CSRFToken = c.Value
		case "ds_user_id":
			set.DSUserID = c.Value
		}
	}
	return set
}

func missing(set *auth.CookieSet) []string {
	var names []string
	if set.SessionID == "" {
		names = append(names, "sessionid")
	}
	if set.CSRFToken == "" {
		names = append(names, "csrftoken")
	}
	if set.DSUserID == "" {
		names = append(names, "ds_user_id")
	}
	return names
}
