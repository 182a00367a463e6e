package snapshot

import (
	"regexp"
	"strings"

	"igunfollow/pkg/instagram"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{1,30}$`)

// noisePatterns match the page chrome that comes along when a followers or
// following dialog is selected and copied from the browser
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(meta|about|blog|jobs|help|api|privacy|terms|locations|threads|english|search)$`),
	regexp.MustCompile(`(?i)^(instagram lite|meta ai|meta verified|contact uploading|non-users)$`),
	regexp.MustCompile(`(?i)^\d+ (posts?|followers?|following)$`),
	regexp.MustCompile(`^©`),
	regexp.MustCompile(`(?i)^followers$`),
	regexp.MustCompile(`(?i)^following$`),
	regexp.MustCompile(`(?i)profile picture$`),
	regexp.MustCompile(`(?i)^more$`),
	regexp.MustCompile(`^·$`),
}

func isNoise(line string) bool {
	for _, p := range noisePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// ParsePasted extracts usernames from text copied out of a followers or
// following dialog. Names are lowercased and stripped of a leading @; lines
// that are page chrome, are not valid usernames or are two characters or
// shorter are dropped. The first occurrence of a name wins.
func ParsePasted(text string) []User {
	var users []User
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isNoise(line) {
			continue
		}

		name := strings.ToLower(instagram.SanitizeUsername(line))
		if len(name) <= 2 || !usernamePattern.MatchString(name) {
			continue
		}
		users = append(users, User{
			Username:   name,
			ProfileURL: instagram.GetUserProfileURL(instagram.BaseURL, name),
		})
	}
	return dedupe(users)
}
