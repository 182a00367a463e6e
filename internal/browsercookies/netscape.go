package browsercookies

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"igunfollow/pkg/logger"
)

// ReadNetscape returns the unexpired cookies for domain from a Netscape
// cookies.txt export. Malformed lines are skipped.
func ReadNetscape(path, domain string, now time.Time) ([]Cookie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open cookie file: %w", err)
	}
	defer f.Close()

	var cookies []Cookie
	lineNo := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#HttpOnly_") {
			line = strings.TrimPrefix(line, "#HttpOnly_")
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			logger.WithField("line", lineNo).Debug("Skipping malformed cookie line")
			continue
		}
		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			logger.WithField("line", lineNo).Debug("Skipping cookie with invalid expiry")
			continue
		}

		if !matchesDomain(fields[0], domain) {
			continue
		}
		// 0 marks a session cookie
		if expiry > 0 && time.Unix(expiry, 0).Before(now) {
			continue
		}

		cookies = append(cookies, Cookie{
			Name:   fields[5],
			Value:  fields[6],
			Domain: fields[0],
			Path:   fields[2],
			Expiry: time.Unix(expiry, 0),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}
	return cookies, nil
}

func matchesDomain(cookieDomain, domain string) bool {
	return cookieDomain == domain || cookieDomain == "."+domain || strings.HasSuffix(cookieDomain, "."+domain)
}
