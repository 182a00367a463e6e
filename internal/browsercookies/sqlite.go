package browsercookies

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// chromeEpochOffset is the number of seconds from 1601-01-01 to 1970-01-01
const chromeEpochOffset int64 = 11_644_473_600

func chromeToUnix(usec int64) int64 {
	return usec/1_000_000 - chromeEpochOffset
}

func unixToChrome(sec int64) int64 {
	return (sec + chromeEpochOffset) * 1_000_000
}

const firefoxQuery = `
	SELECT name, value, host, path, expiry
	FROM moz_cookies
	WHERE (host = ? OR host = ? OR host LIKE ?) AND expiry > ?
	ORDER BY name ASC`

// Encrypted Chrome values live in encrypted_value and leave value empty
const chromeQuery = `
	SELECT name, value, host_key, path, expires_utc
	FROM cookies
	WHERE (host_key = ? OR host_key = ? OR host_key LIKE ?) AND value != '' AND expires_utc > ?
	ORDER BY name ASC`

// ReadFirefox returns the unexpired cookies for domain from a Firefox
// cookies.sqlite file
func ReadFirefox(dbPath, domain string, now time.Time) ([]Cookie, error) {
	return querySQLite(dbPath, firefoxQuery, domain, now.Unix(), func(expiry int64) time.Time {
		return time.Unix(expiry, 0)
	})
}

// ReadChrome returns the unexpired, unencrypted cookies for domain from a
// Chrome Cookies file
func ReadChrome(dbPath, domain string, now time.Time) ([]Cookie, error) {
	return querySQLite(dbPath, chromeQuery, domain, unixToChrome(now.Unix()), func(expiry int64) time.Time {
		return time.Unix(chromeToUnix(expiry), 0)
	})
}

func querySQLite(dbPath, query, domain string, notBefore int64, toTime func(int64) time.Time) ([]Cookie, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?immutable=1", dbPath))
	if err != nil {
		return nil, fmt.Errorf("cannot open cookie database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(query, domain, "."+domain, "%."+domain, notBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to query cookies: %w", err)
	}
	defer rows.Close()

	var cookies []Cookie
	for rows.Next() {
		var (
			c      Cookie
			expiry int64
		)
		if err := rows.Scan(&c.Name, &c.Value, &c.Domain, &c.Path, &expiry); err != nil {
			return nil, fmt.Errorf("failed to scan cookie row: %w", err)
		}
		c.Expiry = toTime(expiry)
		cookies = append(cookies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cookie rows: %w", err)
	}
	return cookies, nil
}

// copyDatabase copies srcPath and its -wal and -shm companions into a temp
// directory so the browser's lock on the live file does not get in the way.
// The caller must run cleanup.
func copyDatabase(srcPath string) (copied string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "igunfollow-cookies-*")
	if err != nil {
		return "", nil, fmt.Errorf("cannot create temp directory: %w", err)
	}
	cleanup = func() { os.RemoveAll(dir) }

	copied = filepath.Join(dir, filepath.Base(srcPath))
	if err := copyFile(srcPath, copied); err != nil {
		cleanup()
		return "", nil, err
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if _, err := os.Stat(srcPath + suffix); err == nil {
			_ = copyFile(srcPath+suffix, copied+suffix)
		}
	}
	return copied, cleanup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("cannot copy %s: %w", src, err)
	}
	return nil
}
