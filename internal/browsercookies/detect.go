package browsercookies

import (
	"bufio"
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

var sqliteHeader = []byte("SQLite format 3\x00")

// DetectFormat inspects path and reports which kind of cookie store it is
func DetectFormat(path string) (Format, error) {
	if err := checkFile(path); err != nil {
		return FormatUnknown, err
	}

	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("cannot open cookie file: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(sqliteHeader))
	n, err := io.ReadFull(f, header)
	if err == nil && bytes.Equal(header[:n], sqliteHeader) {
		return detectSQLiteSchema(path)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return FormatUnknown, fmt.Errorf("cannot read cookie file: %w", err)
	}
	first, _ := bufio.NewReader(f).ReadString('\n')
	first = strings.TrimRight(first, "\r\n")
	if first == "# Netscape HTTP Cookie File" || first == "# HTTP Cookie File" {
		return FormatNetscape, nil
	}

	return FormatUnknown, fmt.Errorf("unsupported cookie store format: %s", path)
}

func detectSQLiteSchema(path string) (Format, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return FormatUnknown, fmt.Errorf("cannot open SQLite database: %w", err)
	}
	defer db.Close()

	tables := map[string]Format{
		"moz_cookies": FormatFirefox,
		"cookies":     FormatChrome,
	}
	for _, table := range []string{"moz_cookies", "cookies"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err == nil {
			return tables[table], nil
		}
	}

	return FormatUnknown, fmt.Errorf("unsupported cookie database schema: %s", path)
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cookie file not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a cookie file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("cookie file %s is empty", path)
	}
	return nil
}
