package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"igunfollow/pkg/logger"
)

// Loader resolves the cookie set for a run: environment overrides first,
// then the configured store, then an interactive prompt whose answers are
// saved back to the store.
type Loader struct {
	Store Store
	Env   Store
	In    io.Reader
	Out   io.Writer
	Log   logger.Logger

	reader *bufio.Reader
}

// NewLoader creates a loader over store that prompts on stdin and stdout
func NewLoader(store Store) *Loader {
	return &Loader{
		Store: store,
		Env:   NewEnvironmentStore(),
		In:    os.Stdin,
		Out:   os.Stdout,
		Log:   logger.GetLogger(),
	}
}

// Load returns a complete cookie set, prompting when nothing usable is stored
func (l *Loader) Load(ctx context.Context) (*CookieSet, error) {
	if l.Env != nil {
		if cookies, err := l.Env.Load(); err == nil {
			l.Log.Debug("Using cookies from environment")
			return cookies, nil
		}
	}

	cookies, err := l.Store.Load()
	switch {
	case err == nil:
		fmt.Fprintf(l.Out, "Using saved cookies (delete %s to re-enter)\n", l.Store.Location())
		return cookies, nil
	case errors.Is(err, ErrCredentialsNotFound):
	default:
		// An unreadable store is replaced by fresh answers
		l.Log.WithError(err).Warn("Failed to load saved cookies")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return l.Prompt()
}

// Prompt asks for each cookie, saves the answers and returns them.
// Values are trimmed but otherwise accepted as typed.
func (l *Loader) Prompt() (*CookieSet, error) {
	fmt.Fprintln(l.Out, "Enter your Instagram cookies (from browser DevTools → Application → Cookies):")
	fmt.Fprintln(l.Out)

	var cookies CookieSet
	fields := []struct {
		name string
		dst  *string
	}{
		{"sessionid", &cookies.SessionID},
		{"csrftoken", &cookies.CSRFToken},
		{"ds_user_id", &cookies.DSUserID},
	}
	for _, f := range fields {
		value, err := l.readValue(f.name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.name, err)
		}
		*f.dst = value
	}

	if err := l.Store.Save(&cookies); err != nil {
		return nil, fmt.Errorf("failed to save cookies: %w", err)
	}
	fmt.Fprintf(l.Out, "\nCookies saved to %s\n\n", l.Store.Location())
	l.Log.InfoWithFields("Cookies saved", map[string]interface{}{
		"store":      l.Store.Location(),
		"ds_user_id": cookies.DSUserID,
	})

	return &cookies, nil
}

// readValue reads one answer, hiding the echo when input is a terminal
func (l *Loader) readValue(name string) (string, error) {
	fmt.Fprintf(l.Out, "  %s: ", name)

	if f, ok := l.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(l.Out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	if l.reader == nil {
		l.reader = bufio.NewReader(l.In)
	}
	line, err := l.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
