package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"golang.org/x/oauth2"
)

// CallbackPath is where the loopback listener receives the authorization code.
const CallbackPath = "/oauth2/callback"

// DefaultAuthTimeout bounds how long the user has to complete consent.
const DefaultAuthTimeout = 5 * time.Minute

// LocalServerAuthorizer runs the OAuth2 authorization code flow with a
// short-lived listener on the loopback interface as redirect target.
type LocalServerAuthorizer struct {
	// ListenAddr defaults to 127.0.0.1:0 (a random free port).
	ListenAddr string

	// Timeout defaults to DefaultAuthTimeout.
	Timeout time.Duration

	// Out receives the instructions and the consent URL. Defaults to stderr.
	Out io.Writer

	// OpenURL is called with the consent URL. Defaults to launching the
	// system browser; failures are ignored since the URL is printed too.
	OpenURL func(url string) error

	Logger *slog.Logger
}

// Authorize implements Authorizer.
func (a *LocalServerAuthorizer) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	listenAddr := a.ListenAddr
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	out := a.Out
	if out == nil {
		out = os.Stderr
	}
	openURL := a.OpenURL
	if openURL == nil {
		openURL = openBrowser
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state, err := randomState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}
	defer ln.Close()

	// work on a copy so the caller's RedirectURL is untouched
	cfg := *conf
	cfg.RedirectURL = fmt.Sprintf("http://%s%s", ln.Addr().String(), CallbackPath)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	report := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			report(fmt.Errorf("authorization denied: %s", e))
			http.Error(w, "Authorization cancelled. You can close this window.", http.StatusOK)
			return
		}
		if q.Get("state") != state {
			report(errors.New("state mismatch in authorization callback"))
			http.Error(w, "State mismatch. You can close this window.", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			report(errors.New("authorization callback carried no code"))
			http.Error(w, "Missing code. You can close this window.", http.StatusBadRequest)
			return
		}
		select {
		case codeCh <- code:
		default:
		}
		_, _ = io.WriteString(w, "Authorization successful. You can close this window.")
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			report(err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintln(out, "Open the following URL in your browser to grant calendar access:")
	fmt.Fprintln(out, authURL)
	fmt.Fprintf(out, "\nWaiting for the redirect to %s ...\n", cfg.RedirectURL)
	if err := openURL(authURL); err != nil {
		logger.Debug("could not open browser", slog.String("error", err.Error()))
	}

	select {
	case code := <-codeCh:
		token, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
		}
		return token, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("authorization timed out after %s", timeout)
		}
		return nil, ctx.Err()
	}
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func openBrowser(u string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", u)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		cmd = exec.Command("xdg-open", u)
	}
	return cmd.Start()
}
