// Package oauth provides the local redirect endpoint and browser helper used
// to authorise catalog providers.
package oauth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// Callback errors.
var (
	ErrStateMismatch = errors.New("oauth: state mismatch")
	ErrNoCode        = errors.New("oauth: no authorization code received")
)

// callbackPath is where the provider redirects after consent.
const callbackPath = "/callback"

type callbackResult struct {
	code string
	err  error
}

// CallbackServer receives the authorization redirect on the loopback interface.
// Only the first callback is delivered; later ones are answered but dropped.
type CallbackServer struct {
	mu            sync.Mutex
	port          int
	expectedState string
	results       chan callbackResult
	server        *http.Server
}

// NewCallbackServer creates a callback server for one authorization attempt.
// A port of 0 picks a free port on Start.
func NewCallbackServer(port int, expectedState string) *CallbackServer {
	return &CallbackServer{
		port:          port,
		expectedState: expectedState,
		results:       make(chan callbackResult, 1),
	}
}

// Start listens on 127.0.0.1 and serves the callback in the background.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+callbackPath, s.handleCallback)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.deliver(callbackResult{err: err})
		}
	}()
	return nil
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if reason := query.Get("error"); reason != "" {
		s.deliver(callbackResult{err: fmt.Errorf("oauth: authorization denied: %s", reason)})
		fmt.Fprint(w, resultPage("Authorization failed", reason))
		return
	}
	if query.Get("state") != s.expectedState {
		s.deliver(callbackResult{err: ErrStateMismatch})
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, resultPage("Authorization failed", "The request did not match this session."))
		return
	}
	code := query.Get("code")
	if code == "" {
		s.deliver(callbackResult{err: ErrNoCode})
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, resultPage("Authorization failed", "No authorization code was received."))
		return
	}

	s.deliver(callbackResult{code: code})
	fmt.Fprint(w, resultPage("sercha-music is authorised", "You can close this window and return to the terminal."))
}

// deliver records the first outcome and drops the rest.
func (s *CallbackServer) deliver(r callbackResult) {
	select {
	case s.results <- r:
	default:
	}
}

// WaitForCode blocks until the callback arrives or ctx is done.
func (s *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	select {
	case r := <-s.results:
		return r.code, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Stop shuts down the server. It is safe to call more than once.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	s.server = nil
	return err
}

// Port returns the listening port once started.
func (s *CallbackServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// RedirectURI is the URI to register with the provider. Spotify requires a
// loopback IP literal rather than "localhost".
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", s.Port(), callbackPath)
}

// NewState returns a random value for the OAuth state parameter.
func NewState() string {
	return rand.Text()
}

func resultPage(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>sercha-music</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
               display: flex; justify-content: center; align-items: center; height: 100vh;
               margin: 0; background: #121212; color: #FFFFFF; }
        .card { text-align: center; padding: 48px 64px; border-radius: 16px; background: #181818; }
        h1 { color: #1DB954; margin: 0 0 8px 0; font-size: 24px; }
        p { color: #B3B3B3; margin: 0; font-size: 16px; }
    </style>
</head>
<body>
    <div class="card">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(message))
}

// OpenBrowser opens url in the default browser.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
