package cli

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ParseRequestToken extracts the request token from the broker's login
// redirect. input may be the full redirect URL, its query string, or the
// raw token. A redirect that carries a status must report success.
func ParseRequestToken(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("request token cannot be empty")
	}
	if !strings.ContainsAny(input, "?=&/") {
		return input, nil
	}

	query := input
	if i := strings.Index(input, "?"); i >= 0 {
		query = input[i+1:]
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	if status := values.Get("status"); status != "" && status != "success" {
		return "", fmt.Errorf("login was not successful: status %q", status)
	}
	token := strings.TrimSpace(values.Get("request_token"))
	if token == "" {
		return "", errors.New("redirect URL has no request_token")
	}
	return token, nil
}

// RedirectListener receives a single login redirect on a local address.
type RedirectListener struct {
	ln     net.Listener
	srv    *http.Server
	result chan redirectResult
}

type redirectResult struct {
	token string
	err   error
}

const redirectPage = `<html><body><h3>%s</h3><p>You can close this window and return to the terminal.</p></body></html>`

// ListenForRedirect starts the callback server on addr, e.g. "127.0.0.1:5000".
func ListenForRedirect(addr string) (*RedirectListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for login redirect: %w", err)
	}
	rl := &RedirectListener{ln: ln, result: make(chan redirectResult, 1)}

	mux := http.NewServeMux()
	mux.HandleFunc("/", rl.handle)
	rl.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		_ = rl.srv.Serve(ln)
	}()
	return rl, nil
}

// Addr is the bound address, useful when addr used port 0.
func (rl *RedirectListener) Addr() string {
	return rl.ln.Addr().String()
}

func (rl *RedirectListener) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("request_token") == "" && r.URL.Query().Get("status") == "" {
		http.NotFound(w, r)
		return
	}
	token, err := ParseRequestToken("?" + r.URL.RawQuery)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, redirectPage, html.EscapeString("Login failed: "+err.Error()))
	} else {
		fmt.Fprintf(w, redirectPage, "Login received")
	}
	select {
	case rl.result <- redirectResult{token: token, err: err}:
	default:
	}
}

// Wait blocks until the first redirect arrives or ctx ends, then shuts the
// server down.
func (rl *RedirectListener) Wait(ctx context.Context) (string, error) {
	defer rl.Close()
	select {
	case res := <-rl.result:
		return res.token, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (rl *RedirectListener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return rl.srv.Shutdown(ctx)
}
