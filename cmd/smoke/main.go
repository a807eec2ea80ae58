// Command smoke exercises a running server: it registers a throwaway user,
// logs in, bursts messages at the welcome session and prints the status
// code distribution.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type client struct {
	base  string
	http  *http.Client
	token string
}

func (c *client) call(method, path string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func run(base string, n, workers int) error {
	c := &client{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: 90 * time.Second}}

	email := "smoke-" + uuid.NewString()[:8] + "@example.com"
	status, err := c.call(http.MethodPost, "/register", map[string]string{
		"name": "Smoke Test", "email": email, "password": "smoke-pass",
	}, nil)
	if err != nil || status != http.StatusCreated {
		return fmt.Errorf("register: status=%d err=%v", status, err)
	}

	var login struct {
		AccessToken string `json:"accessToken"`
	}
	status, err = c.call(http.MethodPost, "/login", map[string]string{"email": email, "password": "smoke-pass"}, &login)
	if err != nil || status != http.StatusOK {
		return fmt.Errorf("login: status=%d err=%v", status, err)
	}
	c.token = login.AccessToken

	var sessions struct {
		Sessions []struct {
			ID string `json:"id"`
		} `json:"sessions"`
	}
	status, err = c.call(http.MethodGet, "/sessions", nil, &sessions)
	if err != nil || status != http.StatusOK || len(sessions.Sessions) == 0 {
		return fmt.Errorf("sessions: status=%d err=%v", status, err)
	}
	sessionID := sessions.Sessions[0].ID
	fmt.Printf("[smoke] user=%s session=%s sending %d messages with %d workers\n", email, sessionID, n, workers)

	var (
		mu     sync.Mutex
		counts = map[int]int{}
		wg     sync.WaitGroup
		jobs   = make(chan int)
	)
	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				st, err := c.call(http.MethodPost, "/send", map[string]string{
					"sessionId": sessionID,
					"text":      fmt.Sprintf("smoke message #%d", i),
				}, nil)
				if err != nil {
					fmt.Printf("[smoke] #%d error: %v\n", i, err)
				}
				mu.Lock()
				counts[st]++
				mu.Unlock()
			}
		}()
	}
	for i := 1; i <= n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	fmt.Printf("[smoke] done in %s\n", time.Since(start).Round(time.Millisecond))
	for _, code := range codes {
		label := http.StatusText(code)
		if code == 0 {
			label = "transport error"
		}
		fmt.Printf("  %d %-22s %d\n", code, label, counts[code])
	}
	if counts[http.StatusCreated] == 0 {
		return errors.New("no message was accepted")
	}
	return nil
}

func main() {
	base := flag.String("base", "http://localhost:5000", "server base URL")
	n := flag.Int("n", 15, "number of messages to send")
	workers := flag.Int("workers", 3, "concurrent senders")
	flag.Parse()

	if err := run(*base, *n, max(*workers, 1)); err != nil {
		fmt.Fprintf(os.Stderr, "[smoke] %v\n", err)
		os.Exit(1)
	}
}
