package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
)

var (
	failFirstN  = 0
	reqCount    = 0
	apiKey      = ""
	rejectAddrs = map[string]struct{}{}
)

func main() {
	// Parse fail first settings
	if v := os.Getenv("FAIL_FIRST_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			failFirstN = n
		}
	}
	// Parse expected API key
	if v := os.Getenv("MAIL_API_KEY"); v != "" {
		apiKey = v
	}
	// Parse addresses that always bounce, comma separated
	if v := os.Getenv("REJECT_ADDRS"); v != "" {
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				rejectAddrs[a] = struct{}{}
			}
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
	mux.HandleFunc("/v1/messages", handleMessage)

	addr := ":8085"
	log.Printf("fake-mailsink listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func handleMessage(w http.ResponseWriter, r *http.Request) {
	reqCount++

	if apiKey != "" {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer "+apiKey {
			log.Printf("fake-mailsink rejected request: bad api key")
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
	}

	var msg struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Subject string `json:"subject"`
		HTML    string `json:"html"`
		Text    string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	if _, bounce := rejectAddrs[msg.To]; bounce {
		log.Printf("fake-mailsink BOUNCE to=%s subject=%q", msg.To, msg.Subject)
		http.Error(w, "address rejected", http.StatusUnprocessableEntity)
		return
	}

	// Simulate flakiness: first N requests -> 500
	if reqCount <= failFirstN {
		log.Printf("FAILING (%d/%d) to=%s subject=%q", reqCount, failFirstN, msg.To, msg.Subject)
		http.Error(w, "temporary failure", http.StatusInternalServerError)
		return
	}

	log.Printf("fake-mailsink OK to=%s subject=%q text=%q", msg.To, msg.Subject, truncate(msg.Text, 120))
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"accepted":true}`))
}

// truncate truncates a string to the specified length and adds an ellipsis if truncated
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
