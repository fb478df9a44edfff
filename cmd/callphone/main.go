// Callphone places a phone alert through a callspool relay.
//
// Usage:
//
//	callphone [flags] <message> [to]
//
// The relay endpoint and credentials come from the environment:
//
//	CALLSPOOL_RELAY_URL    base URL of the relay (e.g. http://pbx:18511)
//	CALLSPOOL_AUTH_TOKEN   shared token presented as X-Relay-Token
//	CALLSPOOL_OWNER_PHONE  default destination when [to] is omitted
//
// The relay's JSON response is printed to stdout and the exit code is 0
// only when the relay reports status "ok", so callers can script against
// either.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses arguments, places the call and prints the relay's response.
// It is the whole program behind main, kept separate so tests can drive
// it end to end.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("callphone", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("version", false, "print version and exit")
	timeout := fs.Duration("timeout", 15*time.Second, "relay request timeout")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: callphone [flags] <message> [to]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "callphone %s\n", version)
		return 0
	}

	rest := fs.Args()
	if len(rest) < 1 {
		fs.Usage()
		return 1
	}
	message := rest[0]
	to := os.Getenv("CALLSPOOL_OWNER_PHONE")
	if len(rest) > 1 {
		to = rest[1]
	}

	result := place(message, to, *timeout)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintln(stderr, "encoding result:", err)
		return 1
	}

	if result["status"] == "ok" {
		return 0
	}
	return 1
}

// place validates the environment and sends the alert to the relay.
// Misconfiguration comes back as the same error envelope the relay uses,
// never as a panic or a bare exit, so scripted callers see one shape.
func place(message, to string, timeout time.Duration) map[string]any {
	token := os.Getenv("CALLSPOOL_AUTH_TOKEN")
	relayURL := os.Getenv("CALLSPOOL_RELAY_URL")
	switch {
	case token == "":
		return errorResult("CALLSPOOL_AUTH_TOKEN not set in environment")
	case relayURL == "":
		return errorResult("CALLSPOOL_RELAY_URL not set in environment")
	case to == "":
		return errorResult("no destination: set CALLSPOOL_OWNER_PHONE or pass a number")
	}

	client := &http.Client{Timeout: timeout}
	return call(client, relayURL, token, to, message)
}

// call POSTs the alert and decodes the relay's JSON envelope. The relay
// answers with the envelope on failures too, so the body is decoded
// regardless of the HTTP status code.
func call(client *http.Client, relayURL, token, to, message string) map[string]any {
	payload, err := json.Marshal(map[string]string{"to": to, "message": message})
	if err != nil {
		return errorResult(err.Error())
	}

	req, err := http.NewRequest(http.MethodPost,
		strings.TrimRight(relayURL, "/")+"/call", bytes.NewReader(payload))
	if err != nil {
		return errorResult(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Relay-Token", token)

	resp, err := client.Do(req)
	if err != nil {
		return errorResult(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errorResult(err.Error())
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil || result == nil {
		// Not the relay's envelope — likely a proxy or LB error page.
		return map[string]any{
			"status": "error",
			"code":   resp.StatusCode,
			"reason": strings.TrimSpace(string(body)),
		}
	}
	if resp.StatusCode >= 400 {
		if _, ok := result["code"]; !ok {
			result["code"] = resp.StatusCode
		}
	}
	return result
}

func errorResult(reason string) map[string]any {
	return map[string]any{"status": "error", "reason": reason}
}
