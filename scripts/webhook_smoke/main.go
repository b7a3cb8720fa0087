package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

func main() {
	if err := run(); err != nil {
		log.Printf("webhook_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "http://localhost:5000/callback", "callback URL")
	secret := flag.String("secret", os.Getenv("LINE_CHANNEL_SECRET"), "channel secret used to sign the body")
	source := flag.String("source", "user", "event source: user, group or room")
	user := flag.String("user", "Usmoke", "sender user id")
	text := flag.String("text", "สวัสดี", "message text")
	timeout := flag.Duration("timeout", 15*time.Second, "request timeout")
	flag.Parse()

	if *secret == "" {
		return fmt.Errorf("channel secret is required (-secret or LINE_CHANNEL_SECRET)")
	}

	src := map[string]string{"type": *source, "userId": *user}
	switch *source {
	case "group":
		src["groupId"] = "Gsmoke"
	case "room":
		src["roomId"] = "Rsmoke"
	}

	body, err := json.Marshal(map[string]any{
		"destination": "Usmokebot",
		"events": []map[string]any{{
			"type":            "message",
			"mode":            "active",
			"timestamp":       time.Now().UnixMilli(),
			"webhookEventId":  uuid.NewString(),
			"deliveryContext": map[string]bool{"isRedelivery": false},
			"replyToken":      uuid.NewString(),
			"source":          src,
			"message": map[string]string{
				"type":       "text",
				"id":         "1",
				"quoteToken": "smoke",
				"text":       *text,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(*secret))
	mac.Write(body)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *addr, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Line-Signature", base64.StdEncoding.EncodeToString(mac.Sum(nil)))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("status=%d request_id=%s body=%s\n", resp.StatusCode, resp.Header.Get("X-Request-ID"), respBody)
	// The reply token is made up, so LINE rejects the reply and 500 is expected against the real API.
	return nil
}
