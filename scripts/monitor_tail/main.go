package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/dialogline/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("monitor_tail: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("addr", "http://localhost:5000", "server base URL")
	user := flag.String("user", "admin", "admin username")
	password := flag.String("password", os.Getenv("DIALOGLINE_ADMIN_PASSWORD"), "admin password")
	token := flag.String("token", "", "use this token instead of logging in")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *token == "" {
		t, err := login(ctx, *base, *user, *password)
		if err != nil {
			return err
		}
		*token = t
	}

	wsURL := strings.Replace(*base, "http", "ws", 1) + "/ws?token=" + url.QueryEscape(*token)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	for {
		var raw struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch {
		case raw.Type == proto.OutboundTypeHello:
			var hello proto.HelloData
			_ = json.Unmarshal(raw.Data, &hello)
			fmt.Printf("connected as %s (protocol %d)\n", hello.User, hello.Protocol)
		case raw.Type == proto.OutboundTypeEvent && raw.Event == proto.EventExchange:
			var ex proto.ExchangeData
			if err := json.Unmarshal(raw.Data, &ex); err != nil {
				log.Printf("bad exchange payload: %v", err)
				continue
			}
			fmt.Printf("[%s] %s/%s %q -> %q (%s, delivered=%t)\n",
				ex.Source, ex.ChatID, ex.SenderID, ex.InboundText, ex.ReplyText, ex.ReplyKind, ex.Delivered)
		case raw.Error != nil:
			fmt.Printf("error: %s %s\n", raw.Error.Code, raw.Error.Msg)
		}
	}
}

func login(ctx context.Context, base, user, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": user, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	return out.Token, nil
}
