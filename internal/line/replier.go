package line

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Replier sends text replies through the Messaging API.
type Replier struct {
	api *messaging_api.MessagingApiAPI
}

// ReplierConfig configures the Messaging API client.
type ReplierConfig struct {
	ChannelAccessToken string
	// Endpoint overrides https://api.line.me, mainly for tests.
	Endpoint string
	Timeout  time.Duration
}

// NewReplier builds a Messaging API client with a pooled HTTP transport.
func NewReplier(cfg ReplierConfig) (*Replier, error) {
	opts := []messaging_api.MessagingApiAPIOption{
		messaging_api.WithHTTPClient(newHTTPClient(cfg.Timeout)),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, messaging_api.WithEndpoint(cfg.Endpoint))
	}

	api, err := messaging_api.NewMessagingApiAPI(cfg.ChannelAccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("line messaging api: %w", err)
	}
	return &Replier{api: api}, nil
}

// Reply sends a single text message for replyToken. The shared SDK client
// stores its context on the client itself, so ctx is not passed down; the
// HTTP client timeout bounds the call instead.
func (r *Replier) Reply(_ context.Context, replyToken, text string) error {
	_, err := r.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("line reply message: %w", err)
	}
	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
