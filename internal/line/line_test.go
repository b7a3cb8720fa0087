package line

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vovakirdan/dialogline/internal/relay"
)

const testSecret = "channel-secret"

const callbackBody = `{
  "destination": "Ubot",
  "events": [
    {
      "type": "message",
      "mode": "active",
      "timestamp": 1700000000000,
      "webhookEventId": "01HEVT1",
      "deliveryContext": {"isRedelivery": false},
      "replyToken": "reply-group",
      "source": {"type": "group", "groupId": "G1", "userId": "U123"},
      "message": {"type": "text", "id": "1", "quoteToken": "q1", "text": "@น้องสวพ. สวัสดี"}
    },
    {
      "type": "message",
      "mode": "active",
      "timestamp": 1700000000001,
      "webhookEventId": "01HEVT2",
      "deliveryContext": {"isRedelivery": false},
      "replyToken": "reply-user",
      "source": {"type": "user", "userId": "U456"},
      "message": {"type": "text", "id": "2", "quoteToken": "q2", "text": "hello"}
    },
    {
      "type": "follow",
      "mode": "active",
      "timestamp": 1700000000002,
      "webhookEventId": "01HEVT3",
      "deliveryContext": {"isRedelivery": false},
      "replyToken": "reply-follow",
      "source": {"type": "user", "userId": "U789"},
      "follow": {"isUnblocked": false}
    }
  ]
}`

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newCallbackRequest(body, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Line-Signature", signature)
	}
	return req
}

func TestParseRejectsInvalidSignature(t *testing.T) {
	p := NewParser(testSecret)

	_, err := p.Parse(newCallbackRequest(callbackBody, sign("other-secret", []byte(callbackBody))))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseRejectsMissingSignature(t *testing.T) {
	p := NewParser(testSecret)

	_, err := p.Parse(newCallbackRequest(callbackBody, ""))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseTextEvents(t *testing.T) {
	p := NewParser(testSecret)

	events, err := p.Parse(newCallbackRequest(callbackBody, sign(testSecret, []byte(callbackBody))))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 text events, got %d: %+v", len(events), events)
	}

	group := events[0]
	if group.Source != relay.SourceGroup || group.ChatID != "G1" || group.SenderID != "U123" {
		t.Errorf("unexpected group event: %+v", group)
	}
	if group.Text != "@น้องสวพ. สวัสดี" || group.ReplyToken != "reply-group" || group.EventID != "01HEVT1" {
		t.Errorf("unexpected group event payload: %+v", group)
	}
	if !group.Timestamp.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("timestamp = %v", group.Timestamp)
	}

	direct := events[1]
	if direct.Source != relay.SourceUser || direct.ChatID != "U456" || direct.SenderID != "U456" || direct.Text != "hello" {
		t.Errorf("unexpected direct event: %+v", direct)
	}
}

func TestReplierSendsTextMessage(t *testing.T) {
	var (
		gotPath  string
		gotAuth  string
		gotToken string
		gotTexts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		body, _ := io.ReadAll(r.Body)
		var req struct {
			ReplyToken string `json:"replyToken"`
			Messages   []struct {
				Text string `json:"text"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode reply body: %v", err)
		}
		gotToken = req.ReplyToken
		for _, m := range req.Messages {
			gotTexts = append(gotTexts, m.Text)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sentMessages":[{"id":"100","quoteToken":"q"}]}`))
	}))
	defer srv.Close()

	r, err := NewReplier(ReplierConfig{ChannelAccessToken: "access-token", Endpoint: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewReplier: %v", err)
	}

	if err := r.Reply(context.Background(), "reply-1", "สวัสดีค่ะ"); err != nil {
		t.Fatalf("Reply: %v", err)
	}

	if gotPath != "/v2/bot/message/reply" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer access-token" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotToken != "reply-1" || len(gotTexts) != 1 || gotTexts[0] != "สวัสดีค่ะ" {
		t.Errorf("token = %q texts = %v", gotToken, gotTexts)
	}
}

func TestReplierReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer srv.Close()

	r, err := NewReplier(ReplierConfig{ChannelAccessToken: "access-token", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewReplier: %v", err)
	}
	if err := r.Reply(context.Background(), "expired", "x"); err == nil {
		t.Fatal("expected an error for a 400 response")
	}
}
