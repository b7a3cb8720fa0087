// Package dialogflow answers messages with Dialogflow ES DetectIntent.
package dialogflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	dialogflow "cloud.google.com/go/dialogflow/apiv2"
	"cloud.google.com/go/dialogflow/apiv2/dialogflowpb"
	"github.com/google/uuid"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/vovakirdan/dialogline/internal/config"
)

// maxSessionIDLen is the longest session id Dialogflow accepts.
const maxSessionIDLen = 36

// errNoQueryResult marks a response without a query result.
var errNoQueryResult = errors.New("dialogflow response has no query result")

type sessionsAPI interface {
	DetectIntent(ctx context.Context, req *dialogflowpb.DetectIntentRequest, opts ...gax.CallOption) (*dialogflowpb.DetectIntentResponse, error)
	Close() error
}

// Client implements relay.Detector on a Dialogflow SessionsClient.
type Client struct {
	sessions  sessionsAPI
	projectID string
	timeout   time.Duration
}

// New dials Dialogflow. Without a credentials file the application default
// credentials are used, which honour GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg config.DialogflowConfig) (*Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	sessions, err := dialogflow.NewSessionsClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dialogflow sessions client: %w", err)
	}
	return newClient(sessions, cfg.ProjectID, cfg.Timeout), nil
}

func newClient(sessions sessionsAPI, projectID string, timeout time.Duration) *Client {
	return &Client{
		sessions:  sessions,
		projectID: projectID,
		timeout:   timeout,
	}
}

// DetectIntent sends text to the agent and returns the fulfillment text,
// which may be empty.
func (c *Client) DetectIntent(ctx context.Context, sessionKey, text, languageCode string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.sessions.DetectIntent(ctx, &dialogflowpb.DetectIntentRequest{
		Session: SessionPath(c.projectID, sessionKey),
		QueryInput: &dialogflowpb.QueryInput{
			Input: &dialogflowpb.QueryInput_Text{
				Text: &dialogflowpb.TextInput{
					Text:         text,
					LanguageCode: languageCode,
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("detect intent: %w", err)
	}

	result := resp.GetQueryResult()
	if result == nil {
		return "", errNoQueryResult
	}
	return result.GetFulfillmentText(), nil
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	return c.sessions.Close()
}

// SessionPath returns the agent session resource name for sessionKey.
func SessionPath(projectID, sessionKey string) string {
	return fmt.Sprintf("projects/%s/agent/sessions/%s", projectID, SessionID(sessionKey))
}

// SessionID returns sessionKey when Dialogflow accepts it as is, otherwise a
// name-based UUID of it. Either way the same key always maps to the same session.
func SessionID(sessionKey string) string {
	if len(sessionKey) <= maxSessionIDLen {
		return sessionKey
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sessionKey)).String()
}
