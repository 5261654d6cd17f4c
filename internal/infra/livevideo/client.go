package livevideo

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/key-forr/keytostream-backend/internal/infra/httpclient"
)

// Client talks to the live-video server's ingress API. Requests are
// authorized with short-lived HS256 tokens signed by the shared API secret.
type Client struct {
	apiURL     string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	now        func() time.Time
}

type IngressInfo struct {
	IngressID string `json:"ingress_id"`
	URL       string `json:"url"`
	StreamKey string `json:"stream_key"`
}

type WebhookEvent struct {
	Event     string `json:"event"`
	IngressID string `json:"ingress_id"`
	RoomName  string `json:"room_name"`
}

const (
	WebhookEventIngressStarted = "ingress_started"
	WebhookEventIngressEnded   = "ingress_ended"
)

func NewClient(apiURL, apiKey, apiSecret string) (*Client, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("live video api url is required")
	}

	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: httpclient.New(15 * time.Second),
		now:        time.Now,
	}, nil
}

func (c *Client) CreateIngress(ctx context.Context, roomName, participantName string) (IngressInfo, error) {
	if strings.TrimSpace(roomName) == "" {
		return IngressInfo{}, fmt.Errorf("room name is required")
	}

	payload := map[string]string{
		"room_name":        roomName,
		"participant_name": participantName,
		"input_type":       "rtmp",
	}

	var info IngressInfo
	if err := c.post(ctx, "/ingress/create", payload, &info); err != nil {
		return IngressInfo{}, fmt.Errorf("create ingress: %w", err)
	}
	if strings.TrimSpace(info.IngressID) == "" {
		return IngressInfo{}, fmt.Errorf("ingress server returned empty ingress id")
	}

	return info, nil
}

func (c *Client) DeleteIngress(ctx context.Context, ingressID string) error {
	if strings.TrimSpace(ingressID) == "" {
		return nil
	}

	payload := map[string]string{"ingress_id": ingressID}
	if err := c.post(ctx, "/ingress/delete", payload, nil); err != nil {
		return fmt.Errorf("delete ingress: %w", err)
	}

	return nil
}

// VerifyWebhook checks the Authorization token of a webhook delivery against
// the shared secret and the body digest, then decodes the event.
func (c *Client) VerifyWebhook(authToken string, body []byte) (WebhookEvent, error) {
	if strings.TrimSpace(authToken) == "" {
		return WebhookEvent{}, fmt.Errorf("webhook auth token is missing")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(authToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(c.apiSecret), nil
	})
	if err != nil || !token.Valid {
		return WebhookEvent{}, fmt.Errorf("invalid webhook token: %w", err)
	}

	digest, _ := claims["sha256"].(string)
	sum := sha256.Sum256(body)
	if digest != base64.StdEncoding.EncodeToString(sum[:]) {
		return WebhookEvent{}, fmt.Errorf("webhook body digest mismatch")
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode webhook event: %w", err)
	}

	return event, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	accessToken, err := c.accessToken()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected ingress api status: %d", resp.StatusCode)
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) accessToken() (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"iss": c.apiKey,
		"iat": now.Unix(),
		"exp": now.Add(time.Minute).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.apiSecret))
	if err != nil {
		return "", fmt.Errorf("sign ingress api token: %w", err)
	}

	return token, nil
}
