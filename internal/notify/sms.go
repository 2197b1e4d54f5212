package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// SMSConfig configures the HTTP SMS-gateway channel.
type SMSConfig struct {
	GatewayURL string
	Token      string
	Recipients []string
}

// SMSNotifier sends a short text to each recipient through an HTTP SMS
// gateway. Recipients are delivered concurrently; one failed number does
// not block the rest.
type SMSNotifier struct {
	cfg        SMSConfig
	httpClient *http.Client
}

// NewSMSNotifier creates the SMS channel.
func NewSMSNotifier(cfg SMSConfig) *SMSNotifier {
	return &SMSNotifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (n *SMSNotifier) Name() string { return "sms" }

func (n *SMSNotifier) Send(ctx context.Context, summary Summary) error {
	message := summary.Subject()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []string
	)
	for _, recipient := range n.cfg.Recipients {
		wg.Add(1)
		go func(to string) {
			defer wg.Done()
			if err := n.sendOne(ctx, to, message); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", to, err))
				mu.Unlock()
			}
		}(recipient)
	}
	wg.Wait()

	if len(failures) > 0 {
		return fmt.Errorf("sms delivery failed for %s", strings.Join(failures, "; "))
	}
	return nil
}

func (n *SMSNotifier) sendOne(ctx context.Context, to, message string) error {
	form := url.Values{}
	form.Set("to", to)
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.GatewayURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if n.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting sms: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
