package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/akmatori/zabbix-reports/internal/utils"
)

// Summary describes a finished export
type Summary struct {
	Kind       string
	Server     string
	OutputPath string
	Exported   int
	Problems   int
	Skipped    int
	Warnings   []string
	Duration   time.Duration
}

// Config for the Slack notifier
type Config struct {
	BotToken string
	Channel  string
	ProxyURL string
	// APIURL overrides the Slack Web API base, used by tests
	APIURL string
}

// SlackNotifier posts export summaries to a channel
type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  *log.Logger
}

// NewSlackNotifier returns nil when no token or channel is configured, which
// callers treat as notifications disabled
func NewSlackNotifier(cfg Config, logger *log.Logger) *SlackNotifier {
	if cfg.BotToken == "" || cfg.Channel == "" {
		return nil
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	options := []slack.Option{slack.OptionDebug(false)}
	if cfg.APIURL != "" {
		options = append(options, slack.OptionAPIURL(cfg.APIURL))
	}
	if cfg.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.ProxyURL); err == nil {
			options = append(options, slack.OptionHTTPClient(&http.Client{
				Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
			}))
			logger.Printf("Slack notifier: Using proxy: %s", cfg.ProxyURL)
		}
	}

	return &SlackNotifier{
		client:  slack.New(cfg.BotToken, options...),
		channel: cfg.Channel,
		logger:  logger,
	}
}

// NotifyExport posts s. A nil notifier does nothing.
func (n *SlackNotifier) NotifyExport(ctx context.Context, s Summary) error {
	if n == nil {
		return nil
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(FormatSummary(s), false),
	)
	if err != nil {
		return fmt.Errorf("failed to post export summary to %s: %w", n.channel, err)
	}
	n.logger.Printf("Posted export summary to %s", n.channel)
	return nil
}

// FormatSummary renders s as a Slack message
func FormatSummary(s Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, ":bar_chart: *Zabbix %s export finished*\n", s.Kind)
	fmt.Fprintf(&b, "Server: %s\n", s.Server)
	fmt.Fprintf(&b, "Rows: %s, %s highlighted", utils.Plural(s.Exported, "row"), utils.FormatNumber(s.Problems))
	if s.Skipped > 0 {
		fmt.Fprintf(&b, ", %s skipped", utils.FormatNumber(s.Skipped))
	}
	b.WriteString("\n")
	if s.OutputPath != "" {
		fmt.Fprintf(&b, "File: `%s`\n", s.OutputPath)
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(&b, ":warning: %s\n", utils.TruncateText(w, 200))
	}
	fmt.Fprintf(&b, "Time: %s", utils.FormatDuration(s.Duration))

	return b.String()
}
