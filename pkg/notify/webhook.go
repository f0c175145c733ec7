package notify

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"io"
	"net/http"
	"text/template"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"hooksync/pkg/config"
)

//go:embed templates
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	"truncate": func(n int, s string) string {
		runes := []rune(s)
		if len(runes) <= n {
			return s
		}
		return string(runes[:n-1]) + "…"
	},
}

type message struct {
	Message   string
	Timestamp string
}

// WebhookSink posts a rendered JSON payload to an incoming webhook URL.
// Discord, Slack and Teams differ only in their payload templates.
type WebhookSink struct {
	service       string
	completionURL string
	errorURL      string
	completion    *template.Template
	failure       *template.Template
	client        *http.Client
	now           func() time.Time
	logger        zerolog.Logger
}

// NewDiscord creates a Discord webhook sink
func NewDiscord(cfg config.WebhookChannel, opts ...Option) (*WebhookSink, error) {
	return newWebhookSink(config.ChannelDiscord, cfg, opts)
}

// NewSlack creates a Slack webhook sink
func NewSlack(cfg config.WebhookChannel, opts ...Option) (*WebhookSink, error) {
	return newWebhookSink(config.ChannelSlack, cfg, opts)
}

// NewTeams creates a Microsoft Teams webhook sink
func NewTeams(cfg config.WebhookChannel, opts ...Option) (*WebhookSink, error) {
	return newWebhookSink(config.ChannelTeams, cfg, opts)
}

func newWebhookSink(service string, cfg config.WebhookChannel, opts []Option) (*WebhookSink, error) {
	completion, err := parseTemplate(service, "completion")
	if err != nil {
		return nil, err
	}
	failure, err := parseTemplate(service, "error")
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	return &WebhookSink{
		service:       service,
		completionURL: cfg.CompletionURL,
		errorURL:      cfg.ErrorURL,
		completion:    completion,
		failure:       failure,
		client:        o.httpClient,
		now:           o.now,
		logger:        o.logger.With().Str("channel", service).Logger(),
	}, nil
}

func parseTemplate(service, kind string) (*template.Template, error) {
	path := "templates/" + service + "/" + kind + ".json"
	tmpl, err := template.New(kind + ".json").Funcs(templateFuncs).ParseFS(templateFS, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s template", path)
	}
	return tmpl, nil
}

// NotifyCompletion implements Sink
func (s *WebhookSink) NotifyCompletion(ctx context.Context, summary string) error {
	return s.send(ctx, s.completionURL, s.completion, summary)
}

// NotifyError implements Sink
func (s *WebhookSink) NotifyError(ctx context.Context, msg string) error {
	return s.send(ctx, s.errorURL, s.failure, msg)
}

func (s *WebhookSink) render(tmpl *template.Template, text string) ([]byte, error) {
	var buf bytes.Buffer
	data := message{
		Message:   text,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, errors.Wrapf(err, "failed to render %s payload", s.service)
	}
	return buf.Bytes(), nil
}

func (s *WebhookSink) send(ctx context.Context, target string, tmpl *template.Template, text string) error {
	payload, err := s.render(tmpl, text)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "failed to build %s request", s.service)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to post %s notification", s.service)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("%s webhook returned status %d: %s", s.service, resp.StatusCode, bytes.TrimSpace(body))
	}

	s.logger.Debug().Int("status", resp.StatusCode).Msg("Webhook notification sent")
	return nil
}
