package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"hooksync/pkg/config"
)

const zulipMessagesPath = "/api/v1/messages"

// ZulipSink sends stream messages through the Zulip REST API
type ZulipSink struct {
	site        string
	email       string
	apiKey      string
	stream      string
	errorStream string
	topic       string
	client      *http.Client
	logger      zerolog.Logger
}

type zulipResponse struct {
	Result string `json:"result"`
	Msg    string `json:"msg"`
	ID     int64  `json:"id"`
}

// NewZulip creates a Zulip sink
func NewZulip(cfg config.ZulipConfig, opts ...Option) *ZulipSink {
	o := newOptions(opts)

	errorStream := cfg.ErrorStream
	if errorStream == "" {
		errorStream = cfg.Stream
	}

	return &ZulipSink{
		site:        strings.TrimSuffix(cfg.Site, "/"),
		email:       cfg.Email,
		apiKey:      cfg.APIKey,
		stream:      cfg.Stream,
		errorStream: errorStream,
		topic:       cfg.Topic,
		client:      o.httpClient,
		logger:      o.logger.With().Str("channel", config.ChannelZulip).Logger(),
	}
}

// NotifyCompletion implements Sink
func (z *ZulipSink) NotifyCompletion(ctx context.Context, summary string) error {
	return z.send(ctx, z.stream, summary)
}

// NotifyError implements Sink
func (z *ZulipSink) NotifyError(ctx context.Context, msg string) error {
	return z.send(ctx, z.errorStream, msg)
}

func (z *ZulipSink) send(ctx context.Context, stream, content string) error {
	form := url.Values{}
	form.Set("type", "stream")
	form.Set("to", stream)
	form.Set("topic", z.topic)
	form.Set("content", content)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.site+zulipMessagesPath, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "failed to build zulip request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(z.email, z.apiKey)

	resp, err := z.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to post zulip message")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return errors.Wrap(err, "failed to read zulip response")
	}

	var result zulipResponse
	if jsonErr := json.Unmarshal(body, &result); jsonErr != nil && resp.StatusCode == http.StatusOK {
		return errors.Wrap(jsonErr, "failed to decode zulip response")
	}

	if resp.StatusCode != http.StatusOK || result.Result != "success" {
		message := result.Msg
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		return errors.Errorf("zulip returned status %d: %s", resp.StatusCode, message)
	}

	z.logger.Debug().Str("stream", stream).Int64("message_id", result.ID).Msg("Zulip message sent")
	return nil
}
