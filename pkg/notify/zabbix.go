package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	zabbix "github.com/blacked/go-zabbix"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"hooksync/pkg/config"
)

// DefaultZabbixPort is the trapper port used when the server has none
const DefaultZabbixPort = 10051

// StatusOK is the trapper value sent after a completed run
const StatusOK = "0"

// zabbixHeaderLen covers "ZBXD\x01" plus the 8 byte payload length
const zabbixHeaderLen = 13

// ZabbixSink reports completed runs to a Zabbix trapper item.
// Errors are left to the item's nodata trigger and send nothing.
type ZabbixSink struct {
	sender  *zabbix.Sender
	host    string
	key     string
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

type zabbixResponse struct {
	Response string `json:"response"`
	Info     string `json:"info"`
}

// NewZabbix creates a Zabbix sender sink
func NewZabbix(cfg config.ZabbixConfig, opts ...Option) *ZabbixSink {
	o := newOptions(opts)
	server, port := splitZabbixServer(cfg.Server)

	return &ZabbixSink{
		sender:  zabbix.NewSender(server, port),
		host:    cfg.Host,
		key:     cfg.Key,
		timeout: o.timeout,
		now:     o.now,
		logger:  o.logger.With().Str("channel", config.ChannelZabbix).Logger(),
	}
}

func splitZabbixServer(server string) (string, int) {
	host, rawPort, err := net.SplitHostPort(server)
	if err != nil {
		return server, DefaultZabbixPort
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return host, DefaultZabbixPort
	}
	return host, port
}

// NotifyCompletion implements Sink
func (z *ZabbixSink) NotifyCompletion(ctx context.Context, _ string) error {
	return z.Send(ctx, StatusOK)
}

// NotifyError implements Sink
func (z *ZabbixSink) NotifyError(context.Context, string) error {
	return nil
}

type sendResult struct {
	reply []byte
	err   error
}

// Send pushes value to the configured item and checks the server accepted it
func (z *ZabbixSink) Send(ctx context.Context, value string) error {
	clock := z.now().Unix()
	packet := zabbix.NewPacket([]*zabbix.Metric{zabbix.NewMetric(z.host, z.key, value, clock)}, clock)

	ctx, cancel := context.WithTimeout(ctx, z.timeout)
	defer cancel()

	// the sender has no context support, so give up on it when ctx ends
	done := make(chan sendResult, 1)
	go func() {
		reply, err := z.sender.Send(packet)
		done <- sendResult{reply: reply, err: err}
	}()

	var result sendResult
	select {
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "zabbix send to %s:%d interrupted", z.sender.Host, z.sender.Port)
	case result = <-done:
	}
	if result.err != nil {
		return errors.Wrapf(result.err, "failed to send to zabbix server %s:%d", z.sender.Host, z.sender.Port)
	}

	resp, err := parseZabbixReply(result.reply)
	if err != nil {
		return err
	}
	if resp.Response != "success" {
		return errors.Errorf("zabbix server rejected data: %s", resp.Info)
	}

	var processed, failed int
	if _, err := fmt.Sscanf(resp.Info, "processed: %d; failed: %d", &processed, &failed); err == nil && failed > 0 {
		return errors.Errorf("zabbix server failed to process item %s on %s: %s", z.key, z.host, resp.Info)
	}

	z.logger.Debug().Str("key", z.key).Str("value", value).Str("info", resp.Info).Msg("Zabbix value sent")
	return nil
}

// parseZabbixReply decodes the JSON body of a trapper reply, header included
func parseZabbixReply(reply []byte) (*zabbixResponse, error) {
	if bytes.HasPrefix(reply, []byte("ZBXD")) && len(reply) >= zabbixHeaderLen {
		reply = reply[zabbixHeaderLen:]
	}

	var resp zabbixResponse
	if err := json.Unmarshal(bytes.TrimRight(reply, "\x00"), &resp); err != nil {
		return nil, errors.Wrap(err, "failed to decode zabbix response")
	}
	return &resp, nil
}
