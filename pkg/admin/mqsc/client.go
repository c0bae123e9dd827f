// Package mqsc implements the admin capability on top of the vendor's
// command-line tooling: runmqsc in client mode for object inquiries and
// amqsvet for statistics intervals.
//
// Each inquiry runs one short-lived client process against the manager, so
// a Session here is logical rather than a held socket; Disconnect exists to
// satisfy the capability contract and releases nothing. All invocations are
// bounded by the client timeout and report deadline overruns as TIMEOUT
// errors.
package mqsc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vsundar/flowtrace/pkg/admin"
	"github.com/vsundar/flowtrace/pkg/directory"
	apperrors "github.com/vsundar/flowtrace/pkg/errors"
	"github.com/vsundar/flowtrace/pkg/observability"
)

const (
	defaultRunmqsc = "runmqsc"
	defaultAmqsvet = "/opt/mqm/samp/bin/amqsvet"
	defaultTimeout = 30 * time.Second

	// statisticsQueue is the system queue amqsvet drains for interval data.
	statisticsQueue = "SYSTEM.ADMIN.STATISTICS.QUEUE"
)

// Client opens administrative sessions by shelling out to runmqsc.
type Client struct {
	// Runmqsc is the runmqsc binary; defaults to "runmqsc" on PATH.
	Runmqsc string
	// Amqsvet is the statistics sample binary; defaults to the standard
	// install path.
	Amqsvet string
	// Timeout bounds every individual invocation.
	Timeout time.Duration
}

// New creates a Client with the given per-invocation timeout.
// A zero timeout falls back to 30 seconds.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		Runmqsc: defaultRunmqsc,
		Amqsvet: defaultAmqsvet,
		Timeout: timeout,
	}
}

// Connect verifies the manager is reachable and returns a session bound to
// its connection parameters. Reachability is probed with a DISPLAY QMGR
// round trip so that connection failures surface here, not on the first
// inquiry.
func (c *Client) Connect(ctx context.Context, conn directory.Connection) (admin.Session, error) {
	s := &session{
		client:   c,
		manager:  conn.Name,
		mqserver: fmt.Sprintf("%s/TCP/%s(%d)", conn.Channel, conn.Host, conn.Port),
		user:     conn.User,
		password: conn.Password,
	}
	if _, err := s.run(ctx, "DISPLAY QMGR QMNAME"); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConnectionFailed, err, "failed to connect to %s", conn.Name)
	}
	return s, nil
}

// Ensure Client implements admin.Querier.
var _ admin.Querier = (*Client)(nil)

type session struct {
	client   *Client
	manager  string
	mqserver string
	user     string
	password string
}

// run executes one runmqsc client invocation with the given MQSC script and
// returns its stdout.
func (s *session) run(ctx context.Context, script string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.client.Timeout)
	defer cancel()

	bin := s.client.Runmqsc
	if bin == "" {
		bin = defaultRunmqsc
	}
	args := []string{"-c"}
	stdin := script + "\nEXIT\n"
	if s.user != "" {
		// runmqsc -u reads the password as the first stdin line.
		args = append(args, "-u", s.user)
		stdin = s.password + "\n" + stdin
	}
	args = append(args, s.manager)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), "MQSERVER="+s.mqserver)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	observability.Admin().OnCommand(ctx, s.manager, script)
	err := cmd.Run()
	observability.Admin().OnCommandComplete(ctx, s.manager, script, time.Since(started), err)
	if ctx.Err() == context.DeadlineExceeded {
		return "", apperrors.New(apperrors.ErrCodeTimeout, "%s: runmqsc timed out after %s", s.manager, s.client.Timeout)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = firstErrorLine(stdout.String())
		}
		return "", apperrors.Wrap(apperrors.ErrCodeQueryFailed, err, "%s: runmqsc failed: %s", s.manager, msg)
	}
	return stdout.String(), nil
}

// InquireQueue returns the attributes of the named queue.
func (s *session) InquireQueue(ctx context.Context, name string) (admin.QueueAttributes, error) {
	out, err := s.run(ctx, fmt.Sprintf("DISPLAY QUEUE('%s') TYPE TARGET TARGTYPE RNAME RQMNAME XMITQ", name))
	if err != nil {
		return admin.QueueAttributes{}, err
	}
	blocks := parseBlocks(out)
	if isNotFound(out) || len(blocks) == 0 {
		return admin.QueueAttributes{}, admin.ErrNotFound
	}
	return queueAttrs(blocks[0]), nil
}

// InquireTopic returns the attributes of the named topic.
func (s *session) InquireTopic(ctx context.Context, name string) (admin.TopicAttributes, error) {
	out, err := s.run(ctx, fmt.Sprintf("DISPLAY TOPIC('%s') TOPICSTR", name))
	if err != nil {
		return admin.TopicAttributes{}, err
	}
	blocks := parseBlocks(out)
	if isNotFound(out) || len(blocks) == 0 {
		return admin.TopicAttributes{}, admin.ErrNotFound
	}
	b := blocks[0]
	return admin.TopicAttributes{
		Name:        b["TOPIC"],
		TopicString: b["TOPICSTR"],
	}, nil
}

// InquireSubscriptions returns active subscriptions matching topicFilter.
func (s *session) InquireSubscriptions(ctx context.Context, topicFilter string) ([]admin.SubscriptionRecord, error) {
	out, err := s.run(ctx, "DISPLAY SUB(*) TOPICOBJ TOPICSTR DEST DESTQMGR")
	if err != nil {
		return nil, err
	}

	var subs []admin.SubscriptionRecord
	for _, b := range parseBlocks(out) {
		if b["SUB"] == "" {
			continue
		}
		topic := b["TOPICOBJ"]
		if topic == "" {
			topic = b["TOPICSTR"]
		}
		if topicFilter != "*" && topic != topicFilter {
			continue
		}
		subs = append(subs, admin.SubscriptionRecord{
			Name:               b["SUB"],
			Topic:              topic,
			Destination:        b["DEST"],
			DestinationManager: b["DESTQMGR"],
		})
	}
	return subs, nil
}

// InquireChannels returns channels bound to transmitQueue, in reply order.
func (s *session) InquireChannels(ctx context.Context, transmitQueue string) ([]admin.ChannelRecord, error) {
	out, err := s.run(ctx, "DISPLAY CHANNEL(*) CHLTYPE XMITQ CONNAME")
	if err != nil {
		return nil, err
	}

	var channels []admin.ChannelRecord
	for _, b := range parseBlocks(out) {
		if b["CHANNEL"] == "" {
			continue
		}
		if transmitQueue != "" && b["XMITQ"] != transmitQueue {
			continue
		}
		channels = append(channels, admin.ChannelRecord{
			Name:           b["CHANNEL"],
			Type:           b["CHLTYPE"],
			TransmitQueue:  b["XMITQ"],
			ConnectionName: b["CONNAME"],
		})
	}
	return channels, nil
}

// InquireQueueStatus returns per-queue last-get/last-put timestamps.
func (s *session) InquireQueueStatus(ctx context.Context) ([]admin.QueueStatus, error) {
	out, err := s.run(ctx, "DISPLAY QSTATUS(*) TYPE(QUEUE) LGETDATE LGETTIME LPUTDATE LPUTTIME")
	if err != nil {
		return nil, err
	}

	var statuses []admin.QueueStatus
	for _, b := range parseBlocks(out) {
		if b["QUEUE"] == "" {
			continue
		}
		statuses = append(statuses, admin.QueueStatus{
			Queue:       b["QUEUE"],
			LastGetDate: b["LGETDATE"],
			LastGetTime: b["LGETTIME"],
			LastPutDate: b["LPUTDATE"],
			LastPutTime: b["LPUTTIME"],
		})
	}
	return statuses, nil
}

// InquireStatistics runs amqsvet against the manager's statistics queue and
// parses the most recent interval.
func (s *session) InquireStatistics(ctx context.Context) (admin.StatisticsInterval, error) {
	ctx, cancel := context.WithTimeout(ctx, s.client.Timeout)
	defer cancel()

	bin := s.client.Amqsvet
	if bin == "" {
		bin = defaultAmqsvet
	}
	cmd := exec.CommandContext(ctx, bin, "-m", s.manager, "-q", statisticsQueue, "-o", "json", "-w", "5")
	cmd.Env = append(os.Environ(), "MQSERVER="+s.mqserver)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return admin.StatisticsInterval{}, apperrors.New(apperrors.ErrCodeTimeout, "%s: amqsvet timed out after %s", s.manager, s.client.Timeout)
	}
	if err != nil {
		return admin.StatisticsInterval{}, apperrors.Wrap(apperrors.ErrCodeQueryFailed, err, "%s: amqsvet failed: %s", s.manager, strings.TrimSpace(stderr.String()))
	}
	return parseStatistics(stdout.Bytes())
}

// Disconnect is a no-op: inquiries run as independent client processes and
// hold no connection between calls.
func (s *session) Disconnect() error { return nil }

// Ensure session implements admin.Session.
var _ admin.Session = (*session)(nil)

func queueAttrs(b map[string]string) admin.QueueAttributes {
	attrs := admin.QueueAttributes{
		Name:          b["QUEUE"],
		TransmitQueue: b["XMITQ"],
	}
	switch b["TYPE"] {
	case "QLOCAL":
		attrs.Type = admin.QueueTypeLocal
	case "QALIAS":
		attrs.Type = admin.QueueTypeAlias
		attrs.BaseObject = b["TARGET"]
		if attrs.BaseObject == "" {
			attrs.BaseObject = b["TARGQ"] // pre-7.0 attribute name
		}
	case "QREMOTE":
		attrs.Type = admin.QueueTypeRemote
		attrs.RemoteManager = b["RQMNAME"]
		attrs.RemoteQueue = b["RNAME"]
	default:
		attrs.Type = admin.QueueTypeUnknown
	}
	return attrs
}
