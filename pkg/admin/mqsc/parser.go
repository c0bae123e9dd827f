package mqsc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vsundar/flowtrace/pkg/admin"
	apperrors "github.com/vsundar/flowtrace/pkg/errors"
)

// runmqsc reports each displayed object as an AMQnnnnI message line followed
// by indented ATTR(value) pairs. Error responses use AMQnnnnE lines;
// AMQ8147E is "object not found".
const notFoundCode = "AMQ8147E"

// isNotFound reports whether the runmqsc output contains an object-not-found
// response.
func isNotFound(out string) bool {
	return strings.Contains(out, notFoundCode)
}

// firstErrorLine returns the first AMQ*E error line from runmqsc output,
// for use in error messages when stderr is empty.
func firstErrorLine(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "AMQ") && strings.Contains(line, "E:") {
			return line
		}
	}
	return "unknown error"
}

// parseBlocks splits runmqsc output into one attribute map per displayed
// object. A block starts at an informational AMQ line and collects every
// ATTR(value) pair until the next one.
func parseBlocks(out string) []map[string]string {
	var blocks []map[string]string
	var current map[string]string

	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "AMQ") {
			if len(current) > 0 {
				blocks = append(blocks, current)
			}
			current = nil
			if strings.Contains(trimmed, "I:") {
				current = make(map[string]string)
			}
			continue
		}
		if current == nil {
			continue
		}
		parseAttrs(trimmed, current)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

// parseAttrs extracts ATTR(value) pairs from one output line into attrs.
// Values may themselves contain parentheses (e.g. CONNAME(host(1414))), so
// the closing paren is found by depth counting rather than a regex.
func parseAttrs(line string, attrs map[string]string) {
	for i := 0; i < len(line); {
		start := i
		for i < len(line) && isAttrChar(line[i]) {
			i++
		}
		name := line[start:i]
		if name == "" || i >= len(line) || line[i] != '(' {
			i++
			continue
		}

		depth := 0
		j := i
		for ; j < len(line); j++ {
			if line[j] == '(' {
				depth++
			} else if line[j] == ')' {
				depth--
				if depth == 0 {
					break
				}
			}
		}
		if depth != 0 {
			return // unbalanced; value continues on a line we don't stitch
		}
		attrs[name] = strings.TrimSpace(line[i+1 : j])
		i = j + 1
	}
}

func isAttrChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// amqsvet emits one JSON document per statistics message; eventData carries
// the interval boundaries and per-queue counters.
type vetReport struct {
	EventData vetEventData `json:"eventData"`
}

type vetEventData struct {
	StartDate string         `json:"startDate"`
	StartTime string         `json:"startTime"`
	EndDate   string         `json:"endDate"`
	EndTime   string         `json:"endTime"`
	Queues    []vetQueueData `json:"queueStatisticsData"`
}

type vetQueueData struct {
	QueueName string  `json:"queueName"`
	Puts      []int64 `json:"puts"`
	Put1s     []int64 `json:"put1s"`
	Gets      []int64 `json:"gets"`
	Get1s     []int64 `json:"get1s"`
}

// vetTimeLayout matches the broker's "2025-11-01" + "12.34.56" stamps.
const vetTimeLayout = "2006-01-02 15.04.05"

// parseStatistics decodes an amqsvet JSON report into a StatisticsInterval.
func parseStatistics(data []byte) (admin.StatisticsInterval, error) {
	var report vetReport
	if err := json.Unmarshal(data, &report); err != nil {
		return admin.StatisticsInterval{}, apperrors.Wrap(apperrors.ErrCodeQueryFailed, err, "invalid amqsvet output")
	}

	ev := report.EventData
	start, err := time.Parse(vetTimeLayout, fmt.Sprintf("%s %s", ev.StartDate, ev.StartTime))
	if err != nil {
		return admin.StatisticsInterval{}, apperrors.Wrap(apperrors.ErrCodeQueryFailed, err, "invalid interval start")
	}
	end, err := time.Parse(vetTimeLayout, fmt.Sprintf("%s %s", ev.EndDate, ev.EndTime))
	if err != nil {
		return admin.StatisticsInterval{}, apperrors.Wrap(apperrors.ErrCodeQueryFailed, err, "invalid interval end")
	}

	interval := admin.StatisticsInterval{Start: start, End: end}
	for _, q := range ev.Queues {
		interval.Queues = append(interval.Queues, admin.QueueStatistics{
			Queue:    strings.TrimSpace(q.QueueName),
			Enqueued: sum(q.Puts) + sum(q.Put1s),
			Dequeued: sum(q.Gets) + sum(q.Get1s),
		})
	}
	return interval, nil
}

func sum(vals []int64) int64 {
	var total int64
	for _, v := range vals {
		total += v
	}
	return total
}
