package kafka

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnprocessable marks a message that redelivery cannot fix. Handlers wrap
// it so the consumer routes the message to the dead letter queue instead of
// blocking the partition.
var ErrUnprocessable = errors.New("unprocessable message")

// DLQTopicSuffix is appended to the source topic to name its dead letter queue.
const DLQTopicSuffix = ".dlq"

// DLQPayload captures enough context to replay or inspect a failed Kafka message.
type DLQPayload struct {
	Topic       string            `json:"topic"`
	Partition   int32             `json:"partition"`
	Offset      int64             `json:"offset"`
	Timestamp   time.Time         `json:"timestamp"`
	TenantID    string            `json:"tenant_id,omitempty"`
	KeyBase64   string            `json:"key_base64,omitempty"`
	ValueBase64 string            `json:"value_base64"`
	Headers     map[string]string `json:"headers,omitempty"`
	Error       string            `json:"error"`
	Consumer    string            `json:"consumer"`
}

// EncodeDLQMessage serializes a Kafka message into a DLQ-safe payload.
// Tenant attribution is best-effort: prefer a tenant_id field in the JSON
// value, fall back to the tenant_id header.
func EncodeDLQMessage(msg Message, err error, consumer string) ([]byte, error) {
	payload := DLQPayload{
		Topic:       msg.Topic,
		Partition:   msg.Partition,
		Offset:      msg.Offset,
		Timestamp:   msg.Timestamp,
		ValueBase64: base64.StdEncoding.EncodeToString(msg.Value),
		Headers:     msg.Headers,
		Consumer:    consumer,
	}

	var probe struct {
		TenantID string `json:"tenant_id"`
	}
	if jsonErr := json.Unmarshal(msg.Value, &probe); jsonErr == nil && probe.TenantID != "" {
		payload.TenantID = probe.TenantID
	} else if headerTenant, ok := msg.Headers["tenant_id"]; ok {
		payload.TenantID = headerTenant
	}

	if payload.TenantID != "" {
		if payload.Headers == nil {
			payload.Headers = map[string]string{}
		}
		payload.Headers["tenant_id"] = payload.TenantID
	}

	if len(msg.Key) > 0 {
		payload.KeyBase64 = base64.StdEncoding.EncodeToString(msg.Key)
	}

	if err != nil {
		payload.Error = err.Error()
	}

	b, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return nil, fmt.Errorf("marshal dlq payload: %w", marshalErr)
	}

	return b, nil
}
