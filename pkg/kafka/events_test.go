package kafka

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCreditReplenishEvent_RoundTrip(t *testing.T) {
	evt := CreditReplenishEvent{
		EventID:       "evt-1",
		UserID:        "user-1",
		TenantID:      "tenant-1",
		Amount:        1000,
		BillingPeriod: "2026-08",
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "1.0",
	}

	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded CreditReplenishEvent
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.UserID != "user-1" || decoded.BillingPeriod != "2026-08" {
		t.Fatalf("lost fields: %+v", decoded)
	}
	if decoded.Amount != 1000 {
		t.Fatalf("wrong amount: %d", decoded.Amount)
	}
}

func TestLicenseEvent_OmitsEmptyOptionals(t *testing.T) {
	evt := LicenseEvent{
		EventID:       "evt-2",
		EventType:     EventCreditsDebited,
		Timestamp:     time.Now().UTC(),
		Source:        "steward",
		UserID:        "user-2",
		Amount:        50,
		BalanceAfter:  950,
		SchemaVersion: "1.0",
	}

	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := raw["tier_id"]; present {
		t.Fatalf("nil tier_id should be omitted")
	}
	if _, present := raw["reference"]; present {
		t.Fatalf("nil reference should be omitted")
	}
	if raw["event_type"] != EventCreditsDebited {
		t.Fatalf("wrong event_type: %v", raw["event_type"])
	}
}
