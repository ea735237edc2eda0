package utils

import (
	"context"
	"testing"
)

func TestCheckHealth_SnapshotsProcessState(t *testing.T) {
	status := checkHealth(context.Background(), nil, nil,
		func() int { return 7 },
		func() map[string]string {
			return map[string]string{"email": "closed", "push": "open"}
		},
	)

	if status.LiveConnections != 7 {
		t.Fatalf("liveConnections = %d, want 7", status.LiveConnections)
	}
	if status.Breakers["email"] != "closed" || status.Breakers["push"] != "open" {
		t.Fatalf("breakers = %v", status.Breakers)
	}
	if status.Mongo {
		t.Fatal("mongo must report unhealthy without a client")
	}
	if status.CheckedAt.IsZero() {
		t.Fatal("snapshot must carry its check time")
	}
}

func TestCheckHealth_NilSamplers(t *testing.T) {
	status := checkHealth(context.Background(), nil, nil, nil, nil)

	if status.LiveConnections != 0 || status.Breakers != nil {
		t.Fatalf("unexpected snapshot: %+v", status)
	}
}
