package notify

import (
	"testing"

	"mediaflow/internal/domain/entity"
)

// TestHubDeliversToCurrentSubscribers verifies per-job delivery and
// isolation between jobs.
func TestHubDeliversToCurrentSubscribers(t *testing.T) {
	h := NewHub()

	ch1, cancel1 := h.Subscribe("job-1")
	defer cancel1()
	ch2, cancel2 := h.Subscribe("job-2")
	defer cancel2()

	h.Publish("job-1", entity.JobEvent{Type: entity.EventStatus, Progress: 40})

	select {
	case event := <-ch1:
		if event.Progress != 40 {
			t.Fatalf("progress = %d, want 40", event.Progress)
		}
	default:
		t.Fatal("subscriber for job-1 received nothing")
	}

	select {
	case event := <-ch2:
		t.Fatalf("job-2 subscriber received foreign event: %+v", event)
	default:
	}
}

// TestHubNoReplay verifies a late subscriber sees only events
// published after it subscribed.
func TestHubNoReplay(t *testing.T) {
	h := NewHub()

	h.Publish("job-1", entity.JobEvent{Type: entity.EventStatus, Progress: 10})

	ch, cancel := h.Subscribe("job-1")
	defer cancel()

	select {
	case event := <-ch:
		t.Fatalf("late subscriber should see nothing, got %+v", event)
	default:
	}

	h.Publish("job-1", entity.JobEvent{Type: entity.EventStatus, Progress: 20})
	if event := <-ch; event.Progress != 20 {
		t.Fatalf("progress = %d, want 20", event.Progress)
	}
}

// TestHubPublishNeverBlocks verifies a slow subscriber drops events
// instead of stalling the publisher.
func TestHubPublishNeverBlocks(t *testing.T) {
	h := NewHub()

	_, cancel := h.Subscribe("job-1")
	defer cancel()

	for i := 0; i < subscriberBuffer*2; i++ {
		h.Publish("job-1", entity.JobEvent{Type: entity.EventStatus, Progress: i})
	}
	// Reaching this point at all is the assertion.
}

// TestHubCancelReleasesSubscription verifies unsubscribe closes the
// channel and drops the registration.
func TestHubCancelReleasesSubscription(t *testing.T) {
	h := NewHub()

	ch, cancel := h.Subscribe("job-1")
	cancel()
	cancel() // second cancel is a no-op

	if _, open := <-ch; open {
		t.Fatal("channel should be closed after cancel")
	}
	if n := h.SubscriberCount("job-1"); n != 0 {
		t.Fatalf("subscriber count = %d, want 0", n)
	}
}
