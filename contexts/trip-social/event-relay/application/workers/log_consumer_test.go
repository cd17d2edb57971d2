package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"waypoint/contexts/trip-social/event-relay/adapters/memory"
	"waypoint/contexts/trip-social/event-relay/domain/entities"
	"waypoint/contexts/trip-social/event-relay/ports"
)

// stubReader models consumer-group commits the way a real broker does:
// a commit stores a per-partition watermark (offset+1), so committing a
// later offset moves the group past every earlier one on that partition.
type stubReader struct {
	batch      []ports.LogMessage
	watermarks map[int]int64
	readErr    error
	commitErr  error
}

func (r *stubReader) ReadBatch(_ context.Context, _ int) ([]ports.LogMessage, error) {
	if r.readErr != nil {
		return nil, r.readErr
	}
	batch := r.batch
	r.batch = nil
	return batch, nil
}

func (r *stubReader) Commit(_ context.Context, msgs ...ports.LogMessage) error {
	if r.commitErr != nil {
		return r.commitErr
	}
	if r.watermarks == nil {
		r.watermarks = make(map[int]int64)
	}
	for _, msg := range msgs {
		if next := msg.Offset + 1; next > r.watermarks[msg.Partition] {
			r.watermarks[msg.Partition] = next
		}
	}
	return nil
}

func (r *stubReader) committedCount() int {
	total := int64(0)
	for _, next := range r.watermarks {
		total += next
	}
	return int(total)
}

type countingUserWriter struct {
	*memory.UserStore
	createCalls int
	failFor     map[string]error
}

func (w *countingUserWriter) CreateUser(ctx context.Context, user entities.UserSnapshot) error {
	w.createCalls++
	if err := w.failFor[user.ID]; err != nil {
		return err
	}
	return w.UserStore.CreateUser(ctx, user)
}

func logMessage(t *testing.T, id string, eventType entities.EventType, partition int, offset int64) ports.LogMessage {
	t.Helper()
	value, err := json.Marshal(map[string]string{"id": id, "type": string(eventType)})
	if err != nil {
		t.Fatalf("marshal log message: %v", err)
	}
	return ports.LogMessage{Partition: partition, Offset: offset, Raw: id, Value: value}
}

func userPayload(t *testing.T, user entities.UserSnapshot) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal user payload: %v", err)
	}
	return data
}

func TestLogConsumerProcessesCreateUserOnce(t *testing.T) {
	events := memory.NewStore([]entities.EventRecord{
		{ID: "e1", Payload: userPayload(t, entities.UserSnapshot{ID: "u1", Username: "a"}), Version: 1},
	})
	users := &countingUserWriter{UserStore: memory.NewUserStore()}
	reader := &stubReader{batch: []ports.LogMessage{
		logMessage(t, "e1", entities.EventCreateUser, 0, 0),
		logMessage(t, "e1", entities.EventCreateUser, 0, 1),
	}}

	consumer := LogConsumer{
		Reader:        reader,
		Events:        events,
		Users:         users,
		RegisterTopic: "trip-event",
	}
	if err := consumer.RunOnce(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if users.createCalls != 1 {
		t.Fatalf("duplicate log message must not re-invoke the write: got %d calls", users.createCalls)
	}
	if _, ok := users.GetUser("u1"); !ok {
		t.Fatalf("expected user u1 created")
	}
	if reader.watermarks[0] != 2 {
		t.Fatalf("both copies must be committed, watermark %d", reader.watermarks[0])
	}

	record, err := events.GetByID(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get event failed: %v", err)
	}
	if !record.DeliveredTo("trip-event") {
		t.Fatalf("expected trip-event registered, got %v", record.Topics)
	}
}

func TestLogConsumerRegistersSecondTopicKeepingOrder(t *testing.T) {
	events := memory.NewStore([]entities.EventRecord{
		{
			ID:      "e1",
			Payload: userPayload(t, entities.UserSnapshot{ID: "u1", Username: "a"}),
			Topics:  []string{"trip-topic"},
			Version: 2,
		},
	})
	users := &countingUserWriter{UserStore: memory.NewUserStore()}
	reader := &stubReader{batch: []ports.LogMessage{logMessage(t, "e1", entities.EventCreateUser, 0, 0)}}

	consumer := LogConsumer{
		Reader:        reader,
		Events:        events,
		Users:         users,
		RegisterTopic: "user-topic",
	}
	if err := consumer.RunOnce(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	record, err := events.GetByID(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get event failed: %v", err)
	}
	want := []string{"trip-topic", "user-topic"}
	if len(record.Topics) != len(want) {
		t.Fatalf("expected topics %v, got %v", want, record.Topics)
	}
	for i := range want {
		if record.Topics[i] != want[i] {
			t.Fatalf("registration order lost: expected %v, got %v", want, record.Topics)
		}
	}
}

func TestLogConsumerSkipsAlreadyRegisteredTopic(t *testing.T) {
	events := memory.NewStore([]entities.EventRecord{
		{
			ID:      "e1",
			Payload: userPayload(t, entities.UserSnapshot{ID: "u1"}),
			Topics:  []string{"trip-event"},
			Version: 2,
		},
	})
	users := &countingUserWriter{UserStore: memory.NewUserStore()}
	reader := &stubReader{batch: []ports.LogMessage{logMessage(t, "e1", entities.EventCreateUser, 0, 0)}}

	consumer := LogConsumer{
		Reader:        reader,
		Events:        events,
		Users:         users,
		RegisterTopic: "trip-event",
	}
	if err := consumer.RunOnce(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if users.createCalls != 0 {
		t.Fatalf("already-registered event must not be reprocessed")
	}
	if reader.watermarks[0] != 1 {
		t.Fatalf("skipped message must still be committed, watermark %d", reader.watermarks[0])
	}
}

func TestLogConsumerSkipsUnknownEventAndOtherTypes(t *testing.T) {
	events := memory.NewStore(nil)
	users := &countingUserWriter{UserStore: memory.NewUserStore()}
	reader := &stubReader{batch: []ports.LogMessage{
		logMessage(t, "missing", entities.EventCreateUser, 0, 0),
		logMessage(t, "e2", entities.EventCreateTrip, 0, 1),
		logMessage(t, "e3", "BOGUS_TYPE", 0, 2),
		{Partition: 0, Offset: 3, Raw: "junk", Value: []byte(`not-json`)},
	}}

	consumer := LogConsumer{
		Reader:        reader,
		Events:        events,
		Users:         users,
		RegisterTopic: "trip-event",
	}
	if err := consumer.RunOnce(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if users.createCalls != 0 {
		t.Fatalf("no write expected")
	}
	if reader.watermarks[0] != 4 {
		t.Fatalf("non-actionable messages must be committed through, watermark %d", reader.watermarks[0])
	}
}

func TestLogConsumerSkipsEventWithoutPayload(t *testing.T) {
	events := memory.NewStore([]entities.EventRecord{
		{ID: "e1", Version: 1},
	})
	users := &countingUserWriter{UserStore: memory.NewUserStore()}
	reader := &stubReader{batch: []ports.LogMessage{logMessage(t, "e1", entities.EventCreateUser, 0, 0)}}

	consumer := LogConsumer{
		Reader:        reader,
		Events:        events,
		Users:         users,
		RegisterTopic: "trip-event",
	}
	if err := consumer.RunOnce(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if users.createCalls != 0 {
		t.Fatalf("payload-less event must not reach the write")
	}
	if reader.watermarks[0] != 1 {
		t.Fatalf("payload-less event must be committed through, watermark %d", reader.watermarks[0])
	}
	record, err := events.GetByID(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get event failed: %v", err)
	}
	if record.DeliveredTo("trip-event") {
		t.Fatalf("payload-less event must not register delivery")
	}
}

func TestLogConsumerWithholdsCommitOnWriteFailure(t *testing.T) {
	events := memory.NewStore([]entities.EventRecord{
		{ID: "e1", Payload: userPayload(t, entities.UserSnapshot{ID: "u1"}), Version: 1},
	})
	users := &countingUserWriter{
		UserStore: memory.NewUserStore(),
		failFor:   map[string]error{"u1": errors.New("db down")},
	}
	reader := &stubReader{batch: []ports.LogMessage{logMessage(t, "e1", entities.EventCreateUser, 0, 5)}}

	consumer := LogConsumer{
		Reader:        reader,
		Events:        events,
		Users:         users,
		RegisterTopic: "trip-event",
	}
	if err := consumer.RunOnce(context.Background()); err != nil {
		t.Fatalf("a failed message must not fail the cycle: %v", err)
	}

	if reader.committedCount() != 0 {
		t.Fatalf("failed message must stay uncommitted for redelivery")
	}
	record, err := events.GetByID(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get event failed: %v", err)
	}
	if record.DeliveredTo("trip-event") {
		t.Fatalf("failed write must not register delivery")
	}
}

func TestLogConsumerStopsCommittingPartitionAtFirstFailure(t *testing.T) {
	events := memory.NewStore([]entities.EventRecord{
		{ID: "e1", Payload: userPayload(t, entities.UserSnapshot{ID: "u1"}), Version: 1},
		{ID: "e2", Payload: userPayload(t, entities.UserSnapshot{ID: "u2"}), Version: 1},
		{ID: "e3", Payload: userPayload(t, entities.UserSnapshot{ID: "u3"}), Version: 1},
	})
	users := &countingUserWriter{
		UserStore: memory.NewUserStore(),
		failFor:   map[string]error{"u1": errors.New("db down")},
	}
	reader := &stubReader{batch: []ports.LogMessage{
		logMessage(t, "e1", entities.EventCreateUser, 0, 5),
		logMessage(t, "e2", entities.EventCreateUser, 0, 6),
		logMessage(t, "e3", entities.EventCreateUser, 1, 3),
	}}

	consumer := LogConsumer{
		Reader:        reader,
		Events:        events,
		Users:         users,
		RegisterTopic: "trip-event",
	}
	if err := consumer.RunOnce(context.Background()); err != nil {
		t.Fatalf("a failed message must not fail the cycle: %v", err)
	}

	// Committing offset 6 would advance partition 0's watermark to 7 and
	// permanently skip the failed offset 5, so nothing on partition 0 may
	// commit this cycle and e2's write must wait for redelivery.
	if _, ok := reader.watermarks[0]; ok {
		t.Fatalf("partition 0 must stay uncommitted past the failure, watermark %d", reader.watermarks[0])
	}
	if reader.watermarks[1] != 4 {
		t.Fatalf("partition 1 is unaffected by partition 0's failure, watermark %d", reader.watermarks[1])
	}
	if users.createCalls != 2 {
		t.Fatalf("expected the failed write and the other partition's write only, got %d calls", users.createCalls)
	}
	if _, ok := users.GetUser("u2"); ok {
		t.Fatalf("write behind a failed offset must not run before redelivery")
	}
	if _, ok := users.GetUser("u3"); !ok {
		t.Fatalf("expected user u3 created")
	}
}

func TestLogConsumerSurfacesReadErrors(t *testing.T) {
	reader := &stubReader{readErr: errors.New("broker unreachable")}
	consumer := LogConsumer{
		Reader:        reader,
		Events:        memory.NewStore(nil),
		Users:         &countingUserWriter{UserStore: memory.NewUserStore()},
		RegisterTopic: "trip-event",
	}

	if err := consumer.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected read error surfaced")
	}
}
