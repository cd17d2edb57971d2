package postgresadapter

import (
	"testing"
	"time"
)

func TestTopicListHandlesEmptyAndNullColumns(t *testing.T) {
	cases := []struct {
		name   string
		topics string
		want   int
	}{
		{name: "empty string", topics: "", want: 0},
		{name: "empty array", topics: "[]", want: 0},
		{name: "json null", topics: "null", want: 0},
		{name: "two topics", topics: `["trip-topic","user-topic"]`, want: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := userEventModel{ID: "e1", Topics: tc.topics}
			topics, err := model.topicList()
			if err != nil {
				t.Fatalf("topicList failed: %v", err)
			}
			if topics == nil {
				t.Fatalf("topicList must never return nil")
			}
			if len(topics) != tc.want {
				t.Fatalf("expected %d topics, got %v", tc.want, topics)
			}
		})
	}
}

func TestTopicListRejectsCorruptColumn(t *testing.T) {
	model := userEventModel{ID: "e1", Topics: "{not an array"}
	if _, err := model.topicList(); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestModelToEntityCopiesPayloadAndTopics(t *testing.T) {
	now := time.Now().UTC()
	model := userEventModel{
		ID:        "e1",
		Payload:   []byte(`{"username":"a"}`),
		Topics:    `["trip-topic"]`,
		Version:   3,
		CreatedAt: now,
		UpdatedAt: now,
	}

	record, err := model.toEntity()
	if err != nil {
		t.Fatalf("toEntity failed: %v", err)
	}
	if record.Version != 3 || len(record.Topics) != 1 || record.Topics[0] != "trip-topic" {
		t.Fatalf("unexpected record %+v", record)
	}

	// Mutating the entity must not reach back into the model's buffers.
	record.Payload[0] = 'X'
	if model.Payload[0] == 'X' {
		t.Fatalf("payload buffer is shared between model and entity")
	}
}
