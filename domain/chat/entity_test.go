package chat

import (
	"encoding/json"
	"testing"
)

func TestMessage_JSONFieldNames(t *testing.T) {
	nick := "alice"
	msg := Message{
		UserID:    "user-abc",
		Text:      "hello",
		Timestamp: 1700000000000,
		Nickname:  &nick,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	for _, key := range []string{"userId", "msg", "timestamp", "nickname"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("Marshal() missing wire field %q", key)
		}
	}
	if len(fields) != 4 {
		t.Errorf("Marshal() produced %d fields, want 4", len(fields))
	}
}

func TestMessage_NilNicknameIsNull(t *testing.T) {
	data, err := json.Marshal(Message{UserID: "user-abc", Text: "hi", Timestamp: 1})
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if string(fields["nickname"]) != "null" {
		t.Errorf("nickname = %s, want null", fields["nickname"])
	}
}

func TestRosterEntry_JSONPairShape(t *testing.T) {
	nick := "alice"
	tests := []struct {
		name  string
		entry RosterEntry
		want  string
	}{
		{
			name:  "with nickname",
			entry: RosterEntry{UserID: "user-abc", Nickname: &nick},
			want:  `["user-abc","alice"]`,
		},
		{
			name:  "without nickname",
			entry: RosterEntry{UserID: "user-def"},
			want:  `["user-def",null]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.entry)
			if err != nil {
				t.Fatalf("Marshal() unexpected error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}

			var decoded RosterEntry
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal() unexpected error: %v", err)
			}
			if decoded.UserID != tt.entry.UserID {
				t.Errorf("Unmarshal() UserID = %q, want %q", decoded.UserID, tt.entry.UserID)
			}
			if (decoded.Nickname == nil) != (tt.entry.Nickname == nil) {
				t.Error("Unmarshal() nickname presence mismatch")
			}
		})
	}
}

func TestRecognized(t *testing.T) {
	for _, event := range []string{
		EventJoinRoom, EventGetMessages, EventSetNickname,
		EventChatMessage, EventDisconnect, EventStartTyping, EventStopTyping,
	} {
		if !Recognized(event) {
			t.Errorf("Recognized(%q) = false, want true", event)
		}
	}
	for _, event := range []string{"", "ping", "session", "onlineUsers", "JoinRoom"} {
		if Recognized(event) {
			t.Errorf("Recognized(%q) = true, want false", event)
		}
	}
}
