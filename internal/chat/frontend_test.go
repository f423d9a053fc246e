package chat

import "testing"

func TestMessage_Mention(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		expected string
	}{
		{"Username wins", Message{SenderID: "1", SenderName: "Alice", SenderUsername: "alice"}, "alice"},
		{"Falls back to display name", Message{SenderID: "1", SenderName: "Alice"}, "Alice"},
		{"Falls back to sender ID", Message{SenderID: "1"}, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Mention(); got != tt.expected {
				t.Errorf("Mention() = %q, want %q", got, tt.expected)
			}
		})
	}
}
