package relay

import "testing"

const testBot = "น้องสวพ."

func TestRouteDirectAlwaysResponds(t *testing.T) {
	r := NewRouter(testBot)

	texts := []string{"สวัสดี", "  padded  ", "@น้องสวพ. hi", "hello @น้องสวพ."}
	for _, text := range texts {
		d := r.Route(InboundEvent{Source: SourceUser, SenderID: "U1", Text: text})
		if !d.Respond {
			t.Errorf("direct %q: expected respond", text)
		}
		if d.Text != text {
			t.Errorf("direct %q: forwarded %q, want unchanged", text, d.Text)
		}
		if d.Greeting {
			t.Errorf("direct %q: unexpected greeting", text)
		}
	}
}

func TestRouteDirectEmptyTextGreets(t *testing.T) {
	d := NewRouter(testBot).Route(InboundEvent{Source: SourceUser, Text: ""})
	if !d.Respond || !d.Greeting || d.Text != "" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestRouteGroup(t *testing.T) {
	r := NewRouter(testBot)

	tests := []struct {
		name     string
		source   SourceKind
		text     string
		respond  bool
		greeting bool
		want     string
	}{
		{name: "no mention", source: SourceGroup, text: "สวัสดี"},
		{name: "mention mid message", source: SourceGroup, text: "hi @น้องสวพ. สวัสดี"},
		{name: "leading space before mention", source: SourceRoom, text: " @น้องสวพ. สวัสดี"},
		{name: "other bot", source: SourceGroup, text: "@other สวัสดี"},
		{name: "bare mention", source: SourceGroup, text: "@น้องสวพ.", respond: true, greeting: true},
		{name: "mention with spaces only", source: SourceRoom, text: "@น้องสวพ.   \t", respond: true, greeting: true},
		{name: "mention and question", source: SourceGroup, text: "@น้องสวพ. สวัสดี", respond: true, want: "สวัสดี"},
		{name: "room mention", source: SourceRoom, text: "@น้องสวพ.  ขอเบอร์โทร  ", respond: true, want: "ขอเบอร์โทร"},
		{name: "no separator", source: SourceGroup, text: "@น้องสวพ.ช่วยด้วย", respond: true, want: "ช่วยด้วย"},
		{name: "repeated mention keeps the rest", source: SourceGroup, text: "@น้องสวพ. @น้องสวพ. x", respond: true, want: "@น้องสวพ. x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Route(InboundEvent{Source: tt.source, SenderID: "U1", Text: tt.text})
			if d.Respond != tt.respond {
				t.Fatalf("respond = %v, want %v", d.Respond, tt.respond)
			}
			if d.Greeting != tt.greeting {
				t.Fatalf("greeting = %v, want %v", d.Greeting, tt.greeting)
			}
			if d.Text != tt.want {
				t.Fatalf("forwarded %q, want %q", d.Text, tt.want)
			}
		})
	}
}

func TestMention(t *testing.T) {
	if got := NewRouter(testBot).Mention(); got != "@น้องสวพ." {
		t.Fatalf("mention = %q", got)
	}
}

func TestSessionKey(t *testing.T) {
	first := SessionKey("line-bot-session", "U123")
	if first != "line-bot-session-U123" {
		t.Fatalf("session key = %q", first)
	}
	if again := SessionKey("line-bot-session", "U123"); again != first {
		t.Fatalf("session key not stable: %q vs %q", first, again)
	}
	if other := SessionKey("line-bot-session", "U999"); other == first {
		t.Fatal("different senders must not share a session")
	}
}

func TestSourceKindIsGroup(t *testing.T) {
	if SourceUser.IsGroup() {
		t.Error("user is not a group source")
	}
	if !SourceGroup.IsGroup() || !SourceRoom.IsGroup() {
		t.Error("group and room are group sources")
	}
}
