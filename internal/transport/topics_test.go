package transport

import "testing"

func TestTopicScheme(t *testing.T) {
	if got := Topic("CS101", ChannelStatus); got != "room/CS101/status" {
		t.Fatalf("unexpected topic %q", got)
	}
	if got := Topic("CS101", EventChannel("evt_1")); got != "room/CS101/event/evt_1" {
		t.Fatalf("unexpected per-event topic %q", got)
	}
	if got := Wildcard("CS101"); got != "room/CS101/#" {
		t.Fatalf("unexpected wildcard %q", got)
	}
}

func TestSuffix(t *testing.T) {
	testCases := []struct {
		name       string
		topic      string
		classCode  string
		wantSuffix string
		wantOK     bool
	}{
		{name: "plain_channel", topic: "room/CS101/message", classCode: "CS101", wantSuffix: "message", wantOK: true},
		{name: "per_event_channel", topic: "room/CS101/event/evt_1", classCode: "CS101", wantSuffix: "event/evt_1", wantOK: true},
		{name: "foreign_room", topic: "room/EE201/message", classCode: "CS101", wantOK: false},
		{name: "unrelated_topic", topic: "weather/CS101/message", classCode: "CS101", wantOK: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			suffix, ok := Suffix(testCase.topic, testCase.classCode)
			if ok != testCase.wantOK {
				t.Fatalf("Suffix(%q, %q) ok = %v, want %v", testCase.topic, testCase.classCode, ok, testCase.wantOK)
			}
			if suffix != testCase.wantSuffix {
				t.Fatalf("Suffix(%q, %q) = %q, want %q", testCase.topic, testCase.classCode, suffix, testCase.wantSuffix)
			}
		})
	}
}

func TestDeliveryClasses(t *testing.T) {
	if Reliable.QoS != 1 || Reliable.Retained {
		t.Fatalf("unexpected reliable class %#v", Reliable)
	}
	if ReliableRetained.QoS != 1 || !ReliableRetained.Retained {
		t.Fatalf("unexpected retained class %#v", ReliableRetained)
	}
	if BestEffort.QoS != 0 || BestEffort.Retained {
		t.Fatalf("unexpected best-effort class %#v", BestEffort)
	}
}
