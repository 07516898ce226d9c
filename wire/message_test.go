package wire

import "testing"

func TestNewRequestFieldsAtTopLevel(t *testing.T) {
	msg := NewRequest("start_actor", map[string]interface{}{
		"actor_name": "Echo",
		"port":       1234,
		"uid":        "uid-1",
	})

	req, ok := msg.Req()
	if !ok || req != "start_actor" {
		t.Fatalf("expected req=start_actor, got (%q, %v)", req, ok)
	}
	name, ok := msg.StringField("actor_name")
	if !ok || name != "Echo" {
		t.Errorf("expected actor_name=Echo at top level, got (%q, %v)", name, ok)
	}
	uid, ok := msg.StringField("uid")
	if !ok || uid != "uid-1" {
		t.Errorf("expected uid field at top level, got (%q, %v)", uid, ok)
	}
}

func TestSuccessAndErrorMessages(t *testing.T) {
	ok := SuccessMessage(nil)
	status, present := ok.Status()
	if !present || status != StatusOK {
		t.Errorf("expected status ok, got (%v, %v)", status, present)
	}

	bad := ErrorMessage("actor not found", map[string]interface{}{"uid": "uid-1"})
	status, present = bad.Status()
	if !present || status != StatusError {
		t.Errorf("expected status error, got (%v, %v)", status, present)
	}
	reason, present := bad.ErrorReason()
	if !present || reason != "actor not found" {
		t.Errorf("expected error reason, got (%q, %v)", reason, present)
	}
	data, present := bad.Data()
	if !present || data["uid"] != "uid-1" {
		t.Errorf("expected data.uid=uid-1, got (%v, %v)", data, present)
	}
}

func TestMessageRoundTripsThroughJSON(t *testing.T) {
	original := NewRequest("kill_actor", map[string]interface{}{"uid": "uid-9"})

	body, err := original.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	decoded := &Message{}
	if err := decoded.UnmarshalJSON(body); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}

	req, _ := decoded.Req()
	if req != "kill_actor" {
		t.Errorf("expected req=kill_actor after round trip, got %q", req)
	}
	uid, _ := decoded.StringField("uid")
	if uid != "uid-9" {
		t.Errorf("expected uid=uid-9 after round trip, got %q", uid)
	}
}

func TestIntFieldCoercesFromFloat64(t *testing.T) {
	decoded := &Message{}
	if err := decoded.UnmarshalJSON([]byte(`{"port": 4999}`)); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}
	port, ok := decoded.IntField("port")
	if !ok || port != 4999 {
		t.Errorf("expected port=4999, got (%d, %v)", port, ok)
	}
}
