package models

import (
	"encoding/json"
	"testing"
)

func Test_FlexID_AcceptsLegacyShapes(t *testing.T) {
	cases := []struct {
		in   string
		want FlexID
	}{
		{`{"folder_id": "42"}`, "42"},
		{`{"folder_id": 42}`, "42"},
		{`{"folder_id": null}`, ""},
	}
	for _, c := range cases {
		var doc struct {
			FolderID FlexID `json:"folder_id"`
		}
		if err := json.Unmarshal([]byte(c.in), &doc); err != nil {
			t.Fatalf("%s: %v", c.in, err)
		}
		if doc.FolderID != c.want {
			t.Errorf("%s: got %q, want %q", c.in, doc.FolderID, c.want)
		}
	}
}

func Test_FlexID_RootMarshalsAsNull(t *testing.T) {
	b, err := json.Marshal(struct {
		FolderID FlexID `json:"folder_id"`
	}{})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"folder_id":null}` {
		t.Fatalf("got %s", b)
	}
}

func Test_NewID_Monotonic(t *testing.T) {
	prev := NewID()
	for i := 0; i < 1000; i++ {
		next := NewID()
		if next <= prev {
			t.Fatalf("ids not increasing: %d then %d", prev, next)
		}
		prev = next
	}
}

func Test_NewSessionID_Shape(t *testing.T) {
	id := NewSessionID("video.mp4")
	if len(id) != 12 {
		t.Fatalf("session id %q is not 12 hex chars", id)
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Fatalf("session id %q has non-hex rune %q", id, r)
		}
	}
}
