package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatLine(t *testing.T) {
	actor := uint64(7)
	cases := []struct {
		name string
		ev   ReservationEvent
		want string
	}{
		{
			name: "created anonymously",
			ev:   ReservationEvent{Type: "reservation.created", ReservationID: 3, RoomID: 1, Date: "2026-02-16", StartHour: 10, Student1ID: 4, Student2ID: 5, OccurredAt: "2026-02-16T00:00:00Z"},
			want: "[2026-02-16T00:00:00Z] reservation.created | reservation_id=3 | room_id=1 | date=2026-02-16 | hour=10 | students=4,5 | actor=anonymous\n",
		},
		{
			name: "deleted by user",
			ev:   ReservationEvent{Type: "reservation.deleted", ReservationID: 3, RoomID: 1, Date: "2026-02-16", StartHour: 10, Student1ID: 4, Student2ID: 5, ActorID: &actor, OccurredAt: "t"},
			want: "[t] reservation.deleted | reservation_id=3 | room_id=1 | date=2026-02-16 | hour=10 | students=4,5 | actor=7\n",
		},
		{
			name: "purge",
			ev:   ReservationEvent{Type: "reservations.purged", Date: "2026-02-09", Count: 12, OccurredAt: "t"},
			want: "[t] reservations.purged | before=2026-02-09 | count=12\n",
		},
		{
			name: "reset",
			ev:   ReservationEvent{Type: "reservations.reset", OccurredAt: "t"},
			want: "[t] reservations.reset | count=0\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatLine(tc.ev); got != tc.want {
				t.Fatalf("got  %q\nwant %q", got, tc.want)
			}
		})
	}
}

func TestHandleMessageAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	body := []byte(`{"type":"reservations.reset","count":3,"occurred_at":"t"}`)
	for i := 0; i < 2; i++ {
		if err := handleMessage(dir, body); err != nil {
			t.Fatal(err)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, LogFile))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "reservations.reset | count=3\n"); n != 2 {
		t.Fatalf("log has %d lines:\n%s", n, data)
	}
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	if err := handleMessage(dir, []byte("not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if err := handleMessage(dir, []byte(`{"count":1}`)); err == nil {
		t.Fatal("expected error for event without type")
	}
}
