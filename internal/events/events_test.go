package events

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHubDeliversToSessionSubscribers(t *testing.T) {
	h := NewHub(4)
	a1, cancelA1 := h.Subscribe("a")
	a2, cancelA2 := h.Subscribe("a")
	b, cancelB := h.Subscribe("b")
	defer cancelA2()
	defer cancelB()

	h.Notify(context.Background(), SessionEvent{Type: TypeLogout, SessionID: "a"})

	require.Equal(t, TypeLogout, (<-a1).Type)
	require.Equal(t, TypeLogout, (<-a2).Type)
	select {
	case ev := <-b:
		t.Fatalf("unexpected event for other session: %+v", ev)
	default:
	}

	cancelA1()
	cancelA1()
	require.Equal(t, 1, h.Subscribers("a"))
	_, open := <-a1
	require.False(t, open)
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe("s")
	defer cancel()

	h.Notify(context.Background(), SessionEvent{Type: TypeLogin, SessionID: "s"})
	h.Notify(context.Background(), SessionEvent{Type: TypeLogout, SessionID: "s"})

	require.Equal(t, TypeLogin, (<-ch).Type)
	require.Len(t, ch, 0)
}

func TestMultiSkipsNil(t *testing.T) {
	var got []string
	rec := NotifierFunc(func(_ context.Context, ev SessionEvent) { got = append(got, ev.Type) })
	Multi{nil, rec, Nop, rec}.Notify(context.Background(), SessionEvent{Type: TypeLogin})
	require.Equal(t, []string{TypeLogin, TypeLogin}, got)
}

func TestHandleAuditMessageAppendsLine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	for _, typ := range []string{TypeLogin, TypeLogout} {
		body, err := json.Marshal(SessionEvent{Type: typ, SessionID: "sid", UserID: "u1", Email: "a@b.c", Role: "admin", At: at})
		require.NoError(t, err)
		require.NoError(t, HandleAuditMessage(dir, body))
	}

	raw, err := os.ReadFile(filepath.Join(dir, "session.log"))
	require.NoError(t, err)
	require.Equal(t,
		"[2026-03-04T05:06:07Z] session login | session_id=sid | user_id=u1 | email=\"a@b.c\" | role=admin\n"+
			"[2026-03-04T05:06:07Z] session logout | session_id=sid | user_id=u1 | email=\"a@b.c\" | role=admin\n",
		string(raw))
}

func TestHandleAuditMessageRejectsBadPayload(t *testing.T) {
	dir := t.TempDir()
	require.Error(t, HandleAuditMessage(dir, []byte("nope")))
	require.Error(t, HandleAuditMessage(dir, []byte(`{"type":"login"}`)))
}

func TestAuditLinePlaceholders(t *testing.T) {
	line := AuditLine(SessionEvent{Type: TypeInvalidated, SessionID: "s", At: time.Unix(0, 0)})
	require.Equal(t, "[1970-01-01T00:00:00Z] session invalidated | session_id=s | user_id=- | email=\"\" | role=-\n", line)
}
