package state

import (
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()

	if s.Active(1) {
		t.Fatal("fresh store must have no active sessions")
	}

	s.Start(1, "registration", "ENTER_FIRST_NAME", map[string]string{"username": "alice"})
	if !s.Active(1) {
		t.Fatal("session must be active after Start")
	}

	sess, ok := s.Get(1)
	if !ok {
		t.Fatal("Get must find the started session")
	}
	if sess.Flow != "registration" || sess.Step != "ENTER_FIRST_NAME" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.Fields["username"] != "alice" {
		t.Fatalf("seed fields not stored: %+v", sess.Fields)
	}

	s.Advance(1, "ENTER_LAST_NAME", map[string]string{"first_name": "Alice"})
	sess, _ = s.Get(1)
	if sess.Step != "ENTER_LAST_NAME" {
		t.Fatalf("step = %s, want ENTER_LAST_NAME", sess.Step)
	}
	if sess.Fields["first_name"] != "Alice" || sess.Fields["username"] != "alice" {
		t.Fatalf("field merge broken: %+v", sess.Fields)
	}

	s.Clear(1)
	if s.Active(1) {
		t.Fatal("session must be gone after Clear")
	}
}

func TestMemoryStoreStartOverwrites(t *testing.T) {
	s := NewMemoryStore()
	s.Start(7, "registration", "ENTER_PHONE", map[string]string{"first_name": "Bob"})
	s.Start(7, "order_creation", "ENTER_SERVICE", nil)

	sess, ok := s.Get(7)
	if !ok {
		t.Fatal("expected active session")
	}
	if sess.Flow != "order_creation" || sess.Step != "ENTER_SERVICE" {
		t.Fatalf("restart must win: %+v", sess)
	}
	if len(sess.Fields) != 0 {
		t.Fatalf("no residual fields expected, got %+v", sess.Fields)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.Start(3, "registration", "ENTER_FIRST_NAME", nil)

	sess, _ := s.Get(3)
	sess.Fields["first_name"] = "mutated"

	again, _ := s.Get(3)
	if _, ok := again.Fields["first_name"]; ok {
		t.Fatal("Get must return a defensive copy of fields")
	}
}

func TestMemoryStoreConcurrentChats(t *testing.T) {
	s := NewMemoryStore()

	const chats = 64
	var wg sync.WaitGroup
	wg.Add(chats)
	for i := 0; i < chats; i++ {
		go func(id int64) {
			defer wg.Done()
			s.Start(id, "order_creation", "ENTER_NAME", nil)
			for step := 0; step < 50; step++ {
				s.Advance(id, "ENTER_SERVICE", map[string]string{
					"customer_name": fmt.Sprintf("user-%d-%d", id, step),
				})
				s.Get(id)
				s.Active(id)
			}
			s.Clear(id)
		}(int64(i))
	}
	wg.Wait()

	for i := int64(0); i < chats; i++ {
		if s.Active(i) {
			t.Fatalf("chat %d still has a session", i)
		}
	}
}
