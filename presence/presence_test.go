package presence

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"minim/models"
)

type fakeSession struct {
	id string
}

func (f *fakeSession) ID() string                { return f.id }
func (f *fakeSession) Push(models.Message) error { return nil }

func TestJoinAndSessionsFor(t *testing.T) {
	r := NewRegistry()
	s := &fakeSession{id: "s1"}

	assert.Empty(t, r.SessionsFor("alice"))

	r.Join("alice", s)

	sessions := r.SessionsFor("alice")
	assert.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID())
}

func TestJoinDuplicateIsNoOp(t *testing.T) {
	r := NewRegistry()
	s := &fakeSession{id: "s1"}

	r.Join("alice", s)
	r.Join("alice", s)

	assert.Len(t, r.SessionsFor("alice"), 1)
	assert.Equal(t, 1, r.Len())
}

func TestMultiRoomMembership(t *testing.T) {
	r := NewRegistry()
	s := &fakeSession{id: "s1"}

	// Повторный join под другим именем добавляет членство, не заменяет
	r.Join("alice", s)
	r.Join("bob", s)

	assert.Len(t, r.SessionsFor("alice"), 1)
	assert.Len(t, r.SessionsFor("bob"), 1)
	assert.Equal(t, 1, r.Len())

	r.Leave(s)

	assert.Empty(t, r.SessionsFor("alice"))
	assert.Empty(t, r.SessionsFor("bob"))
	assert.Equal(t, 0, r.Len())
}

func TestMultipleSessionsPerUsername(t *testing.T) {
	r := NewRegistry()
	s1 := &fakeSession{id: "s1"}
	s2 := &fakeSession{id: "s2"}

	r.Join("alice", s1)
	r.Join("alice", s2)

	assert.Len(t, r.SessionsFor("alice"), 2)

	r.Leave(s1)

	sessions := r.SessionsFor("alice")
	assert.Len(t, sessions, 1)
	assert.Equal(t, "s2", sessions[0].ID())
}

func TestLeaveUnknownSession(t *testing.T) {
	r := NewRegistry()

	// Не должно паниковать
	r.Leave(&fakeSession{id: "ghost"})

	assert.Equal(t, 0, r.Len())
}

func TestSessionsForReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	s := &fakeSession{id: "s1"}

	r.Join("alice", s)
	snapshot := r.SessionsFor("alice")
	r.Leave(s)

	assert.Len(t, snapshot, 1)
	assert.Empty(t, r.SessionsFor("alice"))
}

func TestReset(t *testing.T) {
	r := NewRegistry()
	r.Join("alice", &fakeSession{id: "s1"})
	r.Join("bob", &fakeSession{id: "s2"})

	r.Reset()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Usernames())
}

func TestConcurrentJoinLeave(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := &fakeSession{id: "s" + strconv.Itoa(i)}
			username := "user" + strconv.Itoa(i%5)
			r.Join(username, s)
			r.SessionsFor(username)
			r.Leave(s)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Usernames())
}
