package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendMessageLenient(t *testing.T) {
	st := newTestStore(t)

	// Ни отправитель, ни получатель не существуют в users - это допустимо
	msg, err := st.AppendMessage("ghost", "phantom", "boo")
	require.NoError(t, err)

	assert.NotZero(t, msg.ID)
	assert.Equal(t, "ghost", msg.Sender)
	assert.Equal(t, "phantom", msg.Receiver)
	assert.Equal(t, "boo", msg.Text)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestGetConversationBothDirections(t *testing.T) {
	st := newTestStore(t)

	_, err := st.AppendMessage("alice", "bob", "hi")
	require.NoError(t, err)
	_, err = st.AppendMessage("bob", "alice", "hello")
	require.NoError(t, err)
	_, err = st.AppendMessage("alice", "bob", "how are you")
	require.NoError(t, err)

	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		messages, err := st.GetConversation(pair[0], pair[1])
		require.NoError(t, err)
		require.Len(t, messages, 3)

		assert.Equal(t, "hi", messages[0].Text)
		assert.Equal(t, "alice", messages[0].Sender)
		assert.Equal(t, "hello", messages[1].Text)
		assert.Equal(t, "bob", messages[1].Sender)
		assert.Equal(t, "how are you", messages[2].Text)
	}
}

func TestGetConversationIsolation(t *testing.T) {
	st := newTestStore(t)

	_, err := st.AppendMessage("alice", "bob", "for bob")
	require.NoError(t, err)
	_, err = st.AppendMessage("alice", "carol", "for carol")
	require.NoError(t, err)
	_, err = st.AppendMessage("carol", "bob", "between others")
	require.NoError(t, err)

	messages, err := st.GetConversation("alice", "bob")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "for bob", messages[0].Text)
}

func TestGetConversationEmpty(t *testing.T) {
	st := newTestStore(t)

	messages, err := st.GetConversation("alice", "bob")
	require.NoError(t, err)
	assert.Empty(t, messages)
}
