package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/llms"
)

func exchange(n int) (llms.Message, llms.Message) {
	return llms.Message{Role: llms.RoleUser, Content: fmt.Sprintf("q%d", n)},
		llms.Message{Role: llms.RoleAssistant, Content: fmt.Sprintf("a%d", n)}
}

func TestAppendAndHistory(t *testing.T) {
	m := NewConversationMemory(20)

	u, a := exchange(1)
	m.Append("alice", u, a)

	history := m.History("alice")
	assert.Len(t, history, 2)
	assert.Equal(t, "q1", history[0].Content)
	assert.Equal(t, "a1", history[1].Content)
}

func TestWindowTrimsOldestFirst(t *testing.T) {
	m := NewConversationMemory(6)

	for i := 1; i <= 5; i++ {
		u, a := exchange(i)
		m.Append("alice", u, a)
	}

	history := m.History("alice")
	assert.Len(t, history, 6)
	assert.Equal(t, "q3", history[0].Content)
	assert.Equal(t, "a5", history[5].Content)
}

func TestUsersAreIndependent(t *testing.T) {
	m := NewConversationMemory(20)

	u, a := exchange(1)
	m.Append("alice", u, a)

	assert.Empty(t, m.History("bob"))
	assert.Equal(t, 2, m.Len("alice"))
	assert.Equal(t, 0, m.Len("bob"))
}

func TestHistoryReturnsCopy(t *testing.T) {
	m := NewConversationMemory(20)

	u, a := exchange(1)
	m.Append("alice", u, a)

	history := m.History("alice")
	history[0].Content = "mutated"

	assert.Equal(t, "q1", m.History("alice")[0].Content)
}

func TestClear(t *testing.T) {
	m := NewConversationMemory(20)

	u, a := exchange(1)
	m.Append("alice", u, a)
	m.Append("bob", u, a)

	m.Clear("alice")
	assert.Empty(t, m.History("alice"))
	assert.NotEmpty(t, m.History("bob"))

	m.ClearAll()
	assert.Empty(t, m.History("bob"))
}
