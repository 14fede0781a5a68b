package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(store *ConversationStore, n int) []Message {
	all := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		role := MessageRoleUser
		if i%2 == 1 {
			role = MessageRoleAssistant
		}
		m := Message{Role: role, Content: fmt.Sprintf("message %d", i)}
		store.Append(m)
		all = append(all, m)
	}
	return all
}

func TestConversationStore_LastReturnsTail(t *testing.T) {
	for n := 0; n <= 12; n++ {
		t.Run(fmt.Sprintf("%d messages", n), func(t *testing.T) {
			store := NewConversationStore()
			all := fill(store, n)

			want := n
			if want > 5 {
				want = 5
			}
			got := store.Last(5)
			require.Len(t, got, want)
			assert.Equal(t, all[n-want:], got)
			assert.Equal(t, n, store.Len())
		})
	}
}

func TestConversationStore_LastDoesNotAlias(t *testing.T) {
	store := NewConversationStore()
	fill(store, 3)

	got := store.Last(2)
	got[0].Content = "changed"

	assert.Equal(t, "message 1", store.Last(2)[0].Content)
}

func TestConversationStore_LastNonPositive(t *testing.T) {
	store := NewConversationStore()
	fill(store, 3)

	assert.Empty(t, store.Last(0))
	assert.Empty(t, store.Last(-1))
}

func TestConversationStore_NoAlternationEnforced(t *testing.T) {
	store := NewConversationStore()
	store.Append(NewUserMessage("one"))
	store.Append(NewUserMessage("two"))

	assert.Equal(t, []Message{NewUserMessage("one"), NewUserMessage("two")}, store.All())
}

func TestConversationStore_Clear(t *testing.T) {
	store := NewConversationStore()
	fill(store, 7)

	store.Clear()
	assert.Empty(t, store.Last(5))
	assert.Zero(t, store.Len())

	store.Clear()
	assert.Empty(t, store.All())

	store.Append(NewUserMessage("fresh"))
	assert.Equal(t, []Message{NewUserMessage("fresh")}, store.Last(5))
}
