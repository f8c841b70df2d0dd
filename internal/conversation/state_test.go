package conversation_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-assistant/internal/conversation"
)

func TestState_Transitions(t *testing.T) {
	var st conversation.State
	assert.True(t, st.IsIdle())
	assert.False(t, st.ExpectsText())

	st.Awaiting = conversation.AwaitingTaskContent
	assert.True(t, st.ExpectsText())

	next := st.WithPending("buy milk")
	assert.Equal(t, conversation.AwaitingCategorySelection, next.Awaiting)
	require.NotNil(t, next.Pending)
	assert.Equal(t, "buy milk", next.Pending.Content)
	assert.False(t, next.ExpectsText())
	assert.Equal(t, "awaiting_category_selection", next.Awaiting.String())
}

func TestMemoryStore(t *testing.T) {
	s := conversation.NewMemoryStore()
	assert.True(t, s.Get(1).IsIdle())

	s.Set(1, conversation.State{Awaiting: conversation.AwaitingCategoryName})
	s.Set(2, conversation.State{Awaiting: conversation.AwaitingTaskContent})
	assert.Equal(t, conversation.AwaitingCategoryName, s.Get(1).Awaiting)
	assert.Equal(t, 2, s.Active())

	s.Clear(1)
	assert.True(t, s.Get(1).IsIdle())
	assert.Equal(t, conversation.AwaitingTaskContent, s.Get(2).Awaiting, "users are independent")

	s.Set(2, conversation.State{})
	assert.Zero(t, s.Active())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := conversation.NewMemoryStore()
	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Set(id, conversation.State{Awaiting: conversation.AwaitingTaskContent})
			_ = s.Get(id)
			s.Clear(id)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, s.Active())
}
