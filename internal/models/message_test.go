package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationID(t *testing.T) {
	// Symmetric: both parties derive the same thread key.
	assert.Equal(t, ConversationID("alice", "bob"), ConversationID("bob", "alice"))

	// Lower id always comes first.
	assert.Equal(t, "alice_bob", ConversationID("bob", "alice"))
	assert.Equal(t, "alice_bob", ConversationID("alice", "bob"))

	// Distinct pairs get distinct keys.
	assert.NotEqual(t, ConversationID("alice", "bob"), ConversationID("alice", "carol"))
}
