package relay

import (
	"strconv"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// ConversationKey identifies one independent delivery-ordering domain: a user
// and, optionally, a sub-thread (forum topic) of the chat with that user.
// ThreadID zero means "no sub-thread".
type ConversationKey struct {
	UserID   int64
	ThreadID int64
}

// Target addresses a chat on the chat surface. It is resolved from a
// ConversationKey by the Registry.
type Target struct {
	ChatID   int64
	ThreadID int64
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// Key returns the conversation key for a user and thread. A negative thread
// is normalised to zero.
func Key(userID, threadID int64) ConversationKey {
	if threadID < 0 {
		threadID = 0
	}
	return ConversationKey{UserID: userID, ThreadID: threadID}
}

///////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (k ConversationKey) String() string {
	return strconv.FormatInt(k.UserID, 10) + ":" + strconv.FormatInt(k.ThreadID, 10)
}

func (t Target) String() string {
	if t.ThreadID == 0 {
		return strconv.FormatInt(t.ChatID, 10)
	}
	return strconv.FormatInt(t.ChatID, 10) + "/" + strconv.FormatInt(t.ThreadID, 10)
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// HasThread returns true if the key addresses a sub-thread
func (k ConversationKey) HasThread() bool {
	return k.ThreadID != 0
}
