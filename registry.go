package relay

///////////////////////////////////////////////////////////////////////////////
// INTERFACES

// Registry maps conversations to terminal windows and chat targets
type Registry interface {
	// Bindings returns a snapshot of all conversation to window bindings
	Bindings() []Binding

	// Window returns the window bound to a conversation
	Window(key ConversationKey) (string, bool)

	// Resolve returns the chat target for a conversation
	Resolve(key ConversationKey) Target

	// Unbind removes the binding for a conversation
	Unbind(key ConversationKey) error
}

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Binding binds a conversation to a terminal window
type Binding struct {
	Key      ConversationKey
	WindowID string
}
