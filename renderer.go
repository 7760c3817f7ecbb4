package relay

///////////////////////////////////////////////////////////////////////////////
// INTERFACES

// Renderer converts raw text into content for the chat surface. Render must
// be pure and idempotent; when it fails, callers fall back to Plain.
type Renderer interface {
	// Render returns formatted content for the text
	Render(text string) (Content, error)

	// Plain returns unformatted content with any sentinel markers removed
	Plain(text string) Content
}
