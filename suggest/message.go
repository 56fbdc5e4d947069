package suggest

// Message roles understood by the completion backends.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Names of the fixed user messages in a suggestion conversation.
const (
	NameTextBeforeCursor = "TextBeforeCursor"
	NameTextAfterCursor  = "TextAfterCursor"
	NameTextToEdit       = "TextToEdit"
	NameInsertionPrompt  = "InsertionPrompt"
	NameEditingPrompt    = "EditingPrompt"
)

// Message is one entry of the conversation sent to a completion backend.
// Position in the slice is the conversation order.
type Message struct {
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// State is a snapshot of the editing surface for one suggestion request.
// An empty Selection means insertion at the cursor; a non-empty Selection
// means the selection is to be rewritten.
type State struct {
	TextBefore string
	TextAfter  string
	Selection  string
}

// InsertionMessages builds the conversation for inserting text at the cursor:
// system, few-shot examples, TextAfterCursor, TextBeforeCursor, InsertionPrompt.
// TextAfterCursor comes before TextBeforeCursor; the prompt templates and
// few-shot examples are written against exactly this order, so it must not
// be swapped.
func InsertionMessages(systemPrompt string, fewShot []Message, st State, prompt string) []Message {
	msgs := make([]Message, 0, len(fewShot)+4)
	msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	msgs = append(msgs, fewShot...)
	msgs = append(msgs,
		Message{Role: RoleUser, Name: NameTextAfterCursor, Content: st.TextAfter},
		Message{Role: RoleUser, Name: NameTextBeforeCursor, Content: st.TextBefore},
		Message{Role: RoleUser, Name: NameInsertionPrompt, Content: prompt},
	)
	return msgs
}

// EditingMessages builds the conversation for rewriting the selection:
// system, few-shot examples, TextBeforeCursor, TextToEdit, TextAfterCursor,
// EditingPrompt.
func EditingMessages(systemPrompt string, fewShot []Message, st State, prompt string) []Message {
	msgs := make([]Message, 0, len(fewShot)+5)
	msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	msgs = append(msgs, fewShot...)
	msgs = append(msgs,
		Message{Role: RoleUser, Name: NameTextBeforeCursor, Content: st.TextBefore},
		Message{Role: RoleUser, Name: NameTextToEdit, Content: st.Selection},
		Message{Role: RoleUser, Name: NameTextAfterCursor, Content: st.TextAfter},
		Message{Role: RoleUser, Name: NameEditingPrompt, Content: prompt},
	)
	return msgs
}
