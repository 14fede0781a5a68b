package core

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Message is one turn of the conversation. It is a value type; the store
// hands out copies so a Message never changes after it is created.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

func NewUserMessage(text string) Message {
	return Message{Role: MessageRoleUser, Content: text}
}

func NewAssistantMessage(text string) Message {
	return Message{Role: MessageRoleAssistant, Content: text}
}

func NewSystemMessage(text string) Message {
	return Message{Role: MessageRoleSystem, Content: text}
}

// CompletionRequest is everything the completion service needs for one call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float32
}
