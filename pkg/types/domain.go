package types

// Role names recognised by the prompt template. Any other value is rendered
// as an assistant turn.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one role-tagged turn of a conversation.
type ChatMessage struct {
	// Speaker of the turn: system, user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Text of the turn.
	// example: Write a haiku about the ocean.
	Content string `json:"content" example:"Write a haiku about the ocean."`
}

// ModelInfo describes the model file served by this process.
type ModelInfo struct {
	// Identifier reported by /health (MODEL_ID, or the file name).
	// example: tinyllama-1.1b-chat.Q4_K_M.gguf
	ID string `json:"id" example:"tinyllama-1.1b-chat.Q4_K_M.gguf"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/tinyllama-1.1b-chat.Q4_K_M.gguf
	Path string `json:"path" example:"/home/user/models/tinyllama-1.1b-chat.Q4_K_M.gguf"`
	// Quantization level parsed from the file name, if any.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// File size in MB.
	// example: 638
	SizeMB int `json:"size_mb,omitempty" example:"638"`
}
