package tools

// ToolResult carries the outcome of a tool execution. ForLLM goes back to
// the model as the tool result; ForUser, when set, is surfaced directly in
// the chat without another model turn.
type ToolResult struct {
	ForLLM  string
	ForUser string
	Silent  bool
	IsError bool
	Err     error
}

// SilentResult reports success to the model without user-visible output.
func SilentResult(forLLM string) *ToolResult {
	return &ToolResult{ForLLM: forLLM, Silent: true}
}

// UserResult surfaces the same text to both the model and the user.
func UserResult(text string) *ToolResult {
	return &ToolResult{ForLLM: text, ForUser: text}
}

// ErrorResult reports a failure to the model.
func ErrorResult(message string) *ToolResult {
	return &ToolResult{ForLLM: message, IsError: true}
}

// WithError attaches the underlying error for logging.
func (r *ToolResult) WithError(err error) *ToolResult {
	if r == nil {
		return nil
	}
	r.Err = err
	return r
}
