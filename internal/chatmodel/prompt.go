package chatmodel

import "strings"

// DefaultPersona is the fixed preamble prepended to the caller's history
// when persona prepending is enabled. The exchange anchors the model to
// Traditional Chinese output before any real history is rendered.
func DefaultPersona() []Message {
	return []Message{
		System("You are a helpful assistant. 你是一個樂於助人的助手。"),
		User("請用中文回答我"),
		Assistant("當然!為方便溝通,我使用的是傳統中文語言。您有何請求或疑問,請慷慨請教我?"),
	}
}

// renderPrompt compiles an ordered turn sequence into a single prompt
// string in the llama2-chat grammar:
//
//	<s>[INST] <<SYS>>
//	{system}
//	<</SYS>>
//
//	{user} [/INST]
//	 {assistant} </s>
//
// The system block appears only when the turn carries a note, and the
// assistant reply (with its closing </s>) only when the turn is complete.
// A turn without an assistant reply therefore leaves the prompt open for
// the model to continue. The function is pure: identical sequences render
// byte-identically.
func renderPrompt(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString("\n<s>[INST] ")
		if t.System != "" {
			b.WriteString("<<SYS>>\n")
			b.WriteString(t.System)
			b.WriteString("\n<</SYS>>\n\n")
		}
		b.WriteString(t.User)
		b.WriteString(" [/INST]\n ")
		if t.Assistant != "" {
			b.WriteString(t.Assistant)
			b.WriteString(" </s>")
		}
	}
	return b.String()
}
