// Package rag answers questions over the document store: retrieve the
// passages nearest the question, fold them into an answer prompt and
// hand that to the chat model.
package rag

import "strings"

// BuildAnswerPrompt renders retrieved passages and the question into
// the grounding prompt the model answers from. The exact spacing is
// part of the prompt, models are sensitive to it.
func BuildAnswerPrompt(passages []string, question string) string {
	var b strings.Builder
	b.WriteString("請以以下內容為基礎，回答問題。\n\n")
	for _, passage := range passages {
		b.WriteString(passage)
		b.WriteString("\n\n")
	}
	b.WriteString("\n\n問題： ")
	b.WriteString(question)
	b.WriteString("\n答案：")
	return b.String()
}
