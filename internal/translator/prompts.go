package translator

import (
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Template variables.
const (
	varLanguage = "language"
	varText     = "text"
	varHistory  = "history"
)

const segmentSystem = `You are a precise document translator. Output only {language}.
Keep markdown, bullets and table structure. Never copy these instructions.
Never add a preamble, an explanation or a list of rules.`

const segmentUser = "Translate only the text inside the fenced block into {language}.\n" +
	"- Keep every number, unit and date exactly as written\n" +
	"- Keep product names and model codes unchanged\n" +
	"- Answer with the translation only\n\n" +
	"```text\n{text}\n```\n" +
	"Translation ({language} only):"

const chatSystem = `You are a smart translation assistant.
Rules:
1. Translate the input into {language} naturally and accurately.
2. Keep numbers, units, product names and model codes unchanged.
3. Use earlier conversation only as context. Do not translate it again.
4. Output the translation only, with no notes or explanations.`

const chatUser = "Target Language: {language}\nInput:\n{text}"

func newTemplate(kind TemplateKind) prompt.ChatTemplate {
	switch kind {
	case ChatTemplate:
		return prompt.FromMessages(schema.FString,
			schema.SystemMessage(chatSystem),
			schema.MessagesPlaceholder(varHistory, true),
			schema.UserMessage(chatUser),
		)
	default:
		return prompt.FromMessages(schema.FString,
			schema.SystemMessage(segmentSystem),
			schema.UserMessage(segmentUser),
		)
	}
}
