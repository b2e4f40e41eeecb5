package slackclt

// Message is the body of a Slack incoming-webhook request.
type Message struct {
	// Text is the fallback text shown in notifications.
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

// Block is a Slack layout block.
// Only the block types used by incoming-webhook messages are modelled.
type Block struct {
	Type     string `json:"type"`
	Text     *Text  `json:"text,omitempty"`
	Elements []Text `json:"elements,omitempty"`
}

// Text is a Slack text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func Mrkdwn(text string) Text {
	return Text{Type: "mrkdwn", Text: text}
}

func SectionBlock(text string) Block {
	t := Mrkdwn(text)
	return Block{Type: "section", Text: &t}
}

func ContextBlock(elements ...Text) Block {
	return Block{Type: "context", Elements: elements}
}

func DividerBlock() Block {
	return Block{Type: "divider"}
}
