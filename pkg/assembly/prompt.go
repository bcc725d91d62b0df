package assembly

import "strings"

// Prompt is the host's confirmation capability. YesNo asks the user and
// invokes exactly one of the callbacks (either may be nil). Message shows
// an informational notice.
type Prompt interface {
	YesNo(title, message string, onYes, onNo func())
	Message(title string, lines ...string)
}

// AutoPrompt answers every question with Answer and records what it was
// shown. It is used by scripts and tests.
type AutoPrompt struct {
	Answer    bool
	Questions []string
	Messages  []string
}

// YesNo implements Prompt.
func (p *AutoPrompt) YesNo(title, message string, onYes, onNo func()) {
	p.Questions = append(p.Questions, title)
	if p.Answer {
		if onYes != nil {
			onYes()
		}
		return
	}
	if onNo != nil {
		onNo()
	}
}

// Message implements Prompt.
func (p *AutoPrompt) Message(title string, lines ...string) {
	p.Messages = append(p.Messages, title+": "+strings.Join(lines, "; "))
}
