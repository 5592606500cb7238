// Package message describes the content of IM messages as a chain of typed elements.
package message

import (
	"strings"

	"github.com/samber/lo"
)

// ElementType names a message element kind as reported by the IM backend.
type ElementType string

const (
	Text           ElementType = "text"
	At             ElementType = "at"
	Face           ElementType = "face"
	MarketFace     ElementType = "market_face"
	Dice           ElementType = "dice"
	FingerGuessing ElementType = "finger_guessing"
	LightApp       ElementType = "light_app"
	RichMsg        ElementType = "rich_msg"
	FriendImage    ElementType = "friend_image"
	GroupImage     ElementType = "group_image"
	FlashImage     ElementType = "flash_image"
	VideoFile      ElementType = "video_file"
	Reply          ElementType = "reply"
	Forward        ElementType = "forward"
	Voice          ElementType = "voice"
	File           ElementType = "file"
)

var forwardable = map[ElementType]struct{}{
	Text:           {},
	At:             {},
	Face:           {},
	MarketFace:     {},
	Dice:           {},
	FingerGuessing: {},
	LightApp:       {},
	RichMsg:        {},
	FriendImage:    {},
	GroupImage:     {},
	FlashImage:     {},
	VideoFile:      {},
}

// Element is one piece of a message. Which fields are set depends on Type:
// Text for text, Target for mentions, ID for faces and dice values,
// URL for images and videos, Data for app and rich payloads.
type Element struct {
	Type   ElementType `json:"type"`
	Text   string      `json:"text,omitempty"`
	Target string      `json:"target,omitempty"`
	ID     string      `json:"id,omitempty"`
	URL    string      `json:"url,omitempty"`
	Data   string      `json:"data,omitempty"`
}

func NewText(s string) Element {
	return Element{Type: Text, Text: s}
}

func (e Element) Forwardable() bool {
	_, ok := forwardable[e.Type]
	return ok
}

// Chain is an ordered message.
type Chain []Element

func Plain(s string) Chain {
	return Chain{NewText(s)}
}

// Content concatenates the text elements, which is what commands are parsed from.
func (c Chain) Content() string {
	var b strings.Builder
	for _, e := range c {
		if e.Type == Text {
			b.WriteString(e.Text)
		}
	}
	return b.String()
}

// Forwardable keeps only the element kinds that can be relayed to another group.
func (c Chain) Forwardable() Chain {
	return lo.Filter(c, func(e Element, _ int) bool {
		return e.Forwardable()
	})
}

// MapText rewrites every text element with fn.
func (c Chain) MapText(fn func(string) string) Chain {
	return lo.Map(c, func(e Element, _ int) Element {
		if e.Type == Text {
			e.Text = fn(e.Text)
		}
		return e
	})
}
