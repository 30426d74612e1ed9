package announcements

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// BlockType tags the variants of a banner block. Unknown values are kept in
// the document and render as nothing, so documents written by a newer admin
// console keep working here.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockHighlight  BlockType = "highlight"
	BlockIcon       BlockType = "icon"
	BlockLink       BlockType = "link"
	BlockButton     BlockType = "button"
	BlockImage      BlockType = "image"
	BlockBackground BlockType = "background"
	BlockHTML       BlockType = "html"
)

// Known reports whether this renderer understands the block type.
func (t BlockType) Known() bool {
	switch t {
	case BlockText, BlockHighlight, BlockIcon, BlockLink, BlockButton, BlockImage, BlockBackground, BlockHTML:
		return true
	}
	return false
}

// Block is one typed, styleable fragment of the banner. The meaning of
// Content depends on Type: text for text-ish blocks, a URL for image and
// background blocks, raw markup for html blocks.
type Block struct {
	ID      string            `json:"id"`
	Type    BlockType         `json:"type"`
	Content string            `json:"content"`
	URL     string            `json:"url,omitempty"`
	Width   string            `json:"width,omitempty"`
	Height  string            `json:"height,omitempty"`
	Styles  map[string]string `json:"styles,omitempty"`
}

// Content wraps the ordered block sequence. Array order is render order.
type Content struct {
	Blocks []Block `json:"blocks"`
}

// Document is the singleton announcement settings record. The legacy flat
// fields are only populated by documents persisted before the block editor
// existed; see EffectiveBlocks.
type Document struct {
	IsVisible       bool              `json:"isVisible"`
	BackgroundColor string            `json:"backgroundColor,omitempty"`
	BackgroundImage string            `json:"backgroundImage,omitempty"`
	Width           string            `json:"width,omitempty"`
	Height          string            `json:"height,omitempty"`
	Styles          map[string]string `json:"styles,omitempty"`
	Content         Content           `json:"content"`

	// Legacy flat shape.
	Text           string `json:"text,omitempty"`
	Highlight      string `json:"highlight,omitempty"`
	AdditionalText string `json:"additionalText,omitempty"`
	LinkText       string `json:"linkText,omitempty"`
	LinkURL        string `json:"linkUrl,omitempty"`
}

// NewBlockID returns an id unique within any document.
func NewBlockID() string {
	return uuid.NewString()
}

var errDuplicateBlockID = errors.New("duplicate block id")

// Validate checks the structural invariant: every block carries a non-empty
// id unique among its siblings, so reorder and remove operations can
// address it. Multiple background blocks are tolerated (last one wins).
func (d *Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Content.Blocks))
	for i, b := range d.Content.Blocks {
		if b.ID == "" {
			return fmt.Errorf("block %d: id is required", i)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("block %d: %w: %s", i, errDuplicateBlockID, b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	return nil
}
