package announcements

// EffectiveBlocks returns the document's block sequence, translating the
// legacy flat shape (text / highlight / additionalText / linkText+linkUrl)
// into blocks in that fixed order. Old persisted documents keep rendering
// without a migration step.
func (d *Document) EffectiveBlocks() []Block {
	if len(d.Content.Blocks) > 0 {
		return d.Content.Blocks
	}
	return legacyBlocks(d)
}

func legacyBlocks(d *Document) []Block {
	var blocks []Block
	if d.Text != "" {
		blocks = append(blocks, Block{ID: "legacy-text", Type: BlockText, Content: d.Text})
	}
	if d.Highlight != "" {
		blocks = append(blocks, Block{ID: "legacy-highlight", Type: BlockHighlight, Content: d.Highlight})
	}
	if d.AdditionalText != "" {
		blocks = append(blocks, Block{ID: "legacy-additional", Type: BlockText, Content: d.AdditionalText})
	}
	if d.LinkText != "" {
		blocks = append(blocks, Block{ID: "legacy-link", Type: BlockLink, Content: d.LinkText, URL: d.LinkURL})
	}
	return blocks
}
