package announcements

// MoveDirection is the direction for MoveBlock.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

// All edit operations are pure in-memory mutations of the admin's draft;
// nothing touches storage until the draft is saved.

// AddBlock appends a new block of the given type with a fresh id and
// returns a pointer to it.
func (d *Document) AddBlock(t BlockType) *Block {
	block := Block{
		ID:     NewBlockID(),
		Type:   t,
		Styles: map[string]string{},
	}
	d.Content.Blocks = append(d.Content.Blocks, block)
	return &d.Content.Blocks[len(d.Content.Blocks)-1]
}

// UpdateBlock sets one of the block's scalar fields. Returns false when the
// block does not exist or the field is not editable.
func (d *Document) UpdateBlock(id, field, value string) bool {
	b := d.findBlock(id)
	if b == nil {
		return false
	}
	switch field {
	case "content":
		b.Content = value
	case "url":
		b.URL = value
	case "width":
		b.Width = value
	case "height":
		b.Height = value
	default:
		return false
	}
	return true
}

// UpdateBlockStyle sets one presentational attribute on the block.
func (d *Document) UpdateBlockStyle(id, styleField, value string) bool {
	b := d.findBlock(id)
	if b == nil {
		return false
	}
	if b.Styles == nil {
		b.Styles = map[string]string{}
	}
	b.Styles[styleField] = value
	return true
}

// RemoveBlock deletes the block with the given id, preserving the order of
// the remaining blocks.
func (d *Document) RemoveBlock(id string) bool {
	for i := range d.Content.Blocks {
		if d.Content.Blocks[i].ID == id {
			d.Content.Blocks = append(d.Content.Blocks[:i], d.Content.Blocks[i+1:]...)
			return true
		}
	}
	return false
}

// MoveBlock swaps the block with its immediate neighbor. Moving the first
// block up or the last block down is a no-op and returns false.
func (d *Document) MoveBlock(id string, dir MoveDirection) bool {
	blocks := d.Content.Blocks
	for i := range blocks {
		if blocks[i].ID != id {
			continue
		}
		switch dir {
		case MoveUp:
			if i == 0 {
				return false
			}
			blocks[i-1], blocks[i] = blocks[i], blocks[i-1]
		case MoveDown:
			if i == len(blocks)-1 {
				return false
			}
			blocks[i], blocks[i+1] = blocks[i+1], blocks[i]
		default:
			return false
		}
		return true
	}
	return false
}

func (d *Document) findBlock(id string) *Block {
	for i := range d.Content.Blocks {
		if d.Content.Blocks[i].ID == id {
			return &d.Content.Blocks[i]
		}
	}
	return nil
}
