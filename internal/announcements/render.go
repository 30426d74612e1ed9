package announcements

// Node is one element of the rendered banner's inline flow. Kind mirrors
// the block type; RawHTML is set only for html blocks, whose content the
// client injects verbatim. That path is reachable only through admin saves,
// which is the deliberate trust boundary.
type Node struct {
	Kind    BlockType         `json:"kind"`
	Content string            `json:"content,omitempty"`
	URL     string            `json:"url,omitempty"`
	Width   string            `json:"width,omitempty"`
	Height  string            `json:"height,omitempty"`
	Styles  map[string]string `json:"styles,omitempty"`
	RawHTML bool              `json:"raw_html,omitempty"`
}

// Banner is the display tree both the admin preview and the live visitor
// view render from. Rendering the same document always yields the same
// banner.
type Banner struct {
	Visible         bool              `json:"visible"`
	BackgroundColor string            `json:"background_color,omitempty"`
	BackgroundImage string            `json:"background_image,omitempty"`
	Width           string            `json:"width,omitempty"`
	Height          string            `json:"height,omitempty"`
	Styles          map[string]string `json:"styles,omitempty"`
	Nodes           []Node            `json:"nodes"`
}

// Render is a pure function from document to display tree.
//   - nil document: hidden banner, never an error (fail closed)
//   - background blocks leave the inline flow and set the container
//     background image; with several, the last one wins
//   - unknown block types render as nothing
func Render(d *Document) Banner {
	if d == nil || !d.IsVisible {
		return Banner{Visible: false}
	}

	banner := Banner{
		Visible:         true,
		BackgroundColor: d.BackgroundColor,
		BackgroundImage: d.BackgroundImage,
		Width:           d.Width,
		Height:          d.Height,
		Styles:          d.Styles,
	}

	for _, b := range d.EffectiveBlocks() {
		if b.Type == BlockBackground {
			if b.Content != "" {
				banner.BackgroundImage = b.Content
			}
			continue
		}
		if !b.Type.Known() {
			continue
		}

		node := Node{
			Kind:    b.Type,
			Content: b.Content,
			URL:     b.URL,
			Styles:  b.Styles,
		}
		switch b.Type {
		case BlockImage:
			node.Width = b.Width
			node.Height = b.Height
		case BlockHTML:
			node.RawHTML = true
		}
		banner.Nodes = append(banner.Nodes, node)
	}

	return banner
}
