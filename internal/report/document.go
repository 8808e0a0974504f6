// Package report renders joined order lines into documents.
package report

// BlockKind distinguishes document blocks.
type BlockKind int

const (
	BlockHeading BlockKind = iota + 1
	BlockParagraph
)

// Block is a single heading or paragraph.
type Block struct {
	Kind  BlockKind
	Text  string
	Level int
}

// Writer serializes a document. Calls arrive in document order, followed by
// exactly one Save.
type Writer interface {
	AddHeading(text string, level int)
	AddParagraph(text string)
	Save(path string) error
}

// Document is an ordered list of blocks, independent of any output format.
type Document struct {
	blocks []Block
}

// Heading appends a heading block.
func (d *Document) Heading(text string, level int) {
	if level < 1 {
		level = 1
	}
	d.blocks = append(d.blocks, Block{Kind: BlockHeading, Text: text, Level: level})
}

// Paragraph appends a paragraph block.
func (d *Document) Paragraph(text string) {
	d.blocks = append(d.blocks, Block{Kind: BlockParagraph, Text: text})
}

// Blocks returns a copy of the document blocks.
func (d *Document) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// Len returns the number of blocks.
func (d *Document) Len() int {
	return len(d.blocks)
}

// Render replays the document into w without saving it.
func (d *Document) Render(w Writer) {
	for _, b := range d.blocks {
		switch b.Kind {
		case BlockHeading:
			w.AddHeading(b.Text, b.Level)
		case BlockParagraph:
			w.AddParagraph(b.Text)
		}
	}
}

// Save renders the document into w and saves it at path.
func (d *Document) Save(w Writer, path string) error {
	d.Render(w)
	return w.Save(path)
}
