package page

import (
	util "github.com/lamdo812/bufferdb/internal/utils"
)

// Page is one in-memory frame slot: the image of at most one disk page
// plus the bookkeeping the buffer pool needs. The metadata lives beside
// the data buffer and is never serialized with it.
type Page struct {
	id       util.PageID
	pinCount int32
	isDirty  bool
	data     [util.PageSize]byte
}

func (p *Page) ID() util.PageID {
	return p.id
}

func (p *Page) SetID(id util.PageID) {
	p.id = id
}

// Data exposes the page image. The slice aliases the frame buffer, so
// writes through it must be followed by a dirty unpin.
func (p *Page) Data() []byte {
	return p.data[:]
}

func (p *Page) PinCount() int32 {
	return p.pinCount
}

func (p *Page) IncPinCount() {
	p.pinCount++
}

func (p *Page) DecPinCount() {
	if p.pinCount > 0 {
		p.pinCount--
	}
}

func (p *Page) IsDirty() bool {
	return p.isDirty
}

func (p *Page) SetDirty(dirty bool) {
	p.isDirty = dirty
}

// ResetMemory zeroes the page image.
func (p *Page) ResetMemory() {
	p.data = [util.PageSize]byte{}
}

// Reset returns the frame to its unoccupied state.
func (p *Page) Reset() {
	p.id = util.InvalidPageID
	p.pinCount = 0
	p.isDirty = false
}
