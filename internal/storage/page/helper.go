package page

import (
	util "github.com/lamdo812/bufferdb/internal/utils"
)

func CreateTestPage(pageID util.PageID, data []byte) *Page {
	p := &Page{id: pageID}
	if len(data) > len(p.data) {
		data = data[:len(p.data)] // Truncate to fit
	}
	copy(p.data[:], data)
	return p
}
