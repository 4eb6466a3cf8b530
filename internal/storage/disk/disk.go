package disk

import (
	util "github.com/lamdo812/bufferdb/internal/utils"
)

// DiskManager takes care of allocation and the page-granular reads and
// writes against the database file. Page contents are opaque here.
type DiskManager interface {
	// AllocatePage yields a fresh page id. No I/O happens until the
	// page is first written.
	AllocatePage() util.PageID
	// DeallocatePage marks a page id reusable by a later AllocatePage.
	DeallocatePage(pageID util.PageID)
	// ReadPage fills data with the current on-disk contents of pageID.
	ReadPage(pageID util.PageID, data []byte) error
	// WritePage persists data as the contents of pageID.
	WritePage(pageID util.PageID, data []byte) error
	// Size returns the size of the backing file in bytes.
	Size() int64
	// NumWrites returns the number of page writes since startup.
	NumWrites() uint64
	// ShutDown closes the backing file.
	ShutDown()
}
