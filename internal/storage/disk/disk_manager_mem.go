package disk

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dsnet/golib/memfile"
	"github.com/juju/errors"

	util "github.com/lamdo812/bufferdb/internal/utils"
)

// MemDiskManager keeps the database file in memory. It backs tests and
// tooling that should not touch the filesystem.
type MemDiskManager struct {
	db          *memfile.File
	nextPageID  util.PageID
	deallocated mapset.Set[util.PageID]
	numWrites   uint64
	size        int64
	mu          sync.Mutex
}

func NewMemDiskManager() *MemDiskManager {
	return &MemDiskManager{
		db:          memfile.New(make([]byte, 0)),
		deallocated: mapset.NewSet[util.PageID](),
	}
}

func (d *MemDiskManager) AllocatePage() util.PageID {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.deallocated.Pop(); ok {
		return id
	}
	ret := d.nextPageID
	d.nextPageID++
	return ret
}

func (d *MemDiskManager) DeallocatePage(pageID util.PageID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pageID < 0 || pageID >= d.nextPageID {
		return
	}
	d.deallocated.Add(pageID)
}

func (d *MemDiskManager) WritePage(pageID util.PageID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pageID < 0 {
		return errors.Trace(util.ErrInvalidPageId)
	}

	offset := int64(pageID) * int64(util.PageSize)
	if _, err := d.db.WriteAt(data, offset); err != nil {
		return errors.Annotatef(err, "write page %d", pageID)
	}

	if offset+int64(len(data)) > d.size {
		d.size = offset + int64(len(data))
	}
	d.numWrites++
	return nil
}

func (d *MemDiskManager) ReadPage(pageID util.PageID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pageID < 0 {
		return errors.Trace(util.ErrInvalidPageId)
	}

	offset := int64(pageID) * int64(util.PageSize)
	if offset >= d.size || offset+int64(len(data)) > d.size {
		return errors.Trace(util.ErrPageOutOfBounds)
	}

	if _, err := d.db.ReadAt(data, offset); err != nil {
		return errors.Annotatef(err, "read page %d", pageID)
	}
	return nil
}

func (d *MemDiskManager) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

func (d *MemDiskManager) NumWrites() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.numWrites
}

func (d *MemDiskManager) ShutDown() {}
