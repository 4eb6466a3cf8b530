package disk

import (
	"io"
	"os"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/ncw/directio"

	"github.com/lamdo812/bufferdb/internal/logger"
	util "github.com/lamdo812/bufferdb/internal/utils"
)

// FileDiskManager is the file-backed DiskManager implementation.
type FileDiskManager struct {
	db          *os.File
	fileName    string
	nextPageID  util.PageID
	deallocated mapset.Set[util.PageID]
	numWrites   uint64
	size        int64
	syncWrites  bool
	mu          sync.Mutex
}

// NewFileDiskManager opens (or creates) the database file. The next page
// id picks up after the pages already present in the file.
func NewFileDiskManager(path string, syncWrites bool) (*FileDiskManager, error) {
	file, err := directio.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, errors.Annotatef(err, "open db file %q", path)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Annotatef(err, "stat db file %q", path)
	}

	fileSize := fileInfo.Size()
	nextPageID := util.PageID(fileSize / util.PageSize)

	return &FileDiskManager{
		db:          file,
		fileName:    path,
		nextPageID:  nextPageID,
		deallocated: mapset.NewSet[util.PageID](),
		size:        fileSize,
		syncWrites:  syncWrites,
	}, nil
}

// AllocatePage hands out a deallocated id when one is available, and
// advances the watermark otherwise.
func (d *FileDiskManager) AllocatePage() util.PageID {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.deallocated.Pop(); ok {
		return id
	}
	ret := d.nextPageID
	d.nextPageID++
	return ret
}

func (d *FileDiskManager) DeallocatePage(pageID util.PageID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pageID < 0 || pageID >= d.nextPageID {
		return
	}
	d.deallocated.Add(pageID)
}

func (d *FileDiskManager) WritePage(pageID util.PageID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return errors.Trace(util.ErrClosed)
	}
	if pageID < 0 {
		return errors.Trace(util.ErrInvalidPageId)
	}

	offset := int64(pageID) * int64(util.PageSize)
	if _, err := d.db.Seek(offset, io.SeekStart); err != nil {
		return errors.Annotatef(err, "seek page %d", pageID)
	}

	// directio.BlockSize matches the page size, so one aligned block
	// carries exactly one page.
	block := directio.AlignedBlock(directio.BlockSize)
	copy(block, data)

	written, err := d.db.Write(block)
	if err != nil {
		return errors.Annotatef(err, "write page %d", pageID)
	}
	if written != util.PageSize {
		return errors.Trace(util.ErrShortWrite)
	}

	if offset+int64(written) > d.size {
		d.size = offset + int64(written)
	}
	d.numWrites++

	if d.syncWrites {
		if err := d.db.Sync(); err != nil {
			return errors.Annotatef(err, "sync after page %d", pageID)
		}
	}
	return nil
}

func (d *FileDiskManager) ReadPage(pageID util.PageID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return errors.Trace(util.ErrClosed)
	}
	if pageID < 0 {
		return errors.Trace(util.ErrInvalidPageId)
	}

	offset := int64(pageID) * int64(util.PageSize)
	if offset >= d.size {
		return errors.Trace(util.ErrPageOutOfBounds)
	}

	if _, err := d.db.Seek(offset, io.SeekStart); err != nil {
		return errors.Annotatef(err, "seek page %d", pageID)
	}

	// directio requires the destination buffer itself to be aligned, so
	// read into an aligned block and copy out, mirroring WritePage.
	block := directio.AlignedBlock(directio.BlockSize)
	bytesRead, err := d.db.Read(block)
	if err != nil {
		return errors.Annotatef(err, "read page %d", pageID)
	}
	copy(data, block)
	if bytesRead < util.PageSize {
		// A page at the tail of the file may not have been written in
		// full yet; the remainder reads as zeroes.
		for i := bytesRead; i < util.PageSize; i++ {
			data[i] = 0
		}
	}
	return nil
}

func (d *FileDiskManager) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

func (d *FileDiskManager) NumWrites() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.numWrites
}

// ShutDown closes the database file. Idempotent.
func (d *FileDiskManager) ShutDown() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return
	}
	if err := d.db.Close(); err != nil {
		logger.Log.WithField("file", d.fileName).Warnf("close db file: %v", err)
	}
	d.db = nil
}

// RemoveDBFile deletes the backing file. Only valid after ShutDown.
func (d *FileDiskManager) RemoveDBFile() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.fileName); err != nil {
		return errors.Annotatef(err, "remove db file %q", d.fileName)
	}
	return nil
}
