package buffer

import (
	"sync"

	"github.com/juju/errors"

	"github.com/lamdo812/bufferdb/internal/logger"
	"github.com/lamdo812/bufferdb/internal/storage/disk"
	"github.com/lamdo812/bufferdb/internal/storage/hash"
	"github.com/lamdo812/bufferdb/internal/storage/page"
	util "github.com/lamdo812/bufferdb/internal/utils"
	"github.com/lamdo812/bufferdb/internal/wal"
)

const pageTableBucketSize = 32

// BufferPoolManager serves pinned in-memory images of disk pages from a
// fixed set of frames. A page id resides in at most one frame; dirty
// frames are written back before their frame is reused.
//
// One latch guards the page table, the free list, the replacer and all
// per-frame metadata. It is held for the whole public call, disk I/O
// included.
type BufferPoolManager struct {
	latch     sync.Mutex
	poolSize  int
	frames    []page.Page
	pageTable *hash.ExtendibleHash[util.PageID, util.FrameID]
	freeList  []util.FrameID
	replacer  Replacer[util.FrameID]
	disk      disk.DiskManager
	wal       *wal.LogManager
}

// NewBufferPoolManager builds a pool of size frames, all on the free
// list. logManager may be nil (tests run without a WAL).
func NewBufferPoolManager(size int, diskManager disk.DiskManager, logManager *wal.LogManager) *BufferPoolManager {
	if size <= 0 {
		panic(util.ErrInvalidPoolSize)
	}

	m := &BufferPoolManager{
		poolSize:  size,
		frames:    make([]page.Page, size),
		pageTable: hash.New[util.PageID, util.FrameID](pageTableBucketSize),
		freeList:  make([]util.FrameID, 0, size),
		replacer:  NewLRUReplacer[util.FrameID](),
		disk:      diskManager,
		wal:       logManager,
	}
	for i := 0; i < size; i++ {
		m.frames[i].Reset()
		m.freeList = append(m.freeList, util.FrameID(i))
	}
	return m
}

// FetchPage returns a pinned frame holding pageID, reading it from disk
// on a miss. Returns nil when every frame is pinned.
func (m *BufferPoolManager) FetchPage(pageID util.PageID) *page.Page {
	m.latch.Lock()
	defer m.latch.Unlock()

	if pageID == util.InvalidPageID {
		return nil
	}

	if frameID, ok := m.pageTable.Find(pageID); ok {
		fr := &m.frames[frameID]
		if fr.PinCount() == 0 {
			m.replacer.Erase(frameID)
		}
		fr.IncPinCount()
		return fr
	}

	frameID, ok := m.pickVictim()
	if !ok {
		return nil
	}

	fr := &m.frames[frameID]
	fr.IncPinCount()
	m.evictOldPage(frameID, fr)

	m.pageTable.Insert(pageID, frameID)

	fr.ResetMemory()
	if err := m.disk.ReadPage(pageID, fr.Data()); err != nil {
		// A page allocated but never written back reads as zeroes.
		logger.Log.WithField("page", pageID).Debugf("read page: %v", err)
	}
	fr.SetDirty(false)
	fr.SetID(pageID)

	return fr
}

// NewPage allocates a fresh page on disk and returns its pinned frame.
// Returns nil when every frame is pinned. The new frame is zeroed.
func (m *BufferPoolManager) NewPage() *page.Page {
	m.latch.Lock()
	defer m.latch.Unlock()

	frameID, ok := m.pickVictim()
	if !ok {
		return nil
	}

	fr := &m.frames[frameID]
	fr.IncPinCount()
	m.evictOldPage(frameID, fr)

	pageID := m.disk.AllocatePage()
	fr.ResetMemory()
	fr.SetID(pageID)
	fr.SetDirty(false)

	m.pageTable.Insert(pageID, frameID)

	return fr
}

// UnpinPage drops one reference to pageID. The frame becomes evictable
// when its pin count reaches zero. A dirty unpin never clears the dirty
// flag. Returns false when the page is not resident or not pinned.
func (m *BufferPoolManager) UnpinPage(pageID util.PageID, isDirty bool) bool {
	m.latch.Lock()
	defer m.latch.Unlock()

	frameID, ok := m.pageTable.Find(pageID)
	if !ok {
		return false
	}

	fr := &m.frames[frameID]
	if fr.PinCount() <= 0 {
		return false
	}

	fr.DecPinCount()
	if fr.PinCount() == 0 {
		m.replacer.Insert(frameID)
	}
	if isDirty {
		fr.SetDirty(true)
	}
	return true
}

// FlushPage writes a resident page to disk. The dirty flag is left
// untouched: flushing is a snapshot, not a state transition.
func (m *BufferPoolManager) FlushPage(pageID util.PageID) bool {
	m.latch.Lock()
	defer m.latch.Unlock()

	if pageID == util.InvalidPageID {
		return false
	}
	frameID, ok := m.pageTable.Find(pageID)
	if !ok {
		return false
	}

	fr := &m.frames[frameID]
	if err := m.disk.WritePage(pageID, fr.Data()); err != nil {
		panic(errors.Annotatef(err, "flush page %d", pageID))
	}
	return true
}

// FlushAllPages writes every resident page to disk.
func (m *BufferPoolManager) FlushAllPages() {
	m.latch.Lock()
	defer m.latch.Unlock()

	for i := range m.frames {
		fr := &m.frames[i]
		if fr.ID() == util.InvalidPageID {
			continue
		}
		if err := m.disk.WritePage(fr.ID(), fr.Data()); err != nil {
			panic(errors.Annotatef(err, "flush page %d", fr.ID()))
		}
	}
}

// DeletePage drops a resident, unpinned page and deallocates it on
// disk. Returns false when the page is absent or still pinned.
func (m *BufferPoolManager) DeletePage(pageID util.PageID) bool {
	m.latch.Lock()
	defer m.latch.Unlock()

	frameID, ok := m.pageTable.Find(pageID)
	if !ok {
		return false
	}

	fr := &m.frames[frameID]
	if fr.PinCount() != 0 {
		return false
	}

	m.pageTable.Remove(pageID)
	m.replacer.Erase(frameID)
	fr.Reset()
	m.freeList = append(m.freeList, frameID)
	m.disk.DeallocatePage(pageID)
	return true
}

// PoolSize returns the number of frames.
func (m *BufferPoolManager) PoolSize() int {
	return m.poolSize
}

// pickVictim takes a frame from the free list first, then from the
// replacer. Caller holds the latch.
func (m *BufferPoolManager) pickVictim() (util.FrameID, bool) {
	if len(m.freeList) > 0 {
		frameID := m.freeList[0]
		m.freeList = m.freeList[1:]
		return frameID, true
	}
	return m.replacer.Victim()
}

// evictOldPage writes the victim's old page back when dirty and drops
// its page-table entry. Caller holds the latch and has already pinned
// the frame.
func (m *BufferPoolManager) evictOldPage(frameID util.FrameID, fr *page.Page) {
	oldID := fr.ID()
	if oldID == util.InvalidPageID {
		return
	}

	if fr.IsDirty() {
		if m.wal != nil {
			if err := m.wal.Flush(); err != nil {
				panic(errors.Annotatef(err, "flush wal before evicting page %d", oldID))
			}
		}
		logger.Log.WithFields(map[string]interface{}{
			"page":  oldID,
			"frame": frameID,
		}).Debug("writing back dirty page before eviction")
		if err := m.disk.WritePage(oldID, fr.Data()); err != nil {
			panic(errors.Annotatef(err, "write back page %d", oldID))
		}
	}

	m.pageTable.Remove(oldID)
}
