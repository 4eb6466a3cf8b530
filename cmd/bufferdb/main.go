package main

import (
	"flag"
	"fmt"

	"github.com/lamdo812/bufferdb/internal/config"
	"github.com/lamdo812/bufferdb/internal/logger"
	"github.com/lamdo812/bufferdb/internal/storage/buffer"
	"github.com/lamdo812/bufferdb/internal/storage/disk"
	"github.com/lamdo812/bufferdb/internal/wal"
)

func main() {
	confPath := flag.String("config", "bufferdb.ini", "path to the ini profile")
	flag.Parse()

	opts := config.MustLoad(*confPath)
	logger.SetLevel(opts.LogLevel)

	dm, err := disk.NewFileDiskManager(opts.Path, opts.SyncWrites)
	if err != nil {
		logger.Log.Fatalf("open disk manager: %v", err)
	}
	defer dm.ShutDown()

	lm, err := wal.NewLogManager(opts.WALPath)
	if err != nil {
		logger.Log.Fatalf("open wal: %v", err)
	}
	defer lm.Close()

	pool := buffer.NewBufferPoolManager(opts.PoolSize, dm, lm)

	// Smoke round trip: allocate a page, write into it, flush, re-fetch.
	p := pool.NewPage()
	if p == nil {
		logger.Log.Fatal("no free frame for a new page")
	}
	id := p.ID()
	copy(p.Data(), []byte("hello, bufferdb"))
	pool.UnpinPage(id, true)
	pool.FlushPage(id)

	p = pool.FetchPage(id)
	if p == nil {
		logger.Log.Fatalf("fetch page %d back", id)
	}
	fmt.Printf("page %d: %q\n", id, string(p.Data()[:15]))
	pool.UnpinPage(id, false)

	pool.FlushAllPages()
	logger.Log.WithField("file", opts.Path).Info("shut down cleanly")
}
