package config

import (
	"github.com/juju/errors"
	"gopkg.in/ini.v1"

	util "github.com/lamdo812/bufferdb/internal/utils"
)

// Load reads an ini profile and overlays it onto the default options.
//
// Recognized keys live in the [storage] section:
//
//	data_file      = bufferdb.dat
//	wal_file       = bufferdb.wal
//	pool_size      = 1000
//	bucket_size    = 64
//	sync_writes    = false
//	log_level      = info
//	flush_interval = 30s
func Load(path string) (util.Options, error) {
	opts := util.DefaultOptions()

	cfg, err := ini.Load(path)
	if err != nil {
		return opts, errors.Annotatef(err, "load config %q", path)
	}

	sec := cfg.Section("storage")
	opts.Path = sec.Key("data_file").MustString(opts.Path)
	opts.WALPath = sec.Key("wal_file").MustString(opts.WALPath)
	opts.PoolSize = sec.Key("pool_size").MustInt(opts.PoolSize)
	opts.BucketSize = sec.Key("bucket_size").MustInt(opts.BucketSize)
	opts.SyncWrites = sec.Key("sync_writes").MustBool(opts.SyncWrites)
	opts.LogLevel = sec.Key("log_level").MustString(opts.LogLevel)
	opts.FlushInterval = sec.Key("flush_interval").MustDuration(opts.FlushInterval)

	if opts.PoolSize <= 0 {
		return opts, errors.Trace(util.ErrInvalidPoolSize)
	}
	if opts.BucketSize <= 0 {
		return opts, errors.Trace(util.ErrInvalidBucketSize)
	}

	return opts, nil
}

// MustLoad is Load with a fallback to defaults when the profile cannot be
// loaded or holds invalid sizes.
func MustLoad(path string) util.Options {
	opts, err := Load(path)
	if err != nil {
		return util.DefaultOptions()
	}
	return opts
}
