// Package demo provides an embedded Badger-backed state machine used to
// exercise the snapshot engine end to end: its on-disk state is exactly what
// snapshot.TransientSnapshot.Take backs up and snapshot.ReceivedSnapshot.Apply
// restores. It is not part of the snapshot engine itself — a real state
// machine (the task queue, the workflow instance cache, whatever a given
// partition actually runs) plugs into the same Backup/Restore seam.
package demo

// Config configures a Store.
type Config struct {
	// Dir is the directory Badger keeps its LSM tree and value log in.
	Dir string

	Badger BadgerConfig
}

// BadgerConfig tunes the underlying Badger database.
type BadgerConfig struct {
	// GCInterval is parsed as a time.Duration (e.g. "10m").
	GCInterval string

	// GCThreshold is the value-log rewrite threshold passed to
	// RunValueLogGC; a file is rewritten if GC would discard at least
	// this fraction of it.
	GCThreshold float64

	CacheSize               int64
	ValueLogFileSize        int64
	NumMemtables            int
	NumLevelZeroTables      int
	NumLevelZeroTablesStall int
	SyncWrites              bool
	DetectConflicts         bool
}

// DefaultConfig returns a Config rooted at dir with default Badger tuning.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns conservative defaults suitable for a
// single-node demo state machine.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:              "10m",
		GCThreshold:             0.5,
		CacheSize:               64 << 20,  // 64MB
		ValueLogFileSize:        1 << 30,   // 1GB
		NumMemtables:            2,
		NumLevelZeroTables:      5,
		NumLevelZeroTablesStall: 10,
		SyncWrites:              false,
		DetectConflicts:         false,
	}
}

// Stats reports point-in-time storage statistics.
type Stats struct {
	TotalSize        uint64
	LSMSize          uint64
	ValueLogSize     uint64
	LastGCTime       int64 // Unix milliseconds, 0 if GC never ran
	GCBytesReclaimed uint64
}
