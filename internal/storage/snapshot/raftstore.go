package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"

	"github.com/yndnr/snapkeep-go/internal/telemetry/logger"
)

const (
	raftStateFileName = "state.bin"
	raftMetaFileName  = "raft-meta.json"
)

// RaftSnapshotStore adapts a partition's snapshot engine to
// hashicorp/raft's SnapshotStore interface. Index and term come straight
// from raft; processedPosition and exportedPosition (not part of raft's
// model) are always zero for raft-driven snapshots.
type RaftSnapshotStore struct {
	constructable ConstructableSnapshotStore
	receivable    ReceivableSnapshotStore
	logger        logger.Logger
}

// NewRaftSnapshotStore wraps the capability views a single partition
// exposes for taking and receiving snapshots.
func NewRaftSnapshotStore(c ConstructableSnapshotStore, r ReceivableSnapshotStore, log logger.Logger) *RaftSnapshotStore {
	if log == nil {
		log = logger.Default()
	}
	return &RaftSnapshotStore{constructable: c, receivable: r, logger: log}
}

// raftSnapshotMeta is raft.SnapshotMeta without its ID (the snapshot id),
// Peers, and Size (the state file's size on disk); Index and Term are kept
// here even though the snapshot id also carries them. It is written
// alongside state.bin so List/Open can reconstruct the full
// raft.SnapshotMeta without raft itself persisting anything extra.
type raftSnapshotMeta struct {
	Version            raft.SnapshotVersion
	Index              uint64
	Term               uint64
	Configuration      raft.Configuration
	ConfigurationIndex uint64
}

// Create starts a new raft-driven snapshot through the engine's
// TransientSnapshot path, refusing (per the engine's monotonicity
// invariant) if index/term is not newer than the currently committed
// snapshot.
func (s *RaftSnapshotStore) Create(version raft.SnapshotVersion, index, term uint64, configuration raft.Configuration, configurationIndex uint64, trans raft.Transport) (raft.SnapshotSink, error) {
	ts, err := s.constructable.NewTransientSnapshot(index, term, 0, 0)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, fmt.Errorf("snapshot: refusing raft snapshot at index %d term %d, not newer than the committed snapshot", index, term)
	}

	meta := raftSnapshotMeta{
		Version:            version,
		Index:              index,
		Term:               term,
		Configuration:      configuration,
		ConfigurationIndex: configurationIndex,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}

	sink := &raftSnapshotSink{transient: ts, id: NewId(index, term, 0, 0).String()}

	_, err = ts.Take(func(path string) bool {
		if err := os.WriteFile(filepath.Join(path, raftMetaFileName), metaBytes, 0o644); err != nil {
			return false
		}
		f, err := os.Create(filepath.Join(path, raftStateFileName))
		if err != nil {
			return false
		}
		sink.file = f
		return true
	}).Get()
	if err != nil {
		return nil, err
	}

	return sink, nil
}

// List returns the single currently committed snapshot, if any. The engine
// keeps at most one committed snapshot per partition, so this never
// returns more than one entry; raft treats a shorter-than-retain list as
// normal.
func (s *RaftSnapshotStore) List() ([]*raft.SnapshotMeta, error) {
	current := s.constructable.CurrentSnapshot()
	if current == nil {
		return nil, nil
	}

	m, err := readRaftMeta(current)
	if err != nil {
		s.logger.Warn("committed snapshot has no raft metadata, hiding it from raft",
			"snapshot_id", current.Id().String(), "error", err)
		return nil, nil
	}
	return []*raft.SnapshotMeta{m}, nil
}

// Open returns the state file content for id, which must be the currently
// committed snapshot's id: the engine does not retain superseded
// snapshots, so older ids are never openable.
func (s *RaftSnapshotStore) Open(id string) (*raft.SnapshotMeta, io.ReadCloser, error) {
	current := s.constructable.CurrentSnapshot()
	if current == nil || current.Id().String() != id {
		return nil, nil, fmt.Errorf("snapshot: %s is not the currently committed snapshot", id)
	}

	m, err := readRaftMeta(current)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(current.Path(), raftStateFileName))
	if err != nil {
		return nil, nil, err
	}
	return m, f, nil
}

func readRaftMeta(p *PersistedSnapshot) (*raft.SnapshotMeta, error) {
	raw, err := os.ReadFile(filepath.Join(p.Path(), raftMetaFileName))
	if err != nil {
		return nil, err
	}
	var decoded raftSnapshotMeta
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}

	info, err := os.Stat(filepath.Join(p.Path(), raftStateFileName))
	if err != nil {
		return nil, err
	}

	return &raft.SnapshotMeta{
		Version:            decoded.Version,
		ID:                 p.Id().String(),
		Index:              decoded.Index,
		Term:               decoded.Term,
		Configuration:      decoded.Configuration,
		ConfigurationIndex: decoded.ConfigurationIndex,
		Size:               info.Size(),
	}, nil
}

// raftSnapshotSink implements raft.SnapshotSink over a TransientSnapshot:
// raft writes the FSM's byte stream via Write, then calls Close (commit)
// or Cancel (discard).
type raftSnapshotSink struct {
	transient *TransientSnapshot
	id        string
	file      *os.File
}

func (s *raftSnapshotSink) Write(p []byte) (int, error) { return s.file.Write(p) }

func (s *raftSnapshotSink) ID() string { return s.id }

func (s *raftSnapshotSink) Close() error {
	if err := s.file.Close(); err != nil {
		return err
	}
	_, err := s.transient.Persist().Get()
	return err
}

func (s *raftSnapshotSink) Cancel() error {
	s.file.Close()
	_, err := s.transient.Abort().Get()
	return err
}

// raftHCLogger adapts the engine's Logger to hashicorp/go-hclog.Logger so
// raft's internal log lines flow through the same structured logger as
// the rest of the engine instead of hclog's own default writer.
type raftHCLogger struct {
	logger logger.Logger
}

// NewRaftLogger returns an hclog.Logger backed by log, for use as
// raft.Config.Logger.
func NewRaftLogger(log logger.Logger) hclog.Logger {
	if log == nil {
		log = logger.Default()
	}
	return &raftHCLogger{logger: log}
}

func (l *raftHCLogger) Log(level hclog.Level, msg string, args ...any) {
	switch level {
	case hclog.Trace, hclog.Debug:
		l.logger.Debug(msg, args...)
	case hclog.Warn:
		l.logger.Warn(msg, args...)
	case hclog.Error:
		l.logger.Error(msg, args...)
	default:
		l.logger.Info(msg, args...)
	}
}

func (l *raftHCLogger) Trace(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *raftHCLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *raftHCLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *raftHCLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *raftHCLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *raftHCLogger) IsTrace() bool { return false }
func (l *raftHCLogger) IsDebug() bool { return false }
func (l *raftHCLogger) IsInfo() bool  { return true }
func (l *raftHCLogger) IsWarn() bool  { return true }
func (l *raftHCLogger) IsError() bool { return true }

func (l *raftHCLogger) ImpliedArgs() []any { return nil }
func (l *raftHCLogger) With(args ...any) hclog.Logger {
	return &raftHCLogger{logger: l.logger.With(args...)}
}
func (l *raftHCLogger) Name() string                         { return "raft" }
func (l *raftHCLogger) Named(name string) hclog.Logger       { return l }
func (l *raftHCLogger) ResetNamed(name string) hclog.Logger  { return l }
func (l *raftHCLogger) SetLevel(level hclog.Level)           {}
func (l *raftHCLogger) GetLevel() hclog.Level                { return hclog.Info }
func (l *raftHCLogger) StandardLogger(opts *hclog.StandardLoggerOptions) *stdlog.Logger {
	return nil
}
func (l *raftHCLogger) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return nil
}
