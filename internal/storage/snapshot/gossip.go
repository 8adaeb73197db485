package snapshot

import (
	"encoding/json"

	"github.com/hashicorp/memberlist"

	"github.com/yndnr/snapkeep-go/internal/telemetry/logger"
)

// SnapshotAnnouncement is broadcast over gossip whenever a node commits a
// new snapshot for a partition, so peers (in particular a node about to
// become leader for that partition) can find a recent snapshot holder
// without asking every member individually.
type SnapshotAnnouncement struct {
	PartitionId string
	SnapshotId  string
	NodeId      string
}

// GossipAnnouncer is a PersistedSnapshotListener that broadcasts a
// SnapshotAnnouncement over memberlist whenever a snapshot commits. It
// also exposes a memberlist.Delegate via Delegate so a caller's
// memberlist.Config can be wired to both send and receive these
// announcements.
type GossipAnnouncer struct {
	nodeId      string
	partitionId string
	queue       *memberlist.TransmitLimitedQueue
	logger      logger.Logger

	onAnnouncement func(SnapshotAnnouncement)
}

// NewGossipAnnouncer creates an announcer for partitionId. numNodes is
// called lazily each time the broadcast queue decides how many times to
// retransmit a message, so it should report the current member count
// (e.g. memberlist.Memberlist.NumMembers).
func NewGossipAnnouncer(nodeId, partitionId string, numNodes func() int, log logger.Logger) *GossipAnnouncer {
	if log == nil {
		log = logger.Default()
	}
	if numNodes == nil {
		numNodes = func() int { return 1 }
	}

	return &GossipAnnouncer{
		nodeId:      nodeId,
		partitionId: partitionId,
		logger:      log,
		queue: &memberlist.TransmitLimitedQueue{
			NumNodes:       numNodes,
			RetransmitMult: 3,
		},
	}
}

// OnNewSnapshot implements PersistedSnapshotListener: it enqueues a
// broadcast announcing the newly committed snapshot. The broadcast itself
// is drained by the Delegate's GetBroadcasts, called by memberlist's
// gossip loop, so this never blocks on network I/O.
func (a *GossipAnnouncer) OnNewSnapshot(p *PersistedSnapshot) {
	announcement := SnapshotAnnouncement{
		PartitionId: a.partitionId,
		SnapshotId:  p.Id().String(),
		NodeId:      a.nodeId,
	}

	encoded, err := json.Marshal(announcement)
	if err != nil {
		a.logger.Error("failed to encode snapshot announcement", "error", err)
		return
	}

	a.queue.QueueBroadcast(&snapshotBroadcast{msg: encoded})
	a.logger.Info("queued snapshot announcement",
		"partition_id", a.partitionId, "snapshot_id", p.Id().String())
}

// OnAnnouncement registers the callback invoked for announcements received
// from other nodes (including, unavoidably, echoes of this node's own
// broadcasts; callers should ignore announcements whose NodeId matches
// their own).
func (a *GossipAnnouncer) OnAnnouncement(fn func(SnapshotAnnouncement)) {
	a.onAnnouncement = fn
}

// Delegate returns a memberlist.Delegate that sends this announcer's
// queued broadcasts and dispatches received ones to the OnAnnouncement
// callback.
func (a *GossipAnnouncer) Delegate() memberlist.Delegate {
	return &gossipDelegate{announcer: a}
}

type snapshotBroadcast struct{ msg []byte }

func (b *snapshotBroadcast) Invalidates(other memberlist.Broadcast) bool { return false }
func (b *snapshotBroadcast) Message() []byte                            { return b.msg }
func (b *snapshotBroadcast) Finished()                                  {}

// gossipDelegate implements memberlist.Delegate. Node metadata and state
// sync are unused by this announcer: only user messages carry snapshot
// announcements.
type gossipDelegate struct {
	announcer *GossipAnnouncer
}

func (d *gossipDelegate) NodeMeta(limit int) []byte { return nil }

func (d *gossipDelegate) NotifyMsg(buf []byte) {
	var announcement SnapshotAnnouncement
	if err := json.Unmarshal(buf, &announcement); err != nil {
		d.announcer.logger.Warn("failed to decode snapshot announcement", "error", err)
		return
	}
	if d.announcer.onAnnouncement != nil {
		d.announcer.onAnnouncement(announcement)
	}
}

func (d *gossipDelegate) GetBroadcasts(overhead, limit int) [][]byte {
	return d.announcer.queue.GetBroadcasts(overhead, limit)
}

func (d *gossipDelegate) LocalState(join bool) []byte        { return nil }
func (d *gossipDelegate) MergeRemoteState(buf []byte, join bool) {}
