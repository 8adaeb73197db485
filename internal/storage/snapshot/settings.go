package snapshot

// Settings is the confloader-loaded tunable configuration for a Factory:
// which data roots to shard partitions across, the node id stamped into
// each store's metrics labels, and the chunk reception rate limit.
//
// ReceptionBytesPerSecond is safe to change at runtime, via
// Factory.SetReceptionRateLimit, without reopening any store. DataRoots
// and NodeId are read once, by NewFactory; changing them afterwards has no
// effect on a running Factory or on the stores it opens.
type Settings struct {
	DataRoots               []string `koanf:"data_roots"`
	NodeId                  string   `koanf:"node_id"`
	ReceptionBytesPerSecond int64    `koanf:"reception_bytes_per_second"`
}

// DefaultSettings returns baseline Settings for a single-root deployment,
// suitable as the target of a confloader.Loader.Load call before file and
// environment overrides are applied on top.
func DefaultSettings(root, nodeId string) Settings {
	return Settings{
		DataRoots:               []string{root},
		NodeId:                  nodeId,
		ReceptionBytesPerSecond: defaultReceptionBytesPerSecond,
	}
}
