package config

import "time"

// P2P holds the connection-management settings network.Server reads
// (spec §4.7 "Connection management").
type P2P struct {
	// ListenTCP is the "host:port" this node's TCP server binds to
	// ("p2p_port").
	ListenTCP string `yaml:"ListenTCP"`
	// MinPeers is the minimum outbound connection count maintainConnectionsLoop
	// dials up to ("min_peers").
	MinPeers int `yaml:"MinPeers"`
	// MaxPeers caps the number of simultaneous connections ("max_peers").
	MaxPeers int `yaml:"MaxPeers"`
	// DialTimeout bounds a single outbound connection attempt.
	DialTimeout time.Duration `yaml:"DialTimeout"`
	// ReadTimeout/WriteTimeout bound a single message's read or write.
	ReadTimeout  time.Duration `yaml:"ReadTimeout"`
	WriteTimeout time.Duration `yaml:"WriteTimeout"`
	// PingInterval is how often a connected peer not otherwise talkative
	// gets pinged to prove liveness.
	PingInterval time.Duration `yaml:"PingInterval"`
	// PingTimeout is how long a sent Ping may go unanswered before the
	// peer is disconnected.
	PingTimeout time.Duration `yaml:"PingTimeout"`
}

// Storage holds the persisted-state settings (spec §6 "Persisted state
// layout").
type Storage struct {
	// Engine selects the key-value backend: "leveldb", "boltdb", or
	// "inmemory" ("storage_engine").
	Engine string `yaml:"Engine"`
	// DataDirectory is where the engine keeps its files ("data_directory").
	DataDirectory string `yaml:"DataDirectory"`
}

const (
	// LevelDB selects storage.NewLevelDBStore.
	LevelDB = "leveldb"
	// BoltDB selects storage.NewBoltDBStore.
	BoltDB = "boltdb"
	// InMemory selects storage.NewMemoryStore, data does not survive a restart.
	InMemory = "inmemory"
)
