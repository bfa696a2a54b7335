// Package session provides session persistence for matchmedia servers.
//
// A live session keeps a client's media mirror (viewport, color scheme,
// pointer capabilities) and the set of media queries its components
// subscribed to. When the WebSocket drops, that state is serialized here
// so a reconnecting client can resume with its registry intact instead
// of starting from defaults.
//
// # Storage backends
//
// The SessionStore interface defines the persistence contract:
//
//	store := session.NewMemoryStore()            // default, single server
//	store := session.NewRedisStore(redisClient)  // shared across servers
//	store := session.NewSQLStore(db)             // any database/sql driver
//
// # Serialization
//
// SerializableSession is the wire format for a detached session. It
// carries the media state and query expressions needed to rebuild a
// Window on resume:
//
//	data, _ := session.Serialize(ss)
//	// after reconnect
//	ss, _ := session.Deserialize(data)
//
// # Detached session management
//
// The Manager tracks detached sessions with an LRU queue, enforces
// per-IP session counts, and evicts under pressure:
//
//	cfg := session.DefaultManagerConfig()
//	mgr := session.NewManager(store, cfg, logger)
package session
