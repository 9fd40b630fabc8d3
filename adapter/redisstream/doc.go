// Package redisstream provides a Redis Streams sink for xbridge.
//
// Sink name: "redis-streams"
//
// Each artifact becomes one stream entry added with XADD, carrying the
// fields "name" (artifact name, e.g. bundle-<id>.json) and "body" (the
// encoded bundle bytes). The stream is created by the first XADD.
//
// Config keys:
// - addr: "host:port" (default "127.0.0.1:6379")
// - username, password, db
// - tls: enable TLS 1.2+ (default false), tls_server_name
// - ping_timeout: connection check on construction (default 2s)
// - stream: stream key (default "xbridge:bundles")
// - max_len_approx: approximate MAXLEN trimming (default 0 = unbounded)
//
// Example builder usage:
//
//	p, _ := xbridge.NewProducerBuilder().
//	    WithProducerID("ts-producer-001").
//	    WithKey(key).
//	    WithSink(redisstream.SinkName, map[string]any{
//	        "addr":           "localhost:6379",
//	        "stream":         "staging:bundles",
//	        "max_len_approx": int64(100000),
//	    }).
//	    Build()
package redisstream
