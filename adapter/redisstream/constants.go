package redisstream

// Field constants (avoid typos/allocs)
const (
	fieldName = "name"
	fieldBody = "body" // raw artifact bytes (binary-safe, no base64)
)
