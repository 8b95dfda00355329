package store

// Collection keys. Each logical collection is one JSON array (or object)
// serialized under one key, mirroring the six blobs of the original layout.
const (
	KeyUsers       = "users"
	KeyBooks       = "books"
	KeyLoans       = "borrow_requests"
	KeySearchCache = "search_cache"
	KeyChatHistory = "chat_history"
	KeyTheme       = "theme"
)

// KV is the blob persistence contract: whole-value reads and full-overwrite
// writes under string keys. Backends make a single Put atomic; anything
// smarter (read-modify-write fencing) lives in Collections.
type KV interface {
	// Get returns the stored blob and whether the key was present.
	Get(key string) ([]byte, bool, error)
	// Put overwrites the blob under key. No partial merge.
	Put(key string, value []byte) error
	// Close releases backend resources.
	Close() error
}
