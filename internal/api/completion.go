package api

// CompletionStream yields the chunks of a streamed completion in the
// exact order the backend produced them. Recv returns io.EOF once the
// backend signals completion. Close releases the underlying connection
// and must be called on every stream.
type CompletionStream interface {
	Recv() (string, error)
	Close() error
}
