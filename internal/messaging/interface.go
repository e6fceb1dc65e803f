package messaging

// Provider is the contract a binding host depends on.
type Provider interface {
	ChannelHandle() (*Model, error)
	RawChannel() (RawChannel, error)
	PublishBatch() (*PublishBatch, error)
	PublishBatchGuard() *BatchGuard
	ResetPublishBatch() error
}

// Ensure Service implements Provider and BatchPublisher
var (
	_ Provider       = (*Service)(nil)
	_ BatchPublisher = (*Service)(nil)
)
