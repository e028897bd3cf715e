package prometheus

type Sizer interface {
	GetQueueSize() (uint, error)
	GetTotalSize() (uint, error)
	GetFailedSize() (uint, error)
}
