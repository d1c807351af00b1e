package syncer

// State is where a single recording is in its delivery lifecycle.
//
//	Captured → Uploading → Delivered
//	                     → QueuedOffline → (drain) Uploading → ...
//	                     → Rejected
//	Captured → QueuedOffline (offline)
//	any save failure → Lost
type State int

const (
	Captured State = iota
	Uploading
	Delivered
	QueuedOffline
	Rejected
	Lost
)

func (s State) String() string {
	switch s {
	case Captured:
		return "captured"
	case Uploading:
		return "uploading"
	case Delivered:
		return "delivered"
	case QueuedOffline:
		return "queued"
	case Rejected:
		return "rejected"
	case Lost:
		return "lost"
	default:
		return "unknown"
	}
}

// Result is the outcome of Capture.
type Result struct {
	State     State
	PendingID string // set when the recording was queued
	Err       error  // upload or storage error, if any
}

// SkipReason explains why a drain did nothing.
type SkipReason string

const (
	SkipBusy    SkipReason = "drain already running"
	SkipOffline SkipReason = "offline"
)

// Report summarizes one drain pass.
type Report struct {
	Attempted int
	Delivered int
	Failed    int
	Rejected  int // subset of Failed refused for quota
	Skipped   SkipReason
	Err       error
}
