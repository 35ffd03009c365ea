package ports

import "context"

// SubmissionNotice is the payload delivered to approvers after a committed
// submission. Delivery is strictly downstream: failures are logged and
// swallowed, never rolled back into the submission path.
type SubmissionNotice struct {
	PRNumber       string
	RequestorName  string
	RequestorEmail string
	Description    string
	Amount         float64
	Currency       string
	Site           string
}

// Notifier delivers a single notice synchronously. The async fan-out lives in
// the infrastructure dispatcher.
type Notifier interface {
	NotifySubmission(ctx context.Context, notice SubmissionNotice) error
}

// NoticePublisher enqueues a notice for asynchronous delivery after the
// submission has committed.
type NoticePublisher interface {
	Publish(notice SubmissionNotice)
}
