package sync

import "context"

// CRMNotifier writes an acknowledgment back to the CRM after a successful
// translation. The bridge works without one; failures are logged, never
// escalated.
type CRMNotifier interface {
	AddDealComment(ctx context.Context, dealID, text string) error
}
