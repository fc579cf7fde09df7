package rules

// Escalation reasons. They end up in audit rows and metrics labels, so they
// stay short and stable.
const (
	ReasonTextKeyword   = "text_keyword"
	ReasonTransferType  = "image_transfer_type"
	ReasonAllOutOfStock = "image_all_out_of_stock"
	ReasonAllNoLink     = "image_all_no_link"
	ReasonVideo         = "video"
)

// TransferDecision says whether a conversation goes to a human agent.
// Detail carries the matched keyword or product type when there is one.
type TransferDecision struct {
	Escalate bool
	Reason   string
	Detail   string
}

// Handle is the decision to keep the conversation automated.
func Handle() TransferDecision { return TransferDecision{} }

// Escalate builds an escalation decision.
func Escalate(reason, detail string) TransferDecision {
	return TransferDecision{Escalate: true, Reason: reason, Detail: detail}
}

// String renders the decision for logs and the audit forward_reason column.
func (d TransferDecision) String() string {
	if !d.Escalate {
		return "handle"
	}
	if d.Detail == "" {
		return d.Reason
	}
	return d.Reason + ":" + d.Detail
}
