package relay

// Delivery is the outcome of sending one envelope to one admin.
type Delivery struct {
	Recipient int64
	MessageID int64
	Err       error
}

// BroadcastReport collects the per-admin results of relaying a complaint.
// Order of Deliveries follows the sorted admin list, not send order.
type BroadcastReport struct {
	Deliveries []Delivery
}

func (r *BroadcastReport) Sent() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Err == nil {
			n++
		}
	}
	return n
}

func (r *BroadcastReport) Failed() int {
	return len(r.Deliveries) - r.Sent()
}

// Failures returns the failed deliveries only.
func (r *BroadcastReport) Failures() []Delivery {
	var failed []Delivery
	for _, d := range r.Deliveries {
		if d.Err != nil {
			failed = append(failed, d)
		}
	}
	return failed
}
