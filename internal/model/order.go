package model

// Kind distinguishes a Local order (placed in-store) from a Web order
// (ingested by an e-commerce node and delegated to a local).
type Kind int

const (
	Local Kind = iota
	Web
)

func (k Kind) String() string {
	if k == Web {
		return "web"
	}
	return "local"
}

// Order is the tagged Local|Web variant from spec §3. Web orders additionally
// carry the originating e-commerce node and worker, stamped by the
// e-commerce order-worker that dequeues them. AssignedLocalID is set by that
// worker each time it picks a local, and by the local shop that reports the
// order's result.
type Order struct {
	ID       uint64    `json:"id"`
	Kind     Kind      `json:"kind"`
	Products []Product `json:"products"`

	// Routing fields. The originating fields are set on Web orders only;
	// AssignedLocalID is also set on Local orders reported by a local shop.
	// Zero value means "not yet set".
	OriginatingSSID     uint16 `json:"originating_ss_id,omitempty"`
	OriginatingWorkerID uint16 `json:"originating_worker_id,omitempty"`
	AssignedLocalID     uint16 `json:"assigned_local_id,omitempty"`
}

// Clone returns a deep copy so concurrent handlers never alias the same
// Products slice.
func (o Order) Clone() Order {
	out := o
	out.Products = make([]Product, len(o.Products))
	copy(out.Products, o.Products)
	return out
}

// IsWeb reports whether this order carries web-routing semantics.
func (o Order) IsWeb() bool { return o.Kind == Web }

// StampOrigin sets the routing fields the first time a web order is
// dequeued by an e-commerce order-worker. Per the invariant in spec §3,
// callers must only invoke this once per order.
func (o *Order) StampOrigin(ssID, workerID uint16) {
	o.OriginatingSSID = ssID
	o.OriginatingWorkerID = workerID
}

// AssignLocal records the local that fulfills the order. The e-commerce
// order-worker calls it when it picks a local (again on each retry), and
// the local shop's connection handler calls it with its own local id on
// every order it reports.
func (o *Order) AssignLocal(localID uint16) {
	o.AssignedLocalID = localID
}
