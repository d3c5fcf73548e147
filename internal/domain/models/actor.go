package models

// Role is the job function of an authenticated user.
type Role string

const (
	RoleSalesAgent Role = "sales_agent"
	RoleManager    Role = "manager"
)

// Capability names an operation class gated at the routing layer.
type Capability string

const (
	CapRegisterFarmer  Capability = "farmer:register"
	CapSubmitRequest   Capability = "request:submit"
	CapViewRequests    Capability = "request:view"
	CapDecideRequest   Capability = "request:decide"
	CapRecordDelivery  Capability = "request:deliver"
	CapManageStock     Capability = "stock:manage"
	CapViewStock       Capability = "stock:view"
	CapViewReports     Capability = "report:view"
	CapRecordPayment   Capability = "payment:record"
	CapViewAllRequests Capability = "request:view_all"
)

var roleCapabilities = map[Role][]Capability{
	RoleSalesAgent: {
		CapRegisterFarmer,
		CapSubmitRequest,
		CapViewRequests,
		CapViewStock,
	},
	RoleManager: {
		CapRegisterFarmer,
		CapSubmitRequest,
		CapViewRequests,
		CapViewAllRequests,
		CapDecideRequest,
		CapRecordDelivery,
		CapManageStock,
		CapViewStock,
		CapViewReports,
		CapRecordPayment,
	},
}

// Actor is an already-identified caller. The core records it but never re-derives roles.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Valid reports whether the actor carries an id and a known role.
func (a Actor) Valid() bool {
	_, known := roleCapabilities[a.Role]
	return a.ID != "" && known
}

// Can reports whether the actor's role grants c.
func (a Actor) Can(c Capability) bool {
	for _, granted := range roleCapabilities[a.Role] {
		if granted == c {
			return true
		}
	}
	return false
}
