// Package members answers the two role questions the custody factory asks:
// is an address a merchant, is an address a custodian. The factory only ever
// sees the Registry interface; membership management lives behind it.
package members

import "github.com/ethereum/go-ethereum/common"

type Role string

const (
	RoleMerchant  Role = "merchant"
	RoleCustodian Role = "custodian"
)

// Registry is the access predicate injected into the factory. Both queries
// are synchronous and side-effect free.
type Registry interface {
	IsMerchant(addr common.Address) bool
	IsCustodian(addr common.Address) bool
}
