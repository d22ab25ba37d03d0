package members

import (
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Simulated is an in-memory Registry for tests.
type Simulated struct {
	mu         sync.RWMutex
	merchants  map[ethcommon.Address]bool
	custodians map[ethcommon.Address]bool
}

func NewSimulated() *Simulated {
	return &Simulated{
		merchants:  make(map[ethcommon.Address]bool),
		custodians: make(map[ethcommon.Address]bool),
	}
}

func (s *Simulated) AddMerchant(addr ethcommon.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merchants[addr] = true
}

func (s *Simulated) AddCustodian(addr ethcommon.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.custodians[addr] = true
}

func (s *Simulated) RemoveMerchant(addr ethcommon.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.merchants, addr)
}

func (s *Simulated) IsMerchant(addr ethcommon.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.merchants[addr]
}

func (s *Simulated) IsCustodian(addr ethcommon.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.custodians[addr]
}
