package FDM1D

import (
	"sync"
)

type registryKey struct {
	continuous bool
	degree     int
	eta        float64
}

var registry = struct {
	sync.Mutex
	sets map[registryKey]*OperatorSet
}{sets: make(map[registryKey]*OperatorSet)}

// Get returns the shared operator set for a line element, building it on
// first use. The penalty only distinguishes discontinuous elements.
func Get(continuous bool, degree int, eta float64) (ops *OperatorSet, err error) {
	key := registryKey{continuous: continuous, degree: degree}
	if !continuous {
		key.eta = eta
	}
	registry.Lock()
	defer registry.Unlock()
	if ops = registry.sets[key]; ops != nil {
		return
	}
	if continuous {
		ops, err = SetupCG(degree)
	} else {
		ops, err = SetupIPDG(degree, eta)
	}
	if err != nil {
		return
	}
	registry.sets[key] = ops
	return
}
