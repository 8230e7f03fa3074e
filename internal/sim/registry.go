package sim

import (
	"sort"
	"sync"
)

// Global registry of live Simulator instances keyed by sensor ID, so
// the monitor and other read-side consumers can find a sensor without
// threading the pointer through every layer.
var (
	simRegistry   = map[string]*Simulator{}
	simRegistryMu = &sync.RWMutex{}
)

// RegisterSimulator registers a simulator under a sensor ID, replacing
// any previous registration.
func RegisterSimulator(sensorID string, s *Simulator) {
	if sensorID == "" || s == nil {
		return
	}
	simRegistryMu.Lock()
	defer simRegistryMu.Unlock()
	simRegistry[sensorID] = s
}

// GetSimulator returns a registered simulator or nil.
func GetSimulator(sensorID string) *Simulator {
	simRegistryMu.RLock()
	defer simRegistryMu.RUnlock()
	return simRegistry[sensorID]
}

// UnregisterSimulator removes a sensor's registration.
func UnregisterSimulator(sensorID string) {
	simRegistryMu.Lock()
	defer simRegistryMu.Unlock()
	delete(simRegistry, sensorID)
}

// ListSensorIDs returns the registered sensor IDs in sorted order.
func ListSensorIDs() []string {
	simRegistryMu.RLock()
	defer simRegistryMu.RUnlock()
	ids := make([]string, 0, len(simRegistry))
	for id := range simRegistry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
