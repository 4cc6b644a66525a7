package domain

import (
	"fmt"
	"math"
	"sort"
)

// TypeSpec is the static description of an agent type.
type TypeSpec struct {
	Order      int
	DependsOn  []AgentType
	Subscribes bool // receives sync snapshots
}

// UnknownTypeOrder places unregistered types after every catalog entry.
const UnknownTypeOrder = math.MaxInt32

var catalog = map[AgentType]TypeSpec{
	AgentTypeLogging:     {Order: 1},
	AgentTypeDataSync:    {Order: 2, DependsOn: []AgentType{AgentTypeLogging}, Subscribes: true},
	AgentTypeWhatsAppBot: {Order: 3, DependsOn: []AgentType{AgentTypeLogging, AgentTypeDataSync}, Subscribes: true},
	AgentTypeDashboard:   {Order: 3, DependsOn: []AgentType{AgentTypeLogging}, Subscribes: true},
	AgentTypeTests:       {Order: 4, DependsOn: []AgentType{AgentTypeLogging, AgentTypeDashboard}},
}

// KnownTypes returns the catalog types sorted by execution order, then name.
func KnownTypes() []AgentType {
	types := make([]AgentType, 0, len(catalog))
	for t := range catalog {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		oi, oj := ExecutionOrder(types[i]), ExecutionOrder(types[j])
		if oi != oj {
			return oi < oj
		}
		return types[i] < types[j]
	})
	return types
}

// Known reports whether t is part of the catalog.
func (t AgentType) Known() bool {
	_, ok := catalog[t]
	return ok
}

// ExecutionOrder returns the deployment rank of t. Lower deploys first.
func ExecutionOrder(t AgentType) int {
	if spec, ok := catalog[t]; ok {
		return spec.Order
	}
	return UnknownTypeOrder
}

// Dependencies returns the types that must be healthy before t may deploy.
func Dependencies(t AgentType) []AgentType {
	spec, ok := catalog[t]
	if !ok {
		return nil
	}
	return append([]AgentType(nil), spec.DependsOn...)
}

// SubscribesToSync reports whether agents of type t receive sync snapshots.
func SubscribesToSync(t AgentType) bool {
	return catalog[t].Subscribes
}

// ValidateCatalog checks that every dependency is a known type ranked strictly
// before its dependent.
func ValidateCatalog() error {
	return validateCatalog(catalog)
}

func validateCatalog(c map[AgentType]TypeSpec) error {
	for t, spec := range c {
		for _, dep := range spec.DependsOn {
			depSpec, ok := c[dep]
			if !ok {
				return fmt.Errorf("type %s depends on unknown type %s", t, dep)
			}
			if depSpec.Order >= spec.Order {
				return fmt.Errorf("type %s (order %d) depends on %s (order %d)", t, spec.Order, dep, depSpec.Order)
			}
		}
	}
	return nil
}
