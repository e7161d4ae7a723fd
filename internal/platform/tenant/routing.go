// Package tenant maps medical centers onto their databases and runs
// operations across every known medical center.
package tenant

import "sort"

// Connection names used by the default routing table. Each maps onto one
// configured database URL.
const (
	ConnPrimary   = "primary"
	ConnGuayaquil = "guayaquil"
	ConnCuenca    = "cuenca"
)

// RoutingTable maps a medical center id to a connection name. It is built
// at startup and never mutated.
type RoutingTable interface {
	// ConnectionName returns the connection for id. Unknown ids map to the
	// default connection.
	ConnectionName(id int) string
	// Tenants lists the known medical center ids in ascending order.
	Tenants() []int
}

// StaticRoutingTable is a fixed id -> connection mapping.
type StaticRoutingTable struct {
	routes   map[int]string
	fallback string
	tenants  []int
}

func NewStaticRoutingTable(routes map[int]string, fallback string) *StaticRoutingTable {
	copied := make(map[int]string, len(routes))
	tenants := make([]int, 0, len(routes))
	for id, conn := range routes {
		copied[id] = conn
		tenants = append(tenants, id)
	}
	sort.Ints(tenants)
	return &StaticRoutingTable{routes: copied, fallback: fallback, tenants: tenants}
}

// DefaultRoutingTable is the deployment layout: the main hospital on the
// primary database and one extension database per branch.
func DefaultRoutingTable() *StaticRoutingTable {
	return NewStaticRoutingTable(map[int]string{
		1: ConnPrimary,
		2: ConnGuayaquil,
		3: ConnCuenca,
	}, ConnPrimary)
}

func (t *StaticRoutingTable) ConnectionName(id int) string {
	if conn, ok := t.routes[id]; ok {
		return conn
	}
	return t.fallback
}

func (t *StaticRoutingTable) Tenants() []int {
	out := make([]int, len(t.tenants))
	copy(out, t.tenants)
	return out
}

// Connections returns the distinct connection names, fallback included.
func (t *StaticRoutingTable) Connections() []string {
	seen := map[string]bool{t.fallback: true}
	out := []string{t.fallback}
	for _, id := range t.tenants {
		conn := t.routes[id]
		if !seen[conn] {
			seen[conn] = true
			out = append(out, conn)
		}
	}
	return out
}
