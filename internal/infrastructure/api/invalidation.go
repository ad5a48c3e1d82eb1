package api

import "strings"

// Resource identifies a backend collection. Cache invalidation is routed
// through this enum instead of substring-matching raw endpoints, so a
// collection whose name merely contains another's (say "contratos-archivados"
// vs "contratos") can never invalidate the wrong entries.
type Resource string

const (
	ResourceUsers         Resource = "user"
	ResourceRoles         Resource = "roles"
	ResourceClients       Resource = "clientes"
	ResourceInstructors   Resource = "instructores"
	ResourceContracts     Resource = "contratos"
	ResourceBlocks        Resource = "bloques-contrato"
	ResourceAgencySales   Resource = "gestoria-ventas"
	ResourceLedger        Resource = "movimientos-contables"
	ResourceSchedules     Resource = "horarios-instructores"
	ResourceUploads       Resource = "upload"
)

// invalidationPatterns maps a mutated resource to the cache key patterns it
// stales. Contracts fan out into schedule blocks and ledger entries; agency
// sales fan out into ledger entries. New resource types need a new entry
// here.
var invalidationPatterns = map[Resource][]string{
	ResourceUsers:       {"user"},
	ResourceRoles:       {"roles"},
	ResourceClients:     {"clientes"},
	ResourceInstructors: {"instructores"},
	ResourceContracts:   {"contratos", "bloques-contrato", "movimientos-contables"},
	ResourceBlocks:      {"bloques-contrato"},
	ResourceAgencySales: {"gestoria-ventas", "movimientos-contables"},
	ResourceLedger:      {"movimientos-contables"},
	ResourceSchedules:   {"horarios-instructores"},
}

// resourceForEndpoint resolves the collection an endpoint addresses from its
// first path segment. The match is exact, not substring.
func resourceForEndpoint(endpoint string) (Resource, bool) {
	segment := strings.TrimPrefix(endpoint, "/")
	if i := strings.IndexAny(segment, "/?"); i >= 0 {
		segment = segment[:i]
	}

	resource := Resource(segment)
	if _, known := invalidationPatterns[resource]; known {
		return resource, true
	}
	if resource == ResourceUploads {
		return resource, true
	}
	return "", false
}
