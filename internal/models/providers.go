// internal/models/providers.go
package models

// Known provider ids. Jobs reference providers by these ids and the
// reliability scorer keys its trust bonus off them.
const (
	ProviderIDCatalog = "catalog"
	ProviderIDWeb     = "web"
)
