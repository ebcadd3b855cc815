// Package types provides the shared domain types for the console core.
// Entities arrive from the NGSI-LD context broker as flat snapshots; the
// hierarchy, dependency, and view packages derive everything else from them.
package types

// Entity is the unit managed by the console. IDs are opaque keys — the
// broker uses urn:ngsi-ld:<Type>:<tenant>:<local-id>, but nothing in the
// core parses them.
type Entity struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Category     string `json:"category"`
	ParentID     string `json:"parent_id,omitempty"`
	Name         string `json:"name"`
	Municipality string `json:"municipality,omitempty"`
	Status       string `json:"status"`
	HasLocation  bool   `json:"has_location"`
}

// Entity categories. Used for navigation grouping and for the
// parcels-first ordering rule in the tree builder.
const (
	CategoryParcels        = "parcels"
	CategorySensors        = "sensors"
	CategoryFleet          = "fleet"
	CategoryInfrastructure = "infrastructure"
	CategoryVegetation     = "vegetation"
	CategoryLivestock      = "livestock"
	CategoryWater          = "water"
	CategoryWeather        = "weather"
)

// Entity statuses as reported by the broker.
const (
	StatusActive      = "active"
	StatusInactive    = "inactive"
	StatusMaintenance = "maintenance"
	StatusError       = "error"
	StatusOffline     = "offline"
	StatusUnknown     = "unknown"
)

// categoryByType maps concrete entity types to their navigation category.
// Types not listed fall back to CategoryInfrastructure.
var categoryByType = map[string]string{
	"AgriParcel":     CategoryParcels,
	"AgriFarm":       CategoryParcels,
	"AgriGreenhouse": CategoryParcels,
	"AgriSensor":     CategorySensors,
	"Device":         CategorySensors,
	"AgriTractor":    CategoryFleet,
	"Vehicle":        CategoryFleet,
	"AgriBuilding":   CategoryInfrastructure,
	"AgriCrop":       CategoryVegetation,
	"AgriAnimal":     CategoryLivestock,
	"WaterTank":      CategoryWater,
	"Irrigation":     CategoryWater,
	"WeatherStation": CategoryWeather,
}

// CategoryForType returns the navigation category for an entity type.
// Unknown types land in infrastructure rather than failing, so new broker
// types show up in the console before this table learns about them.
func CategoryForType(entityType string) string {
	if c, ok := categoryByType[entityType]; ok {
		return c
	}
	return CategoryInfrastructure
}

// Dependency reports, for one candidate-for-deletion entity, how many other
// entities reference it as parent, grouped by the dependent's type.
type Dependency struct {
	EntityName     string `json:"entity_name"`
	DependentType  string `json:"dependent_type"`
	DependentCount int    `json:"dependent_count"`
}

// ListFilter narrows a repository listing. Zero value means "everything".
// ParentID selects direct children of the given entity.
type ListFilter struct {
	Types    []string
	ParentID string
}
