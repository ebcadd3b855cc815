// Package seed provides demo data seeding for the local catalog.
package seed

import (
	"context"
	"fmt"
	"log"

	"github.com/terrasense/agriops/internal/catalog"
	"github.com/terrasense/agriops/internal/types"
)

// DemoEntities is a small holding: one farm with a greenhouse, parcels,
// sensors, a weather station, and a tractor. Parent references follow the
// farm → parcel → device layering the console expects.
func DemoEntities() []types.Entity {
	return []types.Entity{
		{ID: "urn:ngsi-ld:AgriFarm:demo:f1", Type: "AgriFarm", Category: types.CategoryParcels,
			Name: "Valdemoro Farm", Municipality: "Valdemoro", Status: types.StatusActive, HasLocation: true},
		{ID: "urn:ngsi-ld:AgriParcel:demo:p1", Type: "AgriParcel", Category: types.CategoryParcels,
			Name: "North Field", Municipality: "Valdemoro", Status: types.StatusActive, HasLocation: true,
			ParentID: "urn:ngsi-ld:AgriFarm:demo:f1"},
		{ID: "urn:ngsi-ld:AgriParcel:demo:p2", Type: "AgriParcel", Category: types.CategoryParcels,
			Name: "South Field", Municipality: "Valdemoro", Status: types.StatusActive, HasLocation: true,
			ParentID: "urn:ngsi-ld:AgriFarm:demo:f1"},
		{ID: "urn:ngsi-ld:AgriGreenhouse:demo:g1", Type: "AgriGreenhouse", Category: types.CategoryParcels,
			Name: "Greenhouse A", Municipality: "Valdemoro", Status: types.StatusActive, HasLocation: true,
			ParentID: "urn:ngsi-ld:AgriFarm:demo:f1"},
		{ID: "urn:ngsi-ld:AgriSensor:demo:s1", Type: "AgriSensor", Category: types.CategorySensors,
			Name: "Soil Moisture 1", Municipality: "Valdemoro", Status: types.StatusActive, HasLocation: true,
			ParentID: "urn:ngsi-ld:AgriParcel:demo:p1"},
		{ID: "urn:ngsi-ld:AgriSensor:demo:s2", Type: "AgriSensor", Category: types.CategorySensors,
			Name: "Soil Moisture 2", Municipality: "Valdemoro", Status: types.StatusMaintenance, HasLocation: true,
			ParentID: "urn:ngsi-ld:AgriParcel:demo:p2"},
		{ID: "urn:ngsi-ld:AgriSensor:demo:s3", Type: "AgriSensor", Category: types.CategorySensors,
			Name: "Humidity 1", Municipality: "Valdemoro", Status: types.StatusActive, HasLocation: false,
			ParentID: "urn:ngsi-ld:AgriGreenhouse:demo:g1"},
		{ID: "urn:ngsi-ld:WeatherStation:demo:w1", Type: "WeatherStation", Category: types.CategoryWeather,
			Name: "Station West", Municipality: "Valdemoro", Status: types.StatusOffline, HasLocation: true},
		{ID: "urn:ngsi-ld:AgriTractor:demo:t1", Type: "AgriTractor", Category: types.CategoryFleet,
			Name: "Tractor 1", Municipality: "Valdemoro", Status: types.StatusInactive, HasLocation: true,
			ParentID: "urn:ngsi-ld:AgriFarm:demo:f1"},
	}
}

// Demo populates the store with DemoEntities. If the catalog already has
// entities it skips seeding, so restarts stay idempotent.
func Demo(ctx context.Context, store *catalog.SQLiteStore) error {
	existing, err := store.ListEntities(ctx, types.ListFilter{})
	if err != nil {
		return fmt.Errorf("checking catalog: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("catalog already seeded (%d entities), skipping", len(existing))
		return nil
	}
	if err := store.UpsertEntities(ctx, DemoEntities()); err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}
	log.Printf("seeded %d demo entities", len(DemoEntities()))
	return nil
}
