package api

import (
	"fmt"

	"eldtrip/internal/model"
)

func validateTripRequest(req *model.TripRequest) error {
	if req.TotalDistanceMiles < 0 {
		return fmt.Errorf("total_distance_miles must be >= 0")
	}
	if req.PickupMilesFromStart < 0 {
		return fmt.Errorf("pickup_miles_from_start must be >= 0")
	}
	if req.PickupMilesFromStart > req.TotalDistanceMiles {
		return fmt.Errorf("pickup_miles_from_start must not exceed total_distance_miles")
	}
	if req.CurrentCycleUsedHours < 0 {
		return fmt.Errorf("current_cycle_used_hours must be >= 0")
	}
	if req.CurrentLocation == "" && req.Locations.Current == nil {
		return fmt.Errorf("current_location is required")
	}
	if req.DropoffLocation == "" && req.Locations.Dropoff == nil {
		return fmt.Errorf("dropoff_location is required")
	}
	return nil
}
