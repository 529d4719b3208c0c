package itinerary

// RecurringRoute is one entry of GET /recurring-routes.
type RecurringRoute struct {
	ID                     string  `json:"id"`
	Name                   string  `json:"name"`
	FromLocationName       string  `json:"from_location_name"`
	ToLocationName         string  `json:"to_location_name"`
	DepartureTime          string  `json:"departure_time"`
	Frequency              string  `json:"frequency"`
	IsActive               bool    `json:"is_active"`
	AverageDurationMinutes float64 `json:"average_duration_minutes"`
}

type RouteStatistics struct {
	TotalTrips            int     `json:"total_trips"`
	OnTimePercentage      float64 `json:"on_time_percentage"`
	AverageDelayMinutes   float64 `json:"average_delay_minutes"`
	MostCommonDelayReason *string `json:"most_common_delay_reason"`
}

// RecurringRouteDetail is returned by GET /recurring-routes/{id}.
type RecurringRouteDetail struct {
	ID                           string          `json:"id"`
	Name                         string          `json:"name"`
	Description                  *string         `json:"description"`
	FromLocationName             string          `json:"from_location_name"`
	FromCoordinates              Coordinates     `json:"from_coordinates"`
	ToLocationName               string          `json:"to_location_name"`
	ToCoordinates                Coordinates     `json:"to_coordinates"`
	DepartureTime                string          `json:"departure_time"`
	Frequency                    string          `json:"frequency"`
	IsActive                     bool            `json:"is_active"`
	AverageDurationMinutes       float64         `json:"average_duration_minutes"`
	AverageWalkingTimeMinutes    float64         `json:"average_walking_time_minutes"`
	AverageWalkingDistanceMeters float64         `json:"average_walking_distance_meters"`
	TypicalTransfers             int             `json:"typical_transfers"`
	Statistics                   RouteStatistics `json:"statistics"`
	BestDepartureTime            string          `json:"best_departure_time"`
	AlternativeTimes             []string        `json:"alternative_times"`
	Tips                         []string        `json:"tips"`
}

type RecurringRoutesResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Routes  []RecurringRoute `json:"routes"`
}

type RecurringRouteResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Route   *RecurringRouteDetail `json:"route"`
}
