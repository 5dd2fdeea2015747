package sessions

import (
	"fmt"
	"math/rand"

	"github.com/aeropractica/atc-core/core/scenario"
)

var (
	taxiRoutes = []string{
		"Alfa 2, Alfa",
		"Alfa 3, Alfa",
		"Bravo, Alfa",
	}
	windDirections = []int{50, 60, 70, 80, 90, 100}
)

// EnsureAssignments fills in the per-session randomized values (squawk,
// taxi route, wind, QNH) on first use. Values already present, including
// student-selected overrides, are kept so a session's assignments stay
// stable across turns.
func EnsureAssignments(s *State, rng *rand.Rand) {
	if s.Overrides == nil {
		s.Overrides = map[string]scenario.Value{}
	}

	setIfAbsent := func(key string, value scenario.Value) {
		if _, ok := s.Overrides[key]; !ok {
			s.Overrides[key] = value
		}
	}

	setIfAbsent("squawk", scenario.StringValue(fmt.Sprintf("%04d", 500+rng.Intn(100))))
	setIfAbsent("taxi_route", scenario.StringValue(taxiRoutes[rng.Intn(len(taxiRoutes))]))
	setIfAbsent("wind_direction", scenario.NumberValue(float64(windDirections[rng.Intn(len(windDirections))])))
	setIfAbsent("wind_speed", scenario.NumberValue(float64(6+rng.Intn(11))))
	setIfAbsent("qnh", scenario.NumberValue(float64(3000+rng.Intn(13))))
}
