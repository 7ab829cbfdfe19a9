package riot

import (
	"fmt"
	"strings"
)

// Route is a Riot API regional routing value. It selects the host
// <route>.api.riotgames.com.
type Route string

// Regional routing values served by match-v5.
const (
	RouteAmericas Route = "americas" // NA, BR, LAN, LAS
	RouteAsia     Route = "asia"     // KR, JP
	RouteEurope   Route = "europe"   // EUNE, EUW, TR, RU
	RouteSEA      Route = "sea"      // OCE, PH2, SG2, TH2, TW2, VN2
)

// Routes lists every known routing value.
var Routes = []Route{RouteAmericas, RouteAsia, RouteEurope, RouteSEA}

// ParseRoute parses a routing value, ignoring case.
func ParseRoute(s string) (Route, error) {
	r := Route(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Routes {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of americas, asia, europe, sea)", ErrUnknownRoute, s)
}

// AccountRoute returns the routing value used for account-v1 lookups.
// account-v1 is not served on sea; those players are looked up on asia.
func (r Route) AccountRoute() Route {
	if r == RouteSEA {
		return RouteAsia
	}
	return r
}

// String implements fmt.Stringer.
func (r Route) String() string {
	return string(r)
}
