package timezone

import (
	"time"
	_ "time/tzdata"
)

// the portal renders dates in Argentine local time
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		panic(err)
	}
}

func Now() time.Time {
	return time.Now().In(Location)
}
