package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
)

// parseBbox interprets "latSW,lngSW^latNE,lngNE".
func parseBbox(data string) (app.Bbox, error) {
	sWnE := strings.Split(data, "^")
	result := app.Bbox{}
	if len(sWnE) != 2 {
		return result, errors.New("Bounding Box malformed - need ^ for separating SW and NE coordinate")
	}

	for idx, latlngRec := range sWnE {
		latlng := strings.Split(latlngRec, ",")
		if len(latlng) != 2 {
			return result, errors.New("Bounding Box malformed - need , for separating lat and lng coordinate")
		}
		lat, errLat := strconv.ParseFloat(latlng[0], 64)
		if errLat != nil {
			return result, errLat
		}
		lng, errLng := strconv.ParseFloat(latlng[1], 64)
		if errLng != nil {
			return result, errLng
		}
		if idx == 0 {
			result.LatSW = lat
			result.LngSW = lng
		} else {
			result.LatNE = lat
			result.LngNE = lng
		}
	}
	return result, nil
}
