package weather_station

import "math"

// HeatIndex returns the perceived temperature in °C for an air temperature
// in °C and a relative humidity in percent. The simple Steadman estimate is
// used below 79°F, the Rothfusz regression above it.
func HeatIndex(temperature, humidity float64) float64 {
	t := celsiusToFahrenheit(temperature)
	hi := 0.5 * (t + 61.0 + ((t - 68.0) * 1.2) + (humidity * 0.094))
	if hi > 79 {
		hi = -42.379 +
			2.04901523*t +
			10.14333127*humidity +
			-0.22475541*t*humidity +
			-0.00683783*t*t +
			-0.05481717*humidity*humidity +
			0.00122874*t*t*humidity +
			0.00085282*t*humidity*humidity +
			-0.00000199*t*t*humidity*humidity

		switch {
		case humidity < 13 && t >= 80 && t <= 112:
			hi -= ((13 - humidity) * 0.25) * math.Sqrt((17-math.Abs(t-95))*0.05882)
		case humidity > 85 && t >= 80 && t <= 87:
			hi += ((humidity - 85) * 0.1) * ((87 - t) * 0.2)
		}
	}
	return fahrenheitToCelsius(hi)
}

func celsiusToFahrenheit(c float64) float64 {
	return c*1.8 + 32
}

func fahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 0.55555
}
