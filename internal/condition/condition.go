package condition

// Unknown is returned for condition ids outside every known group.
const Unknown = "dunno"

// Icon maps an OpenWeatherMap condition id to the name of the icon asset
// shown on the weather screen.
func Icon(id int) string {
	switch {
	case id >= 0 && id <= 300:
		return "tstorm1"
	case id >= 301 && id <= 500:
		return "light_rain"
	case id >= 501 && id <= 600:
		return "shower3"
	case id >= 601 && id <= 700:
		return "snow4"
	case id >= 701 && id <= 771:
		return "fog"
	case id >= 772 && id <= 799:
		return "tstorm3"
	case id == 800:
		return "sunny"
	case id >= 801 && id <= 804:
		return "cloudy2"
	case id >= 900 && id <= 903, id >= 905 && id <= 1000:
		return "tstorm3"
	case id == 904:
		return "sunny"
	default:
		return Unknown
	}
}
