package weather

import "time"

type Description struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type Temperatures struct {
	Day     float64  `json:"day"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Night   float64  `json:"night"`
	Evening float64  `json:"eve"`
	Morning *float64 `json:"morn"`
}

type FeelsLike struct {
	Day     float64  `json:"day"`
	Night   float64  `json:"night"`
	Evening float64  `json:"eve"`
	Morning *float64 `json:"morn"`
}

type City struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Timezone int    `json:"timezone"`
}

// DayInfo is one day of the openweathermap 16-day daily forecast response.
type DayInfo struct {
	Dt                  int64         `json:"dt"`
	Temp                Temperatures  `json:"temp"`
	FeelsLike           FeelsLike     `json:"feels_like"`
	Pressure            float64       `json:"pressure"`
	Humidity            float64       `json:"humidity"`
	WeatherDescriptions []Description `json:"weather"`
	Speed               float64       `json:"speed"`
	Clouds              int           `json:"clouds"`
	Pop                 float64       `json:"pop"` // 0-1 fraction
	Rain                float64       `json:"rain,omitempty"`
}

func (d *DayInfo) Timestamp() time.Time {
	return time.Unix(d.Dt, 0)
}

type ApiDailyResponse struct {
	Cod     string    `json:"cod"`
	Message float64   `json:"message"`
	Cnt     int       `json:"cnt"`
	City    City      `json:"city"`
	List    []DayInfo `json:"list"`
}

// DailyForecast is the normalized per-day snapshot handed to the dashboard.
// Precipitation probability is a 0-100 percentage here, not the upstream
// 0-1 fraction.
type DailyForecast struct {
	TempMorning       *float64 `json:"temp_morning"`
	FeelsLikeMorning  *float64 `json:"feels_like_morning"`
	PrecipitationProb float64  `json:"precipitation_prob"`
	Description       string   `json:"description"`
}
