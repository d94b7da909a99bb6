package scenario

func ptr[T any](v T) *T { return &v }

// BuiltIn returns predefined scenarios against the sample city graph in
// examples/graph.yaml.
func BuiltIn() map[string]Parameters {
	heatwave := Default()
	heatwave.Name = "Heatwave grid stress"
	heatwave.InitialFailureNodes = []string{"substation-north"}
	heatwave.EventType = EventHeatwave
	heatwave.EventSeverity = 0.7
	heatwave.TemperatureCelsius = ptr(41.0)
	heatwave.EventMetadata = map[string]any{"duration_days": 4}

	flood := Default()
	flood.Name = "River flood"
	flood.InitialFailureNodes = []string{"pump-station-east", "substation-river"}
	flood.EventType = EventFlood
	flood.EventSeverity = 0.6
	flood.PrecipitationMM = ptr(180.0)
	flood.HorizonHours = 48

	storm := Default()
	storm.Name = "Coastal hurricane"
	storm.InitialFailureNodes = []string{"substation-river"}
	storm.EventType = EventHurricane
	storm.EventSeverity = 0.9
	storm.WindSpeedKmh = ptr(160.0)
	storm.Scheduling = SchedulingEvent

	cyber := Default()
	cyber.Name = "Control system intrusion"
	cyber.InitialFailureNodes = []string{"scada-core"}
	cyber.EventType = EventCyberattack
	cyber.EventSeverity = 0.5
	cyber.RecoveryEnabled = false

	return map[string]Parameters{
		"heatwave":    heatwave,
		"flood":       flood,
		"hurricane":   storm,
		"cyberattack": cyber,
	}
}
