// Package scenario defines the parameters of one cascade simulation request
// and how they are loaded and validated.
package scenario

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is returned for scenarios that must be rejected before any
// simulation work starts.
var ErrInvalid = errors.New("invalid scenario")

// EventType names the hazard that triggered the initial failures.
type EventType string

const (
	EventEarthquake    EventType = "earthquake"
	EventFlood         EventType = "flood"
	EventHurricane     EventType = "hurricane"
	EventHeatwave      EventType = "heatwave"
	EventCyberattack   EventType = "cyberattack"
	EventPowerOutage   EventType = "power_outage"
	EventSystemFailure EventType = "system_failure"
)

// EventTypes lists every accepted event type.
var EventTypes = []EventType{
	EventEarthquake, EventFlood, EventHurricane, EventHeatwave,
	EventCyberattack, EventPowerOutage, EventSystemFailure,
}

// Scheduling selects how a run orders its worklist.
type Scheduling string

const (
	// SchedulingFIFO processes failures in discovery order and advances the
	// clock by one time step per processed failure.
	SchedulingFIFO Scheduling = "fifo"
	// SchedulingEvent processes failures in scheduled-time order and moves
	// the clock to each failure's own time.
	SchedulingEvent Scheduling = "event"
)

// Defaults for fields a scenario file may omit.
const (
	DefaultHorizonHours      = 24
	DefaultMonteCarloRuns    = 1000
	DefaultConfidenceLevel   = 0.95
	DefaultTimeStepMinutes   = 5.0
	DefaultBaseProbability   = 0.3
	DefaultLoadThreshold     = 1.2
	DefaultMeanRecoveryHours = 12.0
	MaxHorizonHours          = 168
	MaxMonteCarloRuns        = 10000
	minutesPerHour           = 60.0
)

// Parameters is one simulation request.
type Parameters struct {
	ID                  string         `yaml:"id,omitempty" json:"id,omitempty"`
	Name                string         `yaml:"scenario_name" json:"scenario_name" validate:"required"`
	InitialFailureNodes []string       `yaml:"initial_failure_nodes" json:"initial_failure_nodes" validate:"required,min=1,dive,required"`
	EventType           EventType      `yaml:"event_type" json:"event_type" validate:"required,oneof=earthquake flood hurricane heatwave cyberattack power_outage system_failure"`
	EventSeverity       float64        `yaml:"event_severity" json:"event_severity" validate:"gte=0,lte=1"`
	EventMetadata       map[string]any `yaml:"event_metadata,omitempty" json:"event_metadata,omitempty"`

	HorizonHours    int     `yaml:"simulation_horizon_hours" json:"simulation_horizon_hours" validate:"gte=1,lte=168"`
	MonteCarloRuns  int     `yaml:"monte_carlo_runs" json:"monte_carlo_runs" validate:"gte=1,lte=10000"`
	ConfidenceLevel float64 `yaml:"confidence_level" json:"confidence_level" validate:"gte=0,lte=1"`
	TimeStepMinutes float64 `yaml:"time_step_minutes" json:"time_step_minutes" validate:"gt=0"`

	BasePropagationProbability float64 `yaml:"base_propagation_probability" json:"base_propagation_probability" validate:"gte=0,lte=1"`
	LoadThresholdMultiplier    float64 `yaml:"load_threshold_multiplier" json:"load_threshold_multiplier" validate:"gt=0"`
	RecoveryEnabled            bool    `yaml:"recovery_enabled" json:"recovery_enabled"`
	MeanRecoveryTimeHours      float64 `yaml:"mean_recovery_time_hours" json:"mean_recovery_time_hours" validate:"gt=0"`

	TemperatureCelsius *float64 `yaml:"temperature_celsius,omitempty" json:"temperature_celsius,omitempty"`
	WindSpeedKmh       *float64 `yaml:"wind_speed_kmh,omitempty" json:"wind_speed_kmh,omitempty"`
	PrecipitationMM    *float64 `yaml:"precipitation_mm,omitempty" json:"precipitation_mm,omitempty" validate:"omitempty,gte=0"`

	Seed       *uint64    `yaml:"seed,omitempty" json:"seed,omitempty"`
	Scheduling Scheduling `yaml:"scheduling,omitempty" json:"scheduling,omitempty" validate:"omitempty,oneof=fifo event"`
}

// Default returns parameters with every optional field at its default.
func Default() Parameters {
	return Parameters{
		HorizonHours:               DefaultHorizonHours,
		MonteCarloRuns:             DefaultMonteCarloRuns,
		ConfidenceLevel:            DefaultConfidenceLevel,
		TimeStepMinutes:            DefaultTimeStepMinutes,
		BasePropagationProbability: DefaultBaseProbability,
		LoadThresholdMultiplier:    DefaultLoadThreshold,
		RecoveryEnabled:            true,
		MeanRecoveryTimeHours:      DefaultMeanRecoveryHours,
	}
}

// HorizonMinutes is the simulation horizon in engine time units.
func (p *Parameters) HorizonMinutes() float64 {
	return float64(p.HorizonHours) * minutesPerHour
}

// Seeds returns the initial failure nodes with duplicates removed, keeping
// first-occurrence order.
func (p *Parameters) Seeds() []string {
	seen := make(map[string]bool, len(p.InitialFailureNodes))
	out := make([]string, 0, len(p.InitialFailureNodes))
	for _, id := range p.InitialFailureNodes {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Mode returns the effective scheduling mode.
func (p *Parameters) Mode() Scheduling {
	if p.Scheduling == "" {
		return SchedulingFIFO
	}
	return p.Scheduling
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks every range constraint. The returned error wraps ErrInvalid.
func (p *Parameters) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: no parameters", ErrInvalid)
	}
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + ": field is required"
	case "min":
		return fmt.Sprintf("%s: must contain at least %s entries", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s: must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s: must be <= %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s: must be > %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s: validation failed (%s)", field, fe.Tag())
	}
}
