package simulation

import (
	"math"

	"github.com/dealflowhq/autopilot/internal/domain"
)

// ActionState — эффективное состояние одного типа действия на симулируемый день.
type ActionState struct {
	Key   string      `json:"key"`
	Label string      `json:"label"`
	Tier  domain.Tier `json:"tier"`
}

// Proposal — одноразовая карточка «предлагаем пакетное повышение»,
// всплывающая в день вехи. Скрытие карточки живет в контроллере плейбека
// и сбрасывается при рестарте демо.
type Proposal struct {
	Day          int      `json:"day"`
	PromotedKeys []string `json:"promoted_keys"`
}

// DayState — полный снимок демо на один день; чистая функция от (script, day).
type DayState struct {
	Day              int           `json:"day"`
	AutonomyPct      int           `json:"autonomy_pct"`
	TimeSavedHrs     float64       `json:"time_saved_hrs"`
	ActionsAutomated int           `json:"actions_automated"`
	Actions          []ActionState `json:"actions"`
	Proposal         *Proposal     `json:"proposal,omitempty"`
}

// BuildDayState считает состояние демо на день day. Значения вне [1, Days]
// зажимаются в границы — слайдер на фронте и так ограничен, но закрытая
// функция не должна зависеть от дисциплины вызывающего.
func BuildDayState(script Script, day int) DayState {
	if day < 1 {
		day = 1
	}
	if day > script.Days {
		day = script.Days
	}

	promoted := make(map[string]struct{})
	for _, m := range script.Milestones {
		if m.Day <= day {
			for _, k := range m.PromotedKeys {
				promoted[k] = struct{}{}
			}
		}
	}

	actions := make([]ActionState, 0, len(script.Actions))
	autoCount := 0
	for _, a := range script.Actions {
		tier := a.StartingTier
		if _, ok := promoted[a.Key]; ok {
			tier = domain.TierAuto
		}
		if tier == domain.TierAuto {
			autoCount++
		}
		actions = append(actions, ActionState{Key: a.Key, Label: a.Label, Tier: tier})
	}

	pct := 0
	if len(actions) > 0 {
		pct = int(math.Round(100 * float64(autoCount) / float64(len(actions))))
	}

	state := DayState{
		Day:              day,
		AutonomyPct:      pct,
		TimeSavedHrs:     interpolate(script.TimeSavedEndHrs, day, script.Days),
		ActionsAutomated: int(math.Round(interpolate(float64(script.ActionsAutomated), day, script.Days))),
		Actions:          actions,
	}

	if m := script.milestoneFor(day); m != nil {
		state.Proposal = &Proposal{Day: m.Day, PromotedKeys: m.PromotedKeys}
	}

	return state
}

// interpolate — линейный рост от 0 в день 1 до value в последний день:
// value * (day-1) / (days-1). В последний день значение точное, без
// накопленной ошибки округления.
func interpolate(value float64, day, days int) float64 {
	if days <= 1 || day >= days {
		return value
	}
	return value * float64(day-1) / float64(days-1)
}
