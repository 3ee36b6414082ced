package domain

import "time"

// TeamMemberStats — свертка по одному менеджеру для командного дашборда.
// Считается запросом к БД на каждого rep; клиент только усредняет/суммирует.
type TeamMemberStats struct {
	RepID                string  `json:"rep_id"`
	RepName              string  `json:"rep_name"`
	AutonomyScore        int     `json:"autonomy_score"`
	AutoCount            int     `json:"auto_count"`
	ApproveCount         int     `json:"approve_count"`
	DaysSinceFirstSignal int     `json:"days_since_first_signal"`
	TimeSavedHoursWeek   float64 `json:"time_saved_hours_week"`
}

// AutonomyCeiling — организационный потолок для типа действия.
// Администрируется вне этого сервиса; здесь только чтение и кэш.
type AutonomyCeiling struct {
	OrgID      string `json:"org_id"`
	ActionType string `json:"action_type"`

	// MaxCeiling — выше этого уровня тип действия не поднимается,
	// независимо от качества сигналов.
	MaxCeiling Tier `json:"max_ceiling"`

	// AutoPromotionEligible — можно ли применять повышение автоматически.
	// Если false, сервис лишь помечает promotion_eligible и ждет явного
	// подтверждения оператора.
	AutoPromotionEligible bool `json:"auto_promotion_eligible"`

	UpdatedAt time.Time `json:"updated_at"`
}

// RepAutonomy — агрегированный ответ для карточки автономии менеджера.
type RepAutonomy struct {
	RepID              string           `json:"rep_id"`
	AutonomyScore      int              `json:"autonomy_score"`
	PresetLabel        string           `json:"preset_label"`
	TimeSavedHoursWeek float64          `json:"time_saved_hours_week"`
	TimeSavedDisplay   string           `json:"time_saved_display"`
	ActionTypes        []ActionTypeStat `json:"action_types"`
}

// TeamAutonomy — агрегированный ответ для командного дашборда.
type TeamAutonomy struct {
	OrgID        string            `json:"org_id"`
	AverageScore int               `json:"average_score"`
	PresetLabel  string            `json:"preset_label"`
	Members      []TeamMemberStats `json:"members"`
}
