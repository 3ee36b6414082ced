package simulation

import "github.com/dealflowhq/autopilot/internal/domain"

// Script — сценарий детерминированного 90-дневного демо. Это данные, а не
// код: тот же движок может крутить другой сценарий для другого демо.
type Script struct {
	Days int // длина демо в днях

	// Actions — посевной набор типов действий со стартовыми уровнями.
	Actions []ScriptAction

	// Milestones — упорядоченный список вех: в день Day перечисленные
	// типы действий переводятся на auto. Демоций в сценарии нет,
	// поэтому процент автономии по дням не убывает.
	Milestones []Milestone

	// Конечные значения для линейной интерполяции от нуля (день 1)
	// до финала (последний день).
	TimeSavedEndHrs  float64
	ActionsAutomated int
}

type ScriptAction struct {
	Key          string      `json:"key"`   // например "crm.note_add"
	Label        string      `json:"label"` // подпись на карточке
	StartingTier domain.Tier `json:"starting_tier"`
}

type Milestone struct {
	Day          int      `json:"day"`
	PromotedKeys []string `json:"promoted_keys"`
}

// DefaultScript — сценарий продуктового демо: 12 типов действий,
// к 80-му дню все выходят на auto.
func DefaultScript() Script {
	return Script{
		Days: 90,
		Actions: []ScriptAction{
			{Key: "crm.note_add", Label: "Log call notes", StartingTier: domain.TierApprove},
			{Key: "crm.task_create", Label: "Create follow-up tasks", StartingTier: domain.TierApprove},
			{Key: "email.followup_draft", Label: "Draft follow-up emails", StartingTier: domain.TierApprove},
			{Key: "email.send", Label: "Send routine emails", StartingTier: domain.TierSuggest},
			{Key: "meeting.schedule", Label: "Schedule meetings", StartingTier: domain.TierApprove},
			{Key: "meeting.recap_post", Label: "Post meeting recaps", StartingTier: domain.TierApprove},
			{Key: "deal.stage_update", Label: "Update deal stages", StartingTier: domain.TierSuggest},
			{Key: "deal.amount_update", Label: "Update deal amounts", StartingTier: domain.TierSuggest},
			{Key: "lead.enrich", Label: "Enrich lead profiles", StartingTier: domain.TierApprove},
			{Key: "lead.route", Label: "Route inbound leads", StartingTier: domain.TierSuggest},
			{Key: "quote.draft", Label: "Draft quotes", StartingTier: domain.TierSuggest},
			{Key: "contract.renewal_flag", Label: "Flag renewals", StartingTier: domain.TierSuggest},
		},
		Milestones: []Milestone{
			{Day: 7, PromotedKeys: []string{"crm.note_add", "meeting.recap_post"}},
			{Day: 18, PromotedKeys: []string{"crm.task_create", "email.followup_draft"}},
			{Day: 30, PromotedKeys: []string{"lead.enrich"}},
			{Day: 42, PromotedKeys: []string{"meeting.schedule", "lead.route"}},
			{Day: 55, PromotedKeys: []string{"deal.stage_update"}},
			{Day: 68, PromotedKeys: []string{"email.send", "quote.draft"}},
			{Day: 80, PromotedKeys: []string{"deal.amount_update", "contract.renewal_flag"}},
		},
		TimeSavedEndHrs:  5.1,
		ActionsAutomated: 847,
	}
}

// milestoneFor возвращает веху, назначенную ровно на этот день.
func (s Script) milestoneFor(day int) *Milestone {
	for i := range s.Milestones {
		if s.Milestones[i].Day == day {
			return &s.Milestones[i]
		}
	}
	return nil
}
