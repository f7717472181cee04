package model

import "time"

type AnalysisSource string

const (
	SourceAPI  AnalysisSource = "api"
	SourceMock AnalysisSource = "mock"
)

type AnalysisRecord struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Source    AnalysisSource  `json:"source"`
	Result    AnalyzeResponse `json:"result"`
}

type CreditEventType string

const (
	CreditCharge CreditEventType = "charge"
	CreditUse    CreditEventType = "use"
)

type CreditEvent struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Type      CreditEventType `json:"type"`
	Amount    int             `json:"amount"`
	Note      string          `json:"note"`
}

type PrecisionPlan string

const (
	PlanFree PrecisionPlan = "free"
	PlanPlus PrecisionPlan = "plus"
	PlanPro  PrecisionPlan = "pro"
)

func ParsePrecisionPlan(s string) (PrecisionPlan, bool) {
	switch PrecisionPlan(s) {
	case PlanFree, PlanPlus, PlanPro:
		return PrecisionPlan(s), true
	}
	return PlanFree, false
}

type PrecisionStatus string

const (
	PrecisionRequested PrecisionStatus = "requested"
	PrecisionCompleted PrecisionStatus = "completed"
)

type PrecisionEvent struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Plan       PrecisionPlan   `json:"plan"`
	UsedCredit int             `json:"used_credit"`
	Status     PrecisionStatus `json:"status"`
}
