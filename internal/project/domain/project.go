package domain

import "time"

const (
	ProjectCollection  = "projects"
	EmployeeCollection = "employees"
	RiskCollection     = "risks"
)

// Stage is a named phase of a project's workflow. Stages only exist
// embedded in their project document; TaskIDs is the back-reference used
// for stage progress.
type Stage struct {
	ID             string   `json:"id" firestore:"id"`
	Name           string   `json:"name" firestore:"name"`
	Owner          string   `json:"owner,omitempty" firestore:"owner,omitempty"`
	CompletionTime float64  `json:"completionTime" firestore:"completionTime"` // estimated hours
	ProcessGroup   string   `json:"processGroup,omitempty" firestore:"processGroup,omitempty"`
	KnowledgeArea  string   `json:"knowledgeArea,omitempty" firestore:"knowledgeArea,omitempty"`
	TaskIDs        []string `json:"taskIds" firestore:"taskIds"`
	Progress       int      `json:"progress" firestore:"progress"`
}

// Project groups stages and keeps a flat list of every linked task
type Project struct {
	ID             string    `json:"id" firestore:"id"`
	Name           string    `json:"name" firestore:"name"`
	Manager        string    `json:"manager,omitempty" firestore:"manager,omitempty"`
	Stages         []Stage   `json:"stages" firestore:"stages"`
	TaskIDs        []string  `json:"taskIds" firestore:"taskIds"`
	CurrentStageID string    `json:"currentStageId,omitempty" firestore:"currentStageId,omitempty"`
	OnTrack        bool      `json:"onTrack" firestore:"onTrack"`
	Progress       int       `json:"progress" firestore:"progress"`
	CreatedAt      time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// StageIndex returns the position of stageID in p.Stages, or -1
func (p *Project) StageIndex(stageID string) int {
	for i := range p.Stages {
		if p.Stages[i].ID == stageID {
			return i
		}
	}
	return -1
}

// Employee is a member of staff who can manage or work on projects
type Employee struct {
	ID        string    `json:"id" firestore:"id"`
	Name      string    `json:"name" firestore:"name"`
	Email     string    `json:"email" firestore:"email"`
	Role      string    `json:"role" firestore:"role"`
	Skills    []string  `json:"skills" firestore:"skills"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type RiskStatus string

const (
	RiskOpen      RiskStatus = "open"
	RiskMitigated RiskStatus = "mitigated"
	RiskClosed    RiskStatus = "closed"
)

// Risk is an entry in a project's risk register
type Risk struct {
	ID          string     `json:"id" firestore:"id"`
	ProjectID   string     `json:"projectId" firestore:"projectId"`
	Title       string     `json:"title" firestore:"title"`
	Description string     `json:"description" firestore:"description"`
	Probability RiskLevel  `json:"probability" firestore:"probability"`
	Impact      RiskLevel  `json:"impact" firestore:"impact"`
	Mitigation  string     `json:"mitigation,omitempty" firestore:"mitigation,omitempty"`
	Owner       string     `json:"owner,omitempty" firestore:"owner,omitempty"`
	Status      RiskStatus `json:"status" firestore:"status"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" firestore:"updatedAt"`
}

func ValidRiskLevel(l RiskLevel) bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

func ValidRiskStatus(s RiskStatus) bool {
	switch s {
	case RiskOpen, RiskMitigated, RiskClosed:
		return true
	}
	return false
}
