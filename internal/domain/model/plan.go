package model

import "fmt"

// Plan is the billing plan of a GitHub App installation.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// ParsePlan converts a configuration string to a Plan.
func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanFree, PlanPro:
		return Plan(s), nil
	}
	return "", fmt.Errorf("unknown plan %q", s)
}
