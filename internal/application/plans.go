package application

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

// PlanConfig configures a PlanResolver.
type PlanConfig struct {
	// ProInstallations is the static allow-list of paid installations.
	ProInstallations []int64
	// PlansFile optionally points at a YAML file with more assignments.
	PlansFile string
	// Override forces every installation onto one plan. It is only honored
	// when AllowOverride is set, which the composition root does in the test
	// environment alone.
	Override      string
	AllowOverride bool
}

// plansFile is the on-disk shape of PlanConfig.PlansFile.
//
//	installations:
//	  - id: 123
//	    plan: pro
//	    note: Acme Corp
type plansFile struct {
	Installations []struct {
		ID   int64  `yaml:"id"`
		Plan string `yaml:"plan"`
		Note string `yaml:"note"`
	} `yaml:"installations"`
}

// PlanResolver maps installation ids to plans. It is read-only after
// construction and safe for concurrent use.
type PlanResolver struct {
	plans    map[int64]model.Plan
	override model.Plan
}

// NewPlanResolver builds the lookup table from cfg.
func NewPlanResolver(cfg PlanConfig) (*PlanResolver, error) {
	r := &PlanResolver{plans: make(map[int64]model.Plan)}

	for _, id := range cfg.ProInstallations {
		r.plans[id] = model.PlanPro
	}

	if cfg.PlansFile != "" {
		data, err := os.ReadFile(cfg.PlansFile)
		if err != nil {
			return nil, fmt.Errorf("reading plans file: %w", err)
		}
		var pf plansFile
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return nil, fmt.Errorf("parsing plans file %s: %w", cfg.PlansFile, err)
		}
		for _, inst := range pf.Installations {
			plan, err := model.ParsePlan(inst.Plan)
			if err != nil {
				return nil, fmt.Errorf("plans file installation %d: %w", inst.ID, err)
			}
			r.plans[inst.ID] = plan
		}
	}

	if cfg.Override != "" {
		if !cfg.AllowOverride {
			slog.Warn("plan override ignored outside the test environment", "override", cfg.Override)
		} else {
			plan, err := model.ParsePlan(cfg.Override)
			if err != nil {
				return nil, fmt.Errorf("plan override: %w", err)
			}
			r.override = plan
		}
	}

	return r, nil
}

// PlanFor returns the plan of an installation. Unknown installations are free.
func (r *PlanResolver) PlanFor(installationID int64) model.Plan {
	if r.override != "" {
		return r.override
	}
	if plan, ok := r.plans[installationID]; ok {
		return plan
	}
	return model.PlanFree
}
