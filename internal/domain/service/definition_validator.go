package service

import (
	"net/mail"
	"strings"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/reporterr"
)

// DefinitionValidator проверяет определения отчетов (Domain Service)
type DefinitionValidator struct{}

// NewDefinitionValidator создает новый DefinitionValidator
func NewDefinitionValidator() *DefinitionValidator {
	return &DefinitionValidator{}
}

// Validate checks the parts every definition needs, scheduled or not.
func (v *DefinitionValidator) Validate(def *entity.ReportDefinition) error {
	if def == nil {
		return reporterr.NewValidationError("", "definition cannot be nil")
	}

	if strings.TrimSpace(def.Hostgroup.Name) == "" {
		return reporterr.NewValidationError("hostgroup.name", "cannot be empty")
	}

	if err := def.Cadence.Validate(); err != nil {
		return reporterr.NewValidationError("cadence", err.Error())
	}

	if len(def.Hosts) == 0 {
		return reporterr.NewValidationError("hosts", "at least one host is required")
	}

	for _, h := range def.Hosts {
		if strings.TrimSpace(h.ID) == "" {
			return reporterr.NewValidationError("hosts.id", "cannot be empty")
		}
		for _, g := range h.Graphs {
			if strings.TrimSpace(g.ID) == "" {
				return reporterr.NewValidationError("hosts.graphs.id", "cannot be empty on host "+h.ID)
			}
		}
	}

	for _, r := range def.Recipients {
		if strings.TrimSpace(r) == "" {
			continue
		}
		if _, err := mail.ParseAddress(r); err != nil {
			return reporterr.NewValidationError("recipients", "invalid address "+r)
		}
	}

	return nil
}

// ValidateManual additionally requires every graph to carry its window.
func (v *DefinitionValidator) ValidateManual(def *entity.ReportDefinition) error {
	if err := v.Validate(def); err != nil {
		return err
	}

	if def.GraphCount() == 0 {
		return reporterr.NewValidationError("hosts.graphs", "at least one graph is required")
	}

	for _, h := range def.Hosts {
		for _, g := range h.Graphs {
			if _, err := g.Window(); err != nil {
				return reporterr.NewValidationError("hosts.graphs.window", g.ID+": "+err.Error())
			}
		}
	}

	return nil
}
